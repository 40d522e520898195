package cli

import (
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresharpe/cute-sub002/internal/bulk"
	"github.com/andresharpe/cute-sub002/internal/config"
	"github.com/andresharpe/cute-sub002/internal/models"
)

const envPrefix = "/spaces/sp/environments/master"

// fakeCMS serves the subset of the management API the content commands use.
type fakeCMS struct {
	mu        sync.Mutex
	entries   string // JSON body for the entries listing
	published []string
	deleted   []string
	upserts   []string
	failIDs   map[string]bool // deletes answered with 404
}

func (f *fakeCMS) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, envPrefix)
	switch {
	case r.Method == nethttp.MethodGet && path == "/entries":
		_, _ = io.WriteString(w, f.entries)

	case r.Method == nethttp.MethodPost && strings.HasPrefix(path, "/bulk_actions/"):
		var body struct {
			Entities struct {
				Items []struct {
					Sys struct {
						ID string `json:"id"`
					} `json:"sys"`
				} `json:"items"`
			} `json:"entities"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, item := range body.Entities.Items {
			f.published = append(f.published, item.Sys.ID)
		}
		w.WriteHeader(nethttp.StatusCreated)
		_, _ = io.WriteString(w, `{"sys":{"id":"ba1","status":"created"}}`)

	case r.Method == nethttp.MethodGet && strings.HasPrefix(path, "/bulk_actions/actions/"):
		_, _ = io.WriteString(w, `{"sys":{"id":"ba1","status":"succeeded"}}`)

	case r.Method == nethttp.MethodDelete && strings.HasPrefix(path, "/entries/"):
		id := strings.TrimPrefix(path, "/entries/")
		if f.failIDs[id] {
			w.WriteHeader(nethttp.StatusNotFound)
			_, _ = io.WriteString(w, `{"sys":{"id":"NotFound"},"message":"The resource could not be found."}`)
			return
		}
		f.deleted = append(f.deleted, id)
		w.WriteHeader(nethttp.StatusNoContent)

	case (r.Method == nethttp.MethodPut || r.Method == nethttp.MethodPost) && strings.HasPrefix(path, "/entries"):
		f.upserts = append(f.upserts, r.Method+" "+path)
		w.WriteHeader(nethttp.StatusCreated)
		_, _ = io.WriteString(w, `{}`)

	default:
		w.WriteHeader(nethttp.StatusNotFound)
	}
}

// setupCMS starts a fake API and writes a config pointing at it.
func setupCMS(t *testing.T, cms *fakeCMS) string {
	t.Helper()
	srv := httptest.NewServer(cms)
	t.Cleanup(srv.Close)

	cfg := config.NewConfig()
	cfg.BaseURL = srv.URL
	cfg.SpaceID = "sp"
	cfg.APIKey = "tok"
	cfg.Permits = 10
	cfg.WindowMS = 50
	cfg.RetryLimit = 1
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, config.Save(cfg, path))
	return path
}

const listing = `{"total":3,"skip":0,"limit":1000,"items":[
	{"sys":{"id":"a","version":1}},
	{"sys":{"id":"b","version":3,"publishedVersion":2,"publishedAt":"2025-01-01T00:00:00Z"}},
	{"sys":{"id":"c","version":5,"publishedVersion":2,"publishedAt":"2025-01-01T00:00:00Z"}}
]}`

func TestContentCmdHasMutations(t *testing.T) {
	cmd := newContentCmd()
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"publish", "unpublish", "delete", "upsert"}, names)
}

func TestPublishDraftsAndChanged(t *testing.T) {
	cms := &fakeCMS{entries: listing}
	path := setupCMS(t, cms)

	out, err := runCLI(t, "", "content", "publish", "--config", path, "--no-progress", "-t", "post")
	require.NoError(t, err)
	assert.Contains(t, out, "Completed publish of 'post': 2/2 succeeded, 0 failed")
	assert.ElementsMatch(t, []string{"a", "c"}, cms.published)
}

func TestPublishDryRunChangesNothing(t *testing.T) {
	cms := &fakeCMS{entries: listing}
	path := setupCMS(t, cms)

	out, err := runCLI(t, "", "content", "publish", "--config", path, "--no-progress", "-t", "post", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 3 entries would be changed")
	assert.Empty(t, cms.published)
}

func TestPublishOnlySelectedIDs(t *testing.T) {
	cms := &fakeCMS{entries: listing}
	path := setupCMS(t, cms)

	_, err := runCLI(t, "", "content", "publish", "--config", path, "--no-progress", "-t", "post", "--ids", "c,b")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, cms.published)
}

func TestDeleteRefusesWithoutConfirmation(t *testing.T) {
	if interactive() {
		t.Skip("stdin is a terminal")
	}
	cms := &fakeCMS{entries: listing}
	path := setupCMS(t, cms)

	_, err := runCLI(t, "", "content", "delete", "--config", path, "--no-progress", "-t", "post")
	assert.ErrorIs(t, err, ErrDeleteDeclined)
	assert.Empty(t, cms.deleted)
}

func TestDeleteUnpublishesThenDeletes(t *testing.T) {
	cms := &fakeCMS{entries: listing, failIDs: map[string]bool{"b": true}}
	path := setupCMS(t, cms)

	out, err := runCLI(t, "", "content", "delete", "--config", path, "--no-progress", "-t", "post", "--yes")
	assert.ErrorIs(t, err, ErrEntriesFailed)
	// b and c were published and go through the bulk unpublish first.
	assert.ElementsMatch(t, []string{"b", "c"}, cms.published)
	assert.ElementsMatch(t, []string{"a", "c"}, cms.deleted)
	assert.Contains(t, out, "failed b:")
}

func TestUpsertFromFile(t *testing.T) {
	cms := &fakeCMS{entries: listing}
	path := setupCMS(t, cms)

	payloads := filepath.Join(t.TempDir(), "posts.csv")
	require.NoError(t, os.WriteFile(payloads, []byte("id,version,title\nx1,3,Hello\n,,New\n"), 0o600))

	out, err := runCLI(t, "", "content", "upsert", "--config", path, "--no-progress", "-t", "post", "-f", payloads)
	require.NoError(t, err)
	assert.Contains(t, out, "2/2 succeeded")
	assert.ElementsMatch(t, []string{"PUT /entries/x1", "POST /entries"}, cms.upserts)
}

func TestBuildRequestRejectsUpsertWithoutPayloads(t *testing.T) {
	payloads := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(payloads, []byte("[]"), 0o600))

	_, err := buildRequest(models.Upsert, contentFlags{contentType: "post", file: payloads})
	assert.ErrorIs(t, err, bulk.ErrNoPayloads)
}

func TestRunOutcome(t *testing.T) {
	ok := bulk.Report{Phases: []bulk.Result{{Requested: 2, Succeeded: 2}}}
	assert.NoError(t, runOutcome(ok, nil))

	cancelled := bulk.Report{Phases: []bulk.Result{{Requested: 2, Succeeded: 1, Pending: 1, Cancelled: true}}}
	assert.ErrorIs(t, runOutcome(cancelled, nil), ErrCancelled)

	failed := bulk.Report{Phases: []bulk.Result{{Requested: 2, Succeeded: 1, Failed: []bulk.ItemFailure{{ID: "x", Reason: "NotFound"}}}}}
	assert.ErrorIs(t, runOutcome(failed, nil), ErrEntriesFailed)
	assert.ErrorIs(t, runOutcome(failed, &bulk.DispatchError{Failures: failed.Phases[0].Failed}), ErrEntriesFailed)

	boom := errors.New("boom")
	assert.ErrorIs(t, runOutcome(ok, boom), boom)
}
