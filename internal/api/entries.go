package api

import (
	"context"
	nethttp "net/http"
	"net/url"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/andresharpe/cute-sub002/internal/bulk"
	"github.com/andresharpe/cute-sub002/internal/models"
)

var _ bulk.Remote = (*Client)(nil)

type link struct {
	Sys linkSys `json:"sys"`
}

type linkSys struct {
	Type     string `json:"type"`
	LinkType string `json:"linkType"`
	ID       string `json:"id"`
	Version  *int   `json:"version,omitempty"`
}

type bulkActionRequest struct {
	Entities struct {
		Sys struct {
			Type string `json:"type"`
		} `json:"sys"`
		Items []link `json:"items"`
	} `json:"entities"`
}

type bulkActionResponse struct {
	Sys struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"sys"`
	Error *errorBody `json:"error,omitempty"`
}

type entriesResponse struct {
	Total int            `json:"total"`
	Skip  int            `json:"skip"`
	Limit int            `json:"limit"`
	Items []models.Entry `json:"items"`
}

// SubmitJob starts a bulk publish or unpublish action for chunk.
func (c *Client) SubmitJob(ctx context.Context, kind models.MutationKind, chunk bulk.Chunk) (bulk.JobTicket, error) {
	if !kind.HasJobAPI() {
		return bulk.JobTicket{}, errors.Wrapf(bulk.ErrUnknownKind, "no bulk action for %s", kind)
	}

	var body bulkActionRequest
	body.Entities.Sys.Type = "Array"
	body.Entities.Items = make([]link, 0, len(chunk))
	for _, item := range chunk {
		l := link{Sys: linkSys{Type: "Link", LinkType: "Entry", ID: item.ID}}
		if kind == models.Publish {
			l.Sys.Version = models.IntPtr(item.VersionOr(1))
		}
		body.Entities.Items = append(body.Entities.Items, l)
	}

	var resp bulkActionResponse
	if err := c.do(ctx, nethttp.MethodPost, c.envPath("/bulk_actions/"+kind.String()), nil, body, &resp); err != nil {
		return bulk.JobTicket{}, err
	}
	return bulk.JobTicket{ID: resp.Sys.ID, Status: bulk.JobStatus(resp.Sys.Status)}, nil
}

// PollJob returns the current status of a bulk action.
func (c *Client) PollJob(ctx context.Context, jobID string) (bulk.JobReport, error) {
	var resp bulkActionResponse
	if err := c.do(ctx, nethttp.MethodGet, c.envPath("/bulk_actions/actions/"+url.PathEscape(jobID)), nil, nil, &resp); err != nil {
		return bulk.JobReport{}, err
	}

	report := bulk.JobReport{Status: bulk.JobStatus(resp.Sys.Status)}
	if resp.Error != nil {
		report.FailureReason = resp.Error.Sys.ID
		if report.FailureReason == "" {
			report.FailureReason = resp.Error.Message
		}
	}
	if !report.Status.Valid() {
		return report, errors.Newf("bulk action %s reported unknown status %q", jobID, resp.Sys.Status)
	}
	return report, nil
}

// SingleCall applies a delete or upsert to one entry.
func (c *Client) SingleCall(ctx context.Context, kind models.MutationKind, p models.Payload) error {
	switch kind {
	case models.Delete:
		if p.ID == "" {
			return errors.New("delete requires an entry id")
		}
		return c.do(ctx, nethttp.MethodDelete, c.envPath("/entries/"+url.PathEscape(p.ID)), nil, nil, nil)

	case models.Upsert:
		header := nethttp.Header{}
		header.Set("X-Contentful-Content-Type", p.ContentType)
		body := map[string]any{"fields": localize(p.Fields, c.locale)}

		if p.ID == "" {
			return c.do(ctx, nethttp.MethodPost, c.envPath("/entries"), header, body, nil)
		}
		if p.Version != nil {
			header.Set("X-Contentful-Version", strconv.Itoa(*p.Version))
		}
		return c.do(ctx, nethttp.MethodPut, c.envPath("/entries/"+url.PathEscape(p.ID)), header, body, nil)

	default:
		return errors.Wrapf(bulk.ErrUnknownKind, "no single call for %s", kind)
	}
}

// ListPage returns entries of contentType in creation order.
func (c *Client) ListPage(ctx context.Context, contentType string, skip, limit int) (bulk.Page, error) {
	q := url.Values{}
	q.Set("content_type", contentType)
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("order", "sys.createdAt")

	var resp entriesResponse
	if err := c.do(ctx, nethttp.MethodGet, c.envPath("/entries?"+q.Encode()), nil, nil, &resp); err != nil {
		return bulk.Page{}, err
	}

	page := bulk.Page{Total: resp.Total, Items: make([]models.WorkItem, 0, len(resp.Items))}
	for _, e := range resp.Items {
		page.Items = append(page.Items, e.Sys)
	}
	return page, nil
}

// localize wraps plain field values under locale. Values that are already a
// map containing locale are sent as they are.
func localize(fields models.Fields, locale string) map[string]any {
	out := make(map[string]any, len(fields))
	for name, v := range fields {
		if m, ok := v.(map[string]any); ok {
			if _, has := m[locale]; has {
				out[name] = m
				continue
			}
		}
		out[name] = map[string]any{locale: v}
	}
	return out
}

// Environment is the subset of the environment resource Ping reads.
type Environment struct {
	Sys struct {
		ID string `json:"id"`
	} `json:"sys"`
	Name string `json:"name"`
}

// Ping fetches the configured environment, verifying the key, space and environment.
func (c *Client) Ping(ctx context.Context) (Environment, error) {
	var env Environment
	err := c.do(ctx, nethttp.MethodGet, c.envPath(""), nil, nil, &env)
	return env, err
}
