package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresharpe/cute-sub002/internal/models"
	"github.com/andresharpe/cute-sub002/internal/ratelimit"
)

// fakeRemote is an in-memory Remote. A job fails when its chunk holds a
// poisoned id and otherwise succeeds after pendingPolls polls.
type fakeRemote struct {
	mu sync.Mutex

	poisoned     map[string]bool
	pendingPolls int
	pollErr      error
	callErr      func(models.Payload) error

	entries []models.WorkItem

	nextID    int
	jobs      map[string]*fakeJob
	submitted []Chunk
	succeeded []Chunk
	active    int
	maxActive int
	polls     int
	pages     int
	calls     []models.Payload
}

type fakeJob struct {
	chunk   Chunk
	outcome JobStatus
	polls   int
	done    bool
}

func newFakeRemote(poisoned ...string) *fakeRemote {
	f := &fakeRemote{poisoned: map[string]bool{}, jobs: map[string]*fakeJob{}}
	for _, id := range poisoned {
		f.poisoned[id] = true
	}
	return f
}

func (f *fakeRemote) SubmitJob(ctx context.Context, kind models.MutationKind, chunk Chunk) (JobTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := fmt.Sprintf("job-%d", f.nextID)
	outcome := JobSucceeded
	for _, item := range chunk {
		if f.poisoned[item.ID] {
			outcome = JobFailed
		}
	}
	f.jobs[id] = &fakeJob{chunk: append(Chunk(nil), chunk...), outcome: outcome}
	f.submitted = append(f.submitted, append(Chunk(nil), chunk...))
	f.active++
	f.maxActive = max(f.maxActive, f.active)
	return JobTicket{ID: id, Status: JobCreated}, nil
}

func (f *fakeRemote) PollJob(ctx context.Context, jobID string) (JobReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.polls++
	if f.pollErr != nil {
		return JobReport{}, f.pollErr
	}
	job, ok := f.jobs[jobID]
	if !ok {
		return JobReport{}, errors.New("no such job")
	}
	job.polls++
	if job.polls <= f.pendingPolls {
		return JobReport{Status: JobInProgress}, nil
	}
	if !job.done {
		job.done = true
		f.active--
		if job.outcome == JobSucceeded {
			f.succeeded = append(f.succeeded, job.chunk)
		}
	}
	if job.outcome == JobFailed {
		return JobReport{Status: JobFailed, FailureReason: "InvalidEntry"}, nil
	}
	return JobReport{Status: JobSucceeded}, nil
}

func (f *fakeRemote) SingleCall(ctx context.Context, kind models.MutationKind, p models.Payload) error {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	callErr := f.callErr
	f.mu.Unlock()
	if callErr != nil {
		return callErr(p)
	}
	return nil
}

func (f *fakeRemote) ListPage(ctx context.Context, contentType string, skip, limit int) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages++
	end := min(skip+limit, len(f.entries))
	if skip > end {
		skip = end
	}
	return Page{Items: append([]models.WorkItem(nil), f.entries[skip:end]...), Total: len(f.entries)}, nil
}

func (f *fakeRemote) submittedSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	sizes := make([]int, len(f.submitted))
	for i, c := range f.submitted {
		sizes[i] = len(c)
	}
	return sizes
}

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Config{
		Permits:    7,
		Window:     time.Second,
		RetryLimit: 2,
		Clock:      ratelimit.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	})
}

func makeItems(n int) []models.WorkItem {
	items := make([]models.WorkItem, n)
	for i := range items {
		items[i] = models.WorkItem{ID: fmt.Sprintf("e%03d", i), Version: models.IntPtr(1)}
	}
	return items
}
