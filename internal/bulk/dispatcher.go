package bulk

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/andresharpe/cute-sub002/internal/models"
	"github.com/andresharpe/cute-sub002/internal/ratelimit"
)

// CallFunc performs the remote call for one payload.
type CallFunc func(ctx context.Context, payload models.Payload) error

// Dispatcher issues one call per payload for mutations that have no bulk job
// API. Calls are launched in batches of MaxConcurrent; a batch is awaited in
// full before the next one starts.
type Dispatcher struct {
	limiter       *ratelimit.Limiter
	recorder      Recorder
	maxConcurrent int
}

// NewDispatcher creates a Dispatcher. rec may be nil.
func NewDispatcher(limiter *ratelimit.Limiter, opts Options, rec Recorder) *Dispatcher {
	opts = opts.withDefaults()
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Dispatcher{limiter: limiter, recorder: rec, maxConcurrent: opts.MaxConcurrent}
}

type indexedFailure struct {
	index int
	ItemFailure
}

// Run calls call once per payload through the shared limiter. A failing call
// does not stop the others; all failures come back in a *DispatchError and in
// Result.Failed. Cancelling ctx stops new calls from being launched and lets
// launched ones finish.
func (d *Dispatcher) Run(ctx context.Context, kind models.MutationKind, payloads []models.Payload, call CallFunc, onProgress ProgressFunc) (Result, error) {
	phase := phaseOf(kind)
	res := Result{Phase: phase, Requested: len(payloads)}
	progress := newReporter(onProgress, phase, len(payloads))

	var (
		mu       sync.Mutex
		failures []indexedFailure
		wg       sync.WaitGroup
	)

	hooks := ratelimit.Hooks{OnError: func(error, int) { d.recorder.CallRetried(kind) }}
	slots := 0
	for i, p := range payloads {
		if ctx.Err() != nil {
			break
		}
		if err := d.limiter.Pace(ctx); err != nil {
			break
		}

		slots++
		wg.Add(1)
		i, p := i, p
		go func() {
			defer wg.Done()
			issued := false
			err := d.limiter.Do(ctx, func(ctx context.Context) error {
				issued = true
				return call(ctx, p)
			}, hooks)
			if !issued {
				return
			}
			mu.Lock()
			res.Submissions++
			mu.Unlock()
			d.recorder.CallFinished(kind, err)

			label := itemLabel(p, i)
			if err != nil {
				mu.Lock()
				failures = append(failures, indexedFailure{index: i, ItemFailure: ItemFailure{ID: label, Reason: err.Error(), Err: err}})
				mu.Unlock()
				d.recorder.ItemFailed(kind)
				progress.emitf(0, err, "Failed to %s entry '%s': %v", kind, label, err)
				return
			}
			progress.emitf(1, nil, "%s entry '%s'", pastTense(kind), label)
		}()

		if slots == d.maxConcurrent {
			wg.Wait()
			slots = 0
		}
	}
	wg.Wait()

	slices.SortFunc(failures, func(a, b indexedFailure) int { return a.index - b.index })
	for _, f := range failures {
		res.Failed = append(res.Failed, f.ItemFailure)
	}
	res.Succeeded = progress.count()
	res.Pending = res.Requested - res.Succeeded - len(res.Failed)
	res.Cancelled = ctx.Err() != nil

	if len(res.Failed) > 0 {
		return res, &DispatchError{Failures: res.Failed}
	}
	return res, nil
}

func itemLabel(p models.Payload, index int) string {
	if p.ID != "" {
		return p.ID
	}
	return fmt.Sprintf("new#%d", index+1)
}

func pastTense(kind models.MutationKind) string {
	switch kind {
	case models.Delete:
		return "Deleted"
	case models.Upsert:
		return "Saved"
	case models.Publish:
		return "Published"
	case models.Unpublish:
		return "Unpublished"
	}
	return "Processed"
}
