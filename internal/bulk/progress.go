package bulk

import (
	"fmt"
	"sync"
)

// Phase names the stage of a run a progress event belongs to.
type Phase string

const (
	PhaseList      Phase = "list"
	PhasePublish   Phase = "publish"
	PhaseUnpublish Phase = "unpublish"
	PhaseDelete    Phase = "delete"
	PhaseUpsert    Phase = "upsert"
)

// ProgressEvent is one human-readable progress line with running counts.
type ProgressEvent struct {
	Phase     Phase
	Message   string
	Succeeded int
	Total     int
	Err       error // set on failure lines
}

func (e ProgressEvent) String() string {
	return fmt.Sprintf("%s (Succeeded=%d/%d)", e.Message, e.Succeeded, e.Total)
}

// ProgressFunc receives progress events. Invocations never overlap.
type ProgressFunc func(ProgressEvent)

// reporter serializes callback invocations and keeps the running counts for a phase.
type reporter struct {
	mu        sync.Mutex
	fn        ProgressFunc
	phase     Phase
	total     int
	succeeded int
}

func newReporter(fn ProgressFunc, phase Phase, total int) *reporter {
	return &reporter{fn: fn, phase: phase, total: total}
}

// emitf sends a line, adding delta to the success count first.
func (r *reporter) emitf(delta int, err error, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.succeeded += delta
	if r.fn == nil {
		return
	}
	r.fn(ProgressEvent{
		Phase:     r.phase,
		Message:   fmt.Sprintf(format, args...),
		Succeeded: r.succeeded,
		Total:     r.total,
		Err:       err,
	})
}

func (r *reporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.succeeded
}

func (r *reporter) setTotal(total int) {
	r.mu.Lock()
	r.total = total
	r.mu.Unlock()
}
