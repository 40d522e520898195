package bulk

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/andresharpe/cute-sub002/internal/models"
	"github.com/andresharpe/cute-sub002/internal/ratelimit"
)

// Scheduler submits chunks of items as asynchronous bulk jobs, polls them to
// completion and bisects failed chunks until the failing items are isolated.
type Scheduler struct {
	remote      Remote
	limiter     *ratelimit.Limiter
	recorder    Recorder
	chunkSize   int
	maxInFlight int
}

// NewScheduler creates a Scheduler. rec may be nil.
func NewScheduler(remote Remote, limiter *ratelimit.Limiter, opts Options, rec Recorder) *Scheduler {
	opts = opts.withDefaults()
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Scheduler{
		remote:      remote,
		limiter:     limiter,
		recorder:    rec,
		chunkSize:   opts.ChunkSize,
		maxInFlight: opts.MaxInFlight,
	}
}

// schedulerRun is the state of one Run call.
type schedulerRun struct {
	*Scheduler
	kind     models.MutationKind
	queue    *JobQueue
	progress *reporter

	mu     sync.Mutex // guards jobs and result
	jobs   map[string]*RemoteJob
	result Result
}

// Run drives items through bulk jobs of the given kind and returns once every
// item has succeeded or been isolated as a permanent failure.
//
// A cancelled ctx stops further submissions and polls; the partial result is
// returned with Cancelled set and a nil error. A call that exhausts its
// retries aborts the run and is returned alongside the partial result.
func (s *Scheduler) Run(ctx context.Context, kind models.MutationKind, items []models.WorkItem, onProgress ProgressFunc) (Result, error) {
	phase := phaseOf(kind)
	if !kind.HasJobAPI() {
		return Result{Phase: phase}, errors.Wrapf(ErrUnknownKind, "%s has no bulk job API", kind)
	}

	r := &schedulerRun{
		Scheduler: s,
		kind:      kind,
		queue:     NewJobQueue(SplitChunks(items, s.chunkSize)...),
		progress:  newReporter(onProgress, phase, len(items)),
		jobs:      make(map[string]*RemoteJob),
		result:    Result{Phase: phase, Requested: len(items)},
	}

	err := r.loop(ctx)
	if err != nil && ctx.Err() != nil {
		err = nil
	}
	if ctx.Err() != nil {
		r.result.Cancelled = true
	}
	return r.finish(), err
}

func (r *schedulerRun) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if chunk, ok := r.queue.Pop(); ok {
			if err := r.submit(ctx, chunk); err != nil {
				r.queue.Push(chunk)
				return err
			}
			// Keep the pipe full before paying for polls.
			if r.inFlight() < r.maxInFlight && len(chunk) == r.chunkSize && !r.queue.Empty() {
				continue
			}
		}

		if r.inFlight() == 0 {
			if r.queue.Empty() {
				return nil
			}
			continue
		}

		if err := r.pollUntilRoom(ctx); err != nil {
			return err
		}
	}
}

// pollUntilRoom polls every in-flight job until a submission slot opens up
// for queued work or nothing is left in flight.
func (r *schedulerRun) pollUntilRoom(ctx context.Context) error {
	for r.inFlight() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.pollAll(ctx); err != nil {
			return err
		}
		if r.inFlight() < r.maxInFlight && !r.queue.Empty() {
			return nil
		}
	}
	return nil
}

func (r *schedulerRun) submit(ctx context.Context, chunk Chunk) error {
	ticket, err := ratelimit.Execute(ctx, r.limiter, func(ctx context.Context) (JobTicket, error) {
		return r.remote.SubmitJob(ctx, r.kind, chunk)
	}, r.hooks())
	if err != nil {
		return errors.Wrapf(err, "submit %s job of %d entries", r.kind, len(chunk))
	}
	if ticket.ID == "" {
		return errors.Newf("submit %s job: remote returned no job id", r.kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.result.Submissions++
	r.recorder.JobSubmitted(r.kind, len(chunk))

	// The id is the only handle on the chunk; a reused one would hide it.
	if _, dup := r.jobs[ticket.ID]; dup {
		return errors.Wrapf(ErrDuplicateJobID, "submit %s job of %d entries: %s", r.kind, len(chunk), ticket.ID)
	}

	job := newRemoteJob(ticket.ID, r.kind, chunk, JobCreated, r.limiter.Clock().Now())
	r.jobs[job.ID] = job
	r.progress.emitf(0, nil, "Created bulk %s action '%s' with status '%s' (%d entries)",
		strings.ToUpper(r.kind.String()), job.ID, orUnknown(string(ticket.Status)), len(chunk))

	if ticket.Status != "" {
		r.applyLocked(job, ticket.Status, "")
	}
	return nil
}

func (r *schedulerRun) pollAll(ctx context.Context) error {
	var g errgroup.Group
	for _, id := range r.inFlightIDs() {
		id := id
		g.Go(func() error {
			report, err := ratelimit.Execute(ctx, r.limiter, func(ctx context.Context) (JobReport, error) {
				return r.remote.PollJob(ctx, id)
			}, r.hooks())
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.Wrapf(err, "poll bulk action %s", id)
			}
			r.observe(id, report)
			return nil
		})
	}
	return g.Wait()
}

// observe applies a poll result. Lookup, comparison and update happen under
// one lock so a success is counted once even if two polls race.
func (r *schedulerRun) observe(id string, report JobReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return
	}
	r.applyLocked(job, report.Status, report.FailureReason)
}

func (r *schedulerRun) applyLocked(job *RemoteJob, status JobStatus, reason string) {
	changed, err := job.TransitionTo(status, reason, r.limiter.Clock().Now())
	if err != nil {
		r.progress.emitf(0, err, "Bulk action '%s' reported unexpected status '%s'", job.ID, status)
		return
	}
	if !changed {
		return
	}

	switch job.Status {
	case JobSucceeded:
		delete(r.jobs, job.ID)
		r.result.Succeeded += len(job.Chunk)
		r.recorder.JobFinished(r.kind, job.Status)
		r.progress.emitf(len(job.Chunk), nil, "Bulk action '%s' succeeded (%d entries)", job.ID, len(job.Chunk))

	case JobFailed:
		delete(r.jobs, job.ID)
		r.recorder.JobFinished(r.kind, job.Status)
		cause := errors.Newf("bulk action %s failed: %s", job.ID, orUnknown(reason))

		if len(job.Chunk) == 1 {
			id := job.Chunk[0].ID
			r.result.Failed = append(r.result.Failed, ItemFailure{ID: id, Reason: orUnknown(reason)})
			r.recorder.ItemFailed(r.kind)
			r.progress.emitf(0, cause, "Bulk action '%s' failed for entry '%s'. Reason:'%s'", job.ID, id, orUnknown(reason))
			return
		}

		first, second := job.Chunk.Bisect()
		r.queue.Push(first, second)
		r.progress.emitf(0, cause, "Bulk action '%s' failed. Reason:'%s'. Retrying as %d + %d entries",
			job.ID, orUnknown(reason), len(first), len(second))

	default:
		r.progress.emitf(0, nil, "...checking action '%s' and its status is '%s'", job.ID, job.Status)
	}
}

func (r *schedulerRun) hooks() ratelimit.Hooks {
	return ratelimit.Hooks{
		OnError: func(error, int) { r.recorder.CallRetried(r.kind) },
	}
}

func (r *schedulerRun) inFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func (r *schedulerRun) inFlightIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.jobs))
	for id := range r.jobs {
		ids = append(ids, id)
	}
	return ids
}

func (r *schedulerRun) finish() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.result
	res.Pending = 0
	for _, job := range r.jobs {
		res.Pending += len(job.Chunk)
	}
	for r.queue.Len() > 0 {
		c, _ := r.queue.Pop()
		res.Pending += len(c)
	}
	return res
}

func phaseOf(kind models.MutationKind) Phase {
	switch kind {
	case models.Publish:
		return PhasePublish
	case models.Unpublish:
		return PhaseUnpublish
	case models.Delete:
		return PhaseDelete
	case models.Upsert:
		return PhaseUpsert
	}
	return Phase(kind.String())
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
