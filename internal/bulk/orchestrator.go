package bulk

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/andresharpe/cute-sub002/internal/models"
	"github.com/andresharpe/cute-sub002/internal/ratelimit"
)

// Request describes one bulk mutation.
type Request struct {
	Kind        models.MutationKind
	ContentType string
	// Items is the work set. When nil, every entry of ContentType is listed from the remote.
	Items []models.WorkItem
	// OnlyIDs restricts the work set to these entry ids when non-empty.
	OnlyIDs []string
	// Payloads are the entries to create or update for Upsert.
	Payloads []models.Payload
	// DryRun lists and filters without mutating anything.
	DryRun bool
}

// Validate checks the request's preconditions.
func (r Request) Validate() error {
	if !r.Kind.Valid() {
		return errors.Wrapf(ErrUnknownKind, "%d", int(r.Kind))
	}
	switch r.Kind {
	case models.Upsert:
		if len(r.Payloads) == 0 {
			return ErrNoPayloads
		}
		if r.ContentType == "" {
			for _, p := range r.Payloads {
				if p.ContentType == "" {
					return errors.Wrap(ErrNoContentType, "upsert payload without content type")
				}
			}
		}
	case models.Delete:
		if r.ContentType == "" {
			return errors.Wrap(ErrNoContentType, "delete")
		}
	default:
		if r.Items == nil && r.ContentType == "" {
			return errors.Wrapf(ErrNoContentType, "%s without items", r.Kind)
		}
	}
	return nil
}

// Report is the outcome of an orchestrated run, one Result per phase executed.
type Report struct {
	Kind        models.MutationKind
	ContentType string
	Listed      int // items supplied or listed, after the id filter
	Selected    int // items that required the mutation
	DryRun      bool
	Phases      []Result
}

// Final returns the last phase's result.
func (r Report) Final() Result {
	if len(r.Phases) == 0 {
		return Result{}
	}
	return r.Phases[len(r.Phases)-1]
}

// Failed returns the permanent failures of every phase.
func (r Report) Failed() []ItemFailure {
	var out []ItemFailure
	for _, p := range r.Phases {
		out = append(out, p.Failed...)
	}
	return out
}

// Cancelled reports whether any phase stopped early on cancellation.
func (r Report) Cancelled() bool {
	for _, p := range r.Phases {
		if p.Cancelled {
			return true
		}
	}
	return false
}

// Summary is a one-line description of the outcome.
func (r Report) Summary() string {
	if r.DryRun {
		return fmt.Sprintf("Dry run %s of '%s': %d of %d entries would be changed",
			r.Kind, r.ContentType, r.Selected, r.Listed)
	}
	final := r.Final()
	s := fmt.Sprintf("Completed %s of '%s': %d/%d succeeded, %d failed",
		r.Kind, r.ContentType, final.Succeeded, final.Requested, len(r.Failed()))
	if r.Cancelled() {
		s += " (cancelled)"
	}
	return s
}

// Orchestrator is the entry point for bulk mutations. It picks the entries
// that need the mutation and routes them to the Scheduler (bulk jobs) or the
// Dispatcher (per-entry calls).
type Orchestrator struct {
	remote     Remote
	limiter    *ratelimit.Limiter
	opts       Options
	scheduler  *Scheduler
	dispatcher *Dispatcher
}

// NewOrchestrator wires an Orchestrator around the shared limiter. rec may be nil.
func NewOrchestrator(remote Remote, limiter *ratelimit.Limiter, opts Options, rec Recorder) *Orchestrator {
	opts = opts.withDefaults()
	return &Orchestrator{
		remote:     remote,
		limiter:    limiter,
		opts:       opts,
		scheduler:  NewScheduler(remote, limiter, opts, rec),
		dispatcher: NewDispatcher(limiter, opts, rec),
	}
}

// Options returns the orchestrator's tuning.
func (o *Orchestrator) Options() Options { return o.opts }

// Run executes req, streaming progress to onProgress.
//
// Precondition failures are returned before any remote call. Job failures are
// retried by bisection and only isolated single-entry failures end up in the
// report. Cancellation yields a partial report and a nil error.
func (o *Orchestrator) Run(ctx context.Context, req Request, onProgress ProgressFunc) (Report, error) {
	report := Report{Kind: req.Kind, ContentType: req.ContentType, DryRun: req.DryRun}
	if err := req.Validate(); err != nil {
		return report, err
	}

	report, err := o.run(ctx, req, report, onProgress)
	if err == nil && !report.Cancelled() && (len(report.Phases) > 0 || req.DryRun) {
		final := report.Final()
		emit(onProgress, ProgressEvent{
			Phase:     final.Phase,
			Message:   report.Summary(),
			Succeeded: final.Succeeded,
			Total:     final.Requested,
		})
	}
	return report, err
}

func (o *Orchestrator) run(ctx context.Context, req Request, report Report, onProgress ProgressFunc) (Report, error) {
	if req.Kind == models.Upsert {
		payloads := withContentType(req.Payloads, req.ContentType)
		report.Listed, report.Selected = len(payloads), len(payloads)
		if req.DryRun {
			return report, nil
		}
		res, err := o.dispatcher.Run(ctx, models.Upsert, payloads, o.call(models.Upsert), onProgress)
		report.Phases = append(report.Phases, res)
		return report, err
	}

	items := req.Items
	if items == nil {
		listed, res, err := o.list(ctx, req.ContentType, onProgress)
		if err != nil {
			return report, err
		}
		if res.Cancelled {
			report.Phases = append(report.Phases, res)
			return report, nil
		}
		items = listed
	}
	items = filterIDs(items, req.OnlyIDs)
	report.Listed = len(items)

	switch req.Kind {
	case models.Publish, models.Unpublish:
		selected := Select(req.Kind, items)
		report.Selected = len(selected)
		if req.DryRun {
			return report, nil
		}
		res, err := o.scheduler.Run(ctx, req.Kind, selected, onProgress)
		report.Phases = append(report.Phases, res)
		return report, err

	case models.Delete:
		published := Select(models.Unpublish, items)
		report.Selected = len(items)
		if req.DryRun {
			return report, nil
		}

		res, err := o.scheduler.Run(ctx, models.Unpublish, published, onProgress)
		report.Phases = append(report.Phases, res)
		if err != nil || res.Cancelled {
			return report, err
		}

		// Entries still published cannot be deleted.
		blocked := make(map[string]struct{}, len(res.Failed))
		for _, f := range res.Failed {
			blocked[f.ID] = struct{}{}
		}
		targets := make([]models.Payload, 0, len(items))
		for _, item := range items {
			if _, ok := blocked[item.ID]; !ok {
				targets = append(targets, models.Payload{WorkItem: item, ContentType: req.ContentType})
			}
		}

		res, err = o.dispatcher.Run(ctx, models.Delete, targets, o.call(models.Delete), onProgress)
		report.Phases = append(report.Phases, res)
		return report, err
	}

	return report, errors.Wrapf(ErrUnknownKind, "%s", req.Kind)
}

// list pages through every entry of contentType.
func (o *Orchestrator) list(ctx context.Context, contentType string, onProgress ProgressFunc) ([]models.WorkItem, Result, error) {
	progress := newReporter(onProgress, PhaseList, 0)
	res := Result{Phase: PhaseList}
	var items []models.WorkItem

	for skip := 0; ; {
		page, err := ratelimit.Execute(ctx, o.limiter, func(ctx context.Context) (Page, error) {
			return o.remote.ListPage(ctx, contentType, skip, o.opts.PageSize)
		}, ratelimit.Hooks{})
		if err != nil {
			if ctx.Err() != nil {
				res.Succeeded = len(items)
				res.Cancelled = true
				return items, res, nil
			}
			return nil, res, errors.Wrapf(err, "list '%s' entries", contentType)
		}
		res.Submissions++

		items = append(items, page.Items...)
		skip += len(page.Items)
		res.Requested = page.Total
		progress.setTotal(page.Total)
		progress.emitf(len(page.Items), nil, "Getting '%s' entries %d/%d", contentType, len(items), page.Total)

		if len(page.Items) == 0 || skip >= page.Total {
			break
		}
	}

	res.Succeeded = len(items)
	return items, res, nil
}

func (o *Orchestrator) call(kind models.MutationKind) CallFunc {
	return func(ctx context.Context, p models.Payload) error {
		return o.remote.SingleCall(ctx, kind, p)
	}
}

// Select returns the items that require kind, in input order.
//
// Publish keeps drafts and entries changed since their last publish. Archived
// entries are not special-cased: the remote rejects them and bisection isolates
// them as failures. Unpublish and Delete keep entries that carry a publish timestamp.
func Select(kind models.MutationKind, items []models.WorkItem) []models.WorkItem {
	out := make([]models.WorkItem, 0, len(items))
	for _, item := range items {
		switch kind {
		case models.Publish:
			if !item.IsPublished() || item.IsChanged() {
				out = append(out, item)
			}
		case models.Unpublish, models.Delete:
			if item.HasPublishedAt() {
				out = append(out, item)
			}
		default:
			out = append(out, item)
		}
	}
	return out
}

func filterIDs(items []models.WorkItem, ids []string) []models.WorkItem {
	if len(ids) == 0 {
		return items
	}
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	out := make([]models.WorkItem, 0, len(ids))
	for _, item := range items {
		if _, ok := keep[item.ID]; ok {
			out = append(out, item)
		}
	}
	return out
}

func withContentType(payloads []models.Payload, contentType string) []models.Payload {
	out := make([]models.Payload, len(payloads))
	for i, p := range payloads {
		if p.ContentType == "" {
			p.ContentType = contentType
		}
		out[i] = p
	}
	return out
}

func emit(fn ProgressFunc, ev ProgressEvent) {
	if fn != nil {
		fn(ev)
	}
}
