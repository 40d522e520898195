package bulk

import (
	"context"

	"github.com/andresharpe/cute-sub002/internal/models"
)

// JobTicket is the remote system's answer to a job submission.
type JobTicket struct {
	ID     string
	Status JobStatus
}

// JobReport is the result of polling a job.
type JobReport struct {
	Status        JobStatus
	FailureReason string
}

// Page is one slice of a content type's entries.
type Page struct {
	Items []models.WorkItem
	Total int
}

// Remote is the content API as seen by the bulk core. Every method is issued
// through the shared ratelimit.Limiter by the caller; implementations must not
// throttle on their own.
type Remote interface {
	SubmitJob(ctx context.Context, kind models.MutationKind, chunk Chunk) (JobTicket, error)
	PollJob(ctx context.Context, jobID string) (JobReport, error)
	SingleCall(ctx context.Context, kind models.MutationKind, payload models.Payload) error
	ListPage(ctx context.Context, contentType string, skip, limit int) (Page, error)
}
