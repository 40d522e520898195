package bulk

import "github.com/andresharpe/cute-sub002/internal/models"

// Recorder receives counters about a run, typically backed by metrics.
type Recorder interface {
	JobSubmitted(kind models.MutationKind, items int)
	JobFinished(kind models.MutationKind, status JobStatus)
	ItemFailed(kind models.MutationKind)
	CallFinished(kind models.MutationKind, err error)
	CallRetried(kind models.MutationKind)
}

type nopRecorder struct{}

func (nopRecorder) JobSubmitted(models.MutationKind, int)      {}
func (nopRecorder) JobFinished(models.MutationKind, JobStatus) {}
func (nopRecorder) ItemFailed(models.MutationKind)             {}
func (nopRecorder) CallFinished(models.MutationKind, error)    {}
func (nopRecorder) CallRetried(models.MutationKind)            {}
