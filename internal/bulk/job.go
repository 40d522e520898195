package bulk

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/andresharpe/cute-sub002/internal/models"
)

// JobStatus is the remote status of an asynchronous bulk job.
type JobStatus string

const (
	JobCreated    JobStatus = "created"
	JobInProgress JobStatus = "inProgress"
	JobSucceeded  JobStatus = "succeeded"
	JobFailed     JobStatus = "failed"
)

// validTransitions is the RemoteJob state machine. A job may finish between
// polls, so created can jump straight to a terminal status.
var validTransitions = map[JobStatus][]JobStatus{
	JobCreated:    {JobInProgress, JobSucceeded, JobFailed},
	JobInProgress: {JobSucceeded, JobFailed},
	JobSucceeded:  {},
	JobFailed:     {},
}

// ErrInvalidTransition is returned for status changes the state machine forbids.
var ErrInvalidTransition = errors.New("invalid job status transition")

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// RemoteJob tracks one submitted chunk until it reaches a terminal status.
type RemoteJob struct {
	ID            string
	Kind          models.MutationKind
	Chunk         Chunk
	Status        JobStatus
	FailureReason string
	SubmittedAt   time.Time
	UpdatedAt     time.Time
}

func newRemoteJob(id string, kind models.MutationKind, chunk Chunk, status JobStatus, now time.Time) *RemoteJob {
	if !status.Valid() {
		status = JobCreated
	}
	return &RemoteJob{
		ID:          id,
		Kind:        kind,
		Chunk:       chunk,
		Status:      status,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
}

// TransitionTo validates and applies a status change.
// Observing the current status again is a no-op and reports false.
func (j *RemoteJob) TransitionTo(next JobStatus, reason string, now time.Time) (bool, error) {
	if next == j.Status {
		return false, nil
	}
	allowed, ok := validTransitions[j.Status]
	if !ok {
		return false, errors.Newf("unknown current status %q", j.Status)
	}
	for _, s := range allowed {
		if s == next {
			j.Status = next
			j.UpdatedAt = now
			if next == JobFailed {
				j.FailureReason = reason
			}
			return true, nil
		}
	}
	return false, errors.Wrapf(ErrInvalidTransition, "job %s: %s -> %s", j.ID, j.Status, next)
}
