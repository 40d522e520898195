package bulk

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Precondition errors, returned before any remote call is made.
var (
	ErrNoPayloads    = errors.New("upsert requires at least one payload")
	ErrNoContentType = errors.New("content type is required")
	ErrUnknownKind   = errors.New("unknown mutation kind")
)

// ErrDuplicateJobID is returned when the remote answers a submission with the
// id of a job that is still being tracked. The chunk is left pending.
var ErrDuplicateJobID = errors.New("remote returned a job id already in flight")

// ItemFailure records an item the run gave up on.
type ItemFailure struct {
	ID     string
	Reason string
	Err    error
}

func (f ItemFailure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.ID, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.ID, f.Reason)
}

// DispatchError aggregates the per-item failures of a dispatch.
type DispatchError struct {
	Failures []ItemFailure
}

func (e *DispatchError) Error() string {
	if len(e.Failures) == 1 {
		return "1 call failed: " + e.Failures[0].Error()
	}
	parts := make([]string, 0, min(len(e.Failures), 3))
	for _, f := range e.Failures[:min(len(e.Failures), 3)] {
		parts = append(parts, f.Error())
	}
	msg := fmt.Sprintf("%d calls failed: %s", len(e.Failures), strings.Join(parts, "; "))
	if len(e.Failures) > 3 {
		msg += "; ..."
	}
	return msg
}

// Unwrap exposes every underlying call error.
func (e *DispatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}
