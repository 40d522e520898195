package ratelimit

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrRetryExhausted matches any *RetryExhaustedError via errors.Is.
var ErrRetryExhausted = errors.New("too many retries")

// ErrPermanent marks failures that must not be retried.
var ErrPermanent = errors.New("permanent failure")

// RetryExhaustedError is returned by Execute when a call kept failing past the
// retry ceiling. Last is the error from the final attempt.
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("too many retries (%d attempts): %v", e.Attempts, e.Last)
}

// Unwrap returns the last attempt's error.
func (e *RetryExhaustedError) Unwrap() error { return e.Last }

// Is reports whether target is ErrRetryExhausted.
func (e *RetryExhaustedError) Is(target error) bool { return target == ErrRetryExhausted }

// Permanent marks err so the limiter returns it without retrying.
// Use it for failures another attempt cannot fix (bad request, not found, version conflict).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrPermanent)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
