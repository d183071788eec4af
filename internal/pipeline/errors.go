package pipeline

import (
	"errors"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/poll"
)

// JobError represents a job failure that is not attributable to an external
// port, such as a malformed payload or an artifact that failed validation.
type JobError struct {
	Job     string
	Message string
	Cause   error
}

func (e *JobError) Error() string {
	if e.Cause != nil {
		return e.Job + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Job + ": " + e.Message
}

func (e *JobError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether another attempt could plausibly succeed.
// Precondition failures are stale state that retrying cannot fix, and an
// exhausted poll budget has already consumed its retry allowance internally.
func Retryable(err error) bool {
	if errors.Is(err, db.ErrNotFound) ||
		errors.Is(err, db.ErrConflict) ||
		errors.Is(err, db.ErrInvalidTransition) {
		return false
	}
	var timeout *poll.TimeoutError
	return !errors.As(err, &timeout)
}

// Recoverable reports whether the idea should be returned to the operator
// queue after the failure. Stale-precondition errors mean the trigger no
// longer matches reality, so there is nothing to hand back.
func Recoverable(err error) bool {
	return !errors.Is(err, db.ErrNotFound) &&
		!errors.Is(err, db.ErrConflict) &&
		!errors.Is(err, db.ErrInvalidTransition)
}
