// Package poll provides bounded polling for slow external operations.
package poll

import (
	"context"
	"fmt"
	"time"
)

// TimeoutError indicates a poll loop exhausted its attempt budget without
// the condition becoming true.
type TimeoutError struct {
	Operation string
	Attempts  int
	Interval  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s did not complete after %d attempts (%s apart)", e.Operation, e.Attempts, e.Interval)
}

// Budget bounds a poll loop: a fixed number of attempts at a fixed interval.
type Budget struct {
	Operation   string
	Interval    time.Duration
	MaxAttempts int
}

// CheckFunc inspects the external operation once. done=true stops the loop
// successfully; a non-nil error aborts it immediately.
type CheckFunc func(ctx context.Context) (done bool, err error)

// Until runs check at the budget's interval until it reports done, the
// budget is exhausted, or the context is cancelled. Exhaustion returns a
// *TimeoutError, never a silent success.
func Until(ctx context.Context, b Budget, check CheckFunc) error {
	if b.MaxAttempts <= 0 {
		return fmt.Errorf("poll budget for %s has no attempts", b.Operation)
	}

	timer := time.NewTimer(0) // first check is immediate
	defer timer.Stop()

	for attempt := 1; attempt <= b.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		timer.Reset(b.Interval)
	}

	return &TimeoutError{Operation: b.Operation, Attempts: b.MaxAttempts, Interval: b.Interval}
}
