package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/events"
	"github.com/camila/ideaforge/internal/types"
)

// Executor is one stage job. Execute performs a single attempt; the runner
// owns retries, run records and failure recovery.
type Executor interface {
	// Name identifies the job in run records and the admin surface.
	Name() string
	// Retries is the attempt budget per trigger.
	Retries() int
	// Manual reports whether operators may trigger the job directly.
	Manual() bool
	Execute(ctx context.Context, ev events.Event) error
}

// Runner wraps executors into event handlers, adding the run record,
// duplicate-trigger suppression, bounded retries with backoff, and the
// return-to-pending recovery path on terminal failure.
type Runner struct {
	store   Store
	runs    RunStore
	backoff time.Duration
}

func NewRunner(store Store, runs RunStore) *Runner {
	return &Runner{store: store, runs: runs, backoff: 2 * time.Second}
}

// Wrap returns the event handler for one executor.
func (r *Runner) Wrap(exec Executor) events.Handler {
	return events.HandlerFunc(func(ctx context.Context, ev events.Event) error {
		return r.run(ctx, exec, ev)
	})
}

func (r *Runner) run(ctx context.Context, exec Executor, ev events.Event) error {
	run, ok, err := r.runs.BeginJobRun(ctx, exec.Name(), ev.ID, ev.Payload.IdeaID)
	if err != nil {
		return fmt.Errorf("failed to record %s run: %w", exec.Name(), err)
	}
	if !ok {
		log.Printf("pipeline: %s already ran for event %s, skipping", exec.Name(), ev.ID)
		return nil
	}

	var lastErr error
	attempts := 0
	for attempts < exec.Retries() {
		attempts++
		lastErr = exec.Execute(ctx, ev)
		if lastErr == nil {
			if err := r.runs.CompleteJobRun(ctx, run.ID, db.JobRunStatusCompleted, attempts, nil); err != nil {
				log.Printf("pipeline: failed to close run %s: %v", run.ID, err)
			}
			return nil
		}
		if !Retryable(lastErr) {
			break
		}
		log.Printf("pipeline: %s attempt %d/%d failed: %v", exec.Name(), attempts, exec.Retries(), lastErr)
		if attempts < exec.Retries() {
			if err := r.wait(ctx, attempts); err != nil {
				lastErr = err
				break
			}
		}
	}

	msg := lastErr.Error()
	if err := r.runs.CompleteJobRun(ctx, run.ID, db.JobRunStatusFailed, attempts, &msg); err != nil {
		log.Printf("pipeline: failed to close run %s: %v", run.ID, err)
	}
	if ev.Payload.IdeaID != nil && Recoverable(lastErr) {
		r.recover(ctx, *ev.Payload.IdeaID, exec.Name(), attempts, lastErr)
	}
	return lastErr
}

func (r *Runner) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(r.backoff * time.Duration(attempt))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recover hands a failed idea back to the operator queue: status returns to
// pending and the failure is logged on the revision ledger so the operator
// sees why the stage needs another pass. The idea never parks at processing.
func (r *Runner) recover(ctx context.Context, ideaID uuid.UUID, job string, attempts int, cause error) {
	idea, err := r.store.GetIdea(ctx, ideaID)
	if err != nil {
		log.Printf("pipeline: cannot recover idea %s after %s failure: %v", ideaID, job, err)
		return
	}
	if idea.Terminal() {
		return
	}
	if idea.Status != types.StatusProcessing && idea.Status != types.StatusRefining {
		return
	}

	pending := types.StatusPending
	expected := idea.Status
	entry := db.NewRevision{
		Stage: idea.Stage,
		Type:  types.RevisionRedo,
		Notes: fmt.Sprintf("%s failed after %d attempt(s): %v", job, attempts, cause),
	}
	if _, err := r.store.UpdateIdeaWithRevision(ctx, ideaID, db.IdeaPatch{Status: &pending}, &expected, entry); err != nil {
		log.Printf("pipeline: failed to return idea %s to pending: %v", ideaID, err)
		return
	}
	log.Printf("pipeline: idea %s returned to pending after %s failure", ideaID, job)
}
