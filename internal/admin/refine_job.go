package admin

import (
	"context"
	"errors"
	"log"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/events"
)

// RefineIdeaJob is the event-driven face of Gateway.Refine, so refinements
// can be requested over the same trigger surface as the other jobs.
type RefineIdeaJob struct {
	gateway *Gateway
}

func NewRefineIdeaJob(gateway *Gateway) *RefineIdeaJob {
	return &RefineIdeaJob{gateway: gateway}
}

func (j *RefineIdeaJob) Name() string { return "refine-idea" }
func (j *RefineIdeaJob) Retries() int { return 1 }
func (j *RefineIdeaJob) Manual() bool { return true }

func (j *RefineIdeaJob) Execute(ctx context.Context, ev events.Event) error {
	if ev.Payload.IdeaID == nil {
		return &ActionError{Action: "refine", Message: "trigger payload is missing idea_id"}
	}
	_, err := j.gateway.Refine(ctx, *ev.Payload.IdeaID, ev.Payload.Notes, ev.Payload.Stage)
	if errors.Is(err, db.ErrInvalidTransition) {
		log.Printf("admin: refine trigger is stale for idea %s, skipping: %v", ev.Payload.IdeaID, err)
		return nil
	}
	return err
}
