// Package admin implements the operator action gateway. Every human
// decision about an idea — advance, reject, refine — enters through here,
// is validated against the idea's current stage and status, recorded on the
// revision ledger where feedback is involved, and then handed to the
// pipeline via events.
package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/camila/ideaforge/internal/buckets"
	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/events"
	"github.com/camila/ideaforge/internal/types"
)

// ActionError represents an operator request the gateway refused before
// touching the idea, such as missing notes on a refine.
type ActionError struct {
	Action  string
	Message string
}

func (e *ActionError) Error() string {
	return "admin: " + e.Action + ": " + e.Message
}

// Store is the persistence surface the gateway depends on. *db.DB
// satisfies it.
type Store interface {
	GetIdea(ctx context.Context, id uuid.UUID) (*types.Idea, error)
	UpdateIdea(ctx context.Context, id uuid.UUID, patch db.IdeaPatch, expected *types.Status) (*types.Idea, error)
	UpdateIdeaWithRevision(ctx context.Context, id uuid.UUID, patch db.IdeaPatch, expected *types.Status, entry db.NewRevision) (*types.Idea, error)
}

// Emitter publishes job trigger events. The dispatcher satisfies it.
type Emitter interface {
	Emit(ctx context.Context, topic string, payload events.Payload) error
}

// Gateway validates operator actions and enqueues the resulting jobs.
type Gateway struct {
	store   Store
	buckets *buckets.Registry
	emitter Emitter
}

func NewGateway(store Store, registry *buckets.Registry, emitter Emitter) *Gateway {
	return &Gateway{store: store, buckets: registry, emitter: emitter}
}

// advanceTopics maps an idea's current stage to the job that produces the
// next stage's artifacts.
var advanceTopics = map[types.Stage]string{
	types.StagePhrase:  events.TopicCreateDesign,
	types.StageDesign:  events.TopicConfigureProduct,
	types.StageProduct: events.TopicConfigureListing,
	types.StageListing: events.TopicCreatePrintful,
}

// redoTopics maps a stage to the job that regenerates that stage's own
// artifacts.
var redoTopics = map[types.Stage]string{
	types.StagePhrase:  events.TopicGenerateIdeas,
	types.StageDesign:  events.TopicCreateDesign,
	types.StageProduct: events.TopicConfigureProduct,
	types.StageListing: events.TopicConfigureListing,
}

// Advance approves the idea's current stage and starts the next one.
// Optional guidance becomes a forward ledger entry consumed by exactly the
// next stage's generation; an optional bucket override replaces the
// least-recently-used assignment for the next stage.
func (g *Gateway) Advance(ctx context.Context, ideaID uuid.UUID, guidance string, bucketOverride *uuid.UUID) (*types.Idea, error) {
	idea, err := g.store.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	topic, ok := advanceTopics[idea.Stage]
	if !ok || idea.Terminal() {
		return nil, fmt.Errorf("advance idea %s at stage %s: %w", ideaID, idea.Stage, db.ErrInvalidTransition)
	}
	if idea.Status != types.StatusPending {
		return nil, fmt.Errorf("advance idea %s with status %s: %w", ideaID, idea.Status, db.ErrInvalidTransition)
	}

	processing := types.StatusProcessing
	patch := db.IdeaPatch{Status: &processing}

	next := idea.Stage.Next()
	if bucketStageField(next) {
		bucket, err := g.buckets.Assign(ctx, next, bucketOverride)
		if err != nil {
			return nil, err
		}
		switch next {
		case types.StageDesign:
			patch.DesignBucketID = &bucket.ID
		case types.StageProduct:
			patch.ProductBucketID = &bucket.ID
		case types.StageListing:
			patch.ListingBucketID = &bucket.ID
		}
	}

	pending := types.StatusPending
	var updated *types.Idea
	if guidance != "" {
		entry := db.NewRevision{Stage: idea.Stage, Type: types.RevisionForward, Notes: guidance}
		updated, err = g.store.UpdateIdeaWithRevision(ctx, ideaID, patch, &pending, entry)
	} else {
		updated, err = g.store.UpdateIdea(ctx, ideaID, patch, &pending)
	}
	if err != nil {
		return nil, err
	}

	if err := g.emitOrRevert(ctx, topic, events.Payload{IdeaID: &updated.ID}, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// emitOrRevert enqueues the triggered job. If the dispatcher refuses the
// event the idea's status is put back to pending so it never sits in a busy
// status with no job in flight, and the operator can simply retry.
func (g *Gateway) emitOrRevert(ctx context.Context, topic string, payload events.Payload, idea *types.Idea) error {
	err := g.emitter.Emit(ctx, topic, payload)
	if err == nil {
		return nil
	}
	pending := types.StatusPending
	expected := idea.Status
	if _, revertErr := g.store.UpdateIdea(ctx, idea.ID, db.IdeaPatch{Status: &pending}, &expected); revertErr != nil {
		return fmt.Errorf("enqueue %s for idea %s failed (%v) and the idea is stuck at %s: %w",
			topic, idea.ID, err, idea.Status, revertErr)
	}
	return fmt.Errorf("enqueue %s for idea %s: %w", topic, idea.ID, err)
}

// Reject moves a pending idea to its absorbing rejected state. Optional
// notes are kept on the ledger for later pattern review.
func (g *Gateway) Reject(ctx context.Context, ideaID uuid.UUID, notes string) (*types.Idea, error) {
	idea, err := g.store.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if idea.Terminal() {
		return nil, fmt.Errorf("reject idea %s at stage %s: %w", ideaID, idea.Stage, db.ErrInvalidTransition)
	}
	if idea.Status != types.StatusPending {
		return nil, fmt.Errorf("reject idea %s with status %s: %w", ideaID, idea.Status, db.ErrInvalidTransition)
	}

	rejected := types.StatusRejected
	pending := types.StatusPending
	patch := db.IdeaPatch{Status: &rejected}
	if notes != "" {
		entry := db.NewRevision{Stage: idea.Stage, Type: types.RevisionRedo, Notes: notes}
		return g.store.UpdateIdeaWithRevision(ctx, ideaID, patch, &pending, entry)
	}
	return g.store.UpdateIdea(ctx, ideaID, patch, &pending)
}

// Refine sends the idea's current stage back for another pass. The notes
// are required; they become the revision entry the regeneration reads.
func (g *Gateway) Refine(ctx context.Context, ideaID uuid.UUID, notes string, stage types.Stage) (*types.Idea, error) {
	if notes == "" {
		return nil, &ActionError{Action: "refine", Message: "notes are required"}
	}
	idea, err := g.store.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if idea.Terminal() {
		return nil, fmt.Errorf("refine idea %s at stage %s: %w", ideaID, idea.Stage, db.ErrInvalidTransition)
	}
	if idea.Status != types.StatusPending {
		return nil, fmt.Errorf("refine idea %s with status %s: %w", ideaID, idea.Status, db.ErrInvalidTransition)
	}
	if stage == "" {
		stage = idea.Stage
	}
	if stage != idea.Stage {
		return nil, fmt.Errorf("refine idea %s at stage %s targeting %s: %w", ideaID, idea.Stage, stage, db.ErrInvalidTransition)
	}
	topic, ok := redoTopics[stage]
	if !ok {
		return nil, fmt.Errorf("refine idea %s at stage %s: %w", ideaID, stage, db.ErrInvalidTransition)
	}

	refining := types.StatusRefining
	pending := types.StatusPending
	entry := db.NewRevision{Stage: stage, Type: types.RevisionRedo, Notes: notes}
	updated, err := g.store.UpdateIdeaWithRevision(ctx, ideaID, db.IdeaPatch{Status: &refining}, &pending, entry)
	if err != nil {
		return nil, err
	}

	if err := g.emitOrRevert(ctx, topic, events.Payload{IdeaID: &updated.ID, Stage: stage, Notes: notes}, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func bucketStageField(stage types.Stage) bool {
	switch stage {
	case types.StageDesign, types.StageProduct, types.StageListing:
		return true
	}
	return false
}
