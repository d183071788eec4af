package pipeline

import (
	"context"
	"errors"
	"log"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/events"
	"github.com/camila/ideaforge/internal/types"
)

// loadForStage fetches the idea for a stage job and determines the run mode.
// An advance run finds the idea one stage back at status=processing; a redo
// run finds it at the job's own stage at status=refining. Anything else is a
// stale trigger: the returned idea is nil and the caller no-ops.
func (d Deps) loadForStage(ctx context.Context, job string, ev events.Event, jobStage types.Stage) (*types.Idea, bool, error) {
	if ev.Payload.IdeaID == nil {
		return nil, false, &JobError{Job: job, Message: "trigger payload is missing idea_id"}
	}
	idea, err := d.Store.GetIdea(ctx, *ev.Payload.IdeaID)
	if err != nil {
		return nil, false, err
	}
	switch {
	case idea.Stage == jobStage.Prev() && idea.Status == types.StatusProcessing:
		return idea, false, nil
	case idea.Stage == jobStage && idea.Status == types.StatusRefining:
		return idea, true, nil
	default:
		log.Printf("pipeline: %s trigger is stale for idea %s (stage=%s status=%s), skipping",
			job, idea.ID, idea.Stage, idea.Status)
		return nil, false, nil
	}
}

// guidanceFor resolves the operator notes biasing this run. A redo run reads
// the latest revision entry at the job's stage; an advance run reads the
// unconsumed forward entry from the previous stage, if any.
func (d Deps) guidanceFor(ctx context.Context, idea *types.Idea, jobStage types.Stage, redo bool) (string, error) {
	if redo {
		notes, _, err := d.Store.LatestRevisionNotes(ctx, idea.ID, jobStage)
		return notes, err
	}
	notes, _, err := d.Store.ForwardGuidanceFor(ctx, idea.ID, jobStage.Prev())
	return notes, err
}

// bucketPromptFor returns the prompt text of the bucket assigned for the
// stage, or empty when no bucket applies.
func (d Deps) bucketPromptFor(ctx context.Context, idea *types.Idea, stage types.Stage) (string, error) {
	id := idea.BucketIDFor(stage)
	if id == nil {
		return "", nil
	}
	bucket, err := d.Store.GetBucket(ctx, *id)
	if err != nil {
		return "", err
	}
	return bucket.Prompt, nil
}

// brandVoice returns the configured brand voice, or empty when none has
// been seeded yet.
func (d Deps) brandVoice(ctx context.Context) (*types.BrandConfig, error) {
	cfg, err := d.Store.GetBrandConfig(ctx)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return &types.BrandConfig{}, nil
		}
		return nil, err
	}
	return cfg, nil
}

// completeStage persists a stage's artifacts and hands the idea back to the
// operator queue. Advance runs bump the transition counter, consuming any
// forward guidance that biased them; redo runs leave it untouched.
func (d Deps) completeStage(ctx context.Context, idea *types.Idea, patch db.IdeaPatch, redo bool) (*types.Idea, error) {
	pending := types.StatusPending
	patch.Status = &pending
	patch.BumpTransitions = !redo
	expected := idea.Status
	return d.Store.UpdateIdea(ctx, idea.ID, patch, &expected)
}
