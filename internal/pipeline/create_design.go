package pipeline

import (
	"context"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/events"
	"github.com/camila/ideaforge/internal/prompts"
	"github.com/camila/ideaforge/internal/types"
)

// CreateDesignJob turns an approved phrase into a batch of design concepts.
// The first concept becomes the idea's primary mockup; the full set is kept
// for side-by-side review.
type CreateDesignJob struct {
	deps Deps
}

func NewCreateDesignJob(deps Deps) *CreateDesignJob {
	return &CreateDesignJob{deps: deps}
}

func (j *CreateDesignJob) Name() string { return "create-design" }
func (j *CreateDesignJob) Retries() int { return 3 }
func (j *CreateDesignJob) Manual() bool { return true }

func (j *CreateDesignJob) Execute(ctx context.Context, ev events.Event) error {
	d := j.deps
	idea, redo, err := d.loadForStage(ctx, j.Name(), ev, types.StageDesign)
	if err != nil || idea == nil {
		return err
	}

	guidance, err := d.guidanceFor(ctx, idea, types.StageDesign, redo)
	if err != nil {
		return err
	}
	bucketPrompt, err := d.bucketPromptFor(ctx, idea, types.StageDesign)
	if err != nil {
		return err
	}

	prompt := prompts.Format(prompts.MustGet("design.json", "design-prompt"), map[string]string{
		"Phrase":       idea.Phrase,
		"Explanation":  idea.PhraseExplanation,
		"BucketPrompt": bucketPrompt,
		"Guidance":     guidance,
	})

	concepts, err := d.Images.GenerateConcepts(ctx, prompt)
	if err != nil {
		return err
	}
	if len(concepts) == 0 {
		return &JobError{Job: j.Name(), Message: "image port returned no concepts"}
	}

	design := types.StageDesign
	updated, err := d.completeStage(ctx, idea, db.IdeaPatch{
		Stage:          &design,
		MockupImageURL: &concepts[0].ImageURL,
		DesignConcepts: concepts,
	}, redo)
	if err != nil {
		return err
	}
	return d.Emitter.Emit(ctx, events.TopicDesignCreated, events.Payload{IdeaID: &updated.ID})
}
