package pipeline

import (
	"context"
	"encoding/json"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/events"
	"github.com/camila/ideaforge/internal/llm"
	"github.com/camila/ideaforge/internal/prompts"
	"github.com/camila/ideaforge/internal/schemas"
	"github.com/camila/ideaforge/internal/types"
)

// ConfigureProductJob suggests apparel configurations for an approved
// design. The top suggestion becomes the idea's apparel type; the full
// ranked set is kept for the operator to swap in an alternative.
type ConfigureProductJob struct {
	deps Deps
}

func NewConfigureProductJob(deps Deps) *ConfigureProductJob {
	return &ConfigureProductJob{deps: deps}
}

func (j *ConfigureProductJob) Name() string { return "configure-product" }
func (j *ConfigureProductJob) Retries() int { return 3 }
func (j *ConfigureProductJob) Manual() bool { return true }

func (j *ConfigureProductJob) Execute(ctx context.Context, ev events.Event) error {
	d := j.deps
	idea, redo, err := d.loadForStage(ctx, j.Name(), ev, types.StageProduct)
	if err != nil || idea == nil {
		return err
	}

	guidance, err := d.guidanceFor(ctx, idea, types.StageProduct, redo)
	if err != nil {
		return err
	}
	bucketPrompt, err := d.bucketPromptFor(ctx, idea, types.StageProduct)
	if err != nil {
		return err
	}

	prompt := prompts.Format(prompts.MustGet("product.json", "suggest-products"), map[string]string{
		"Phrase":       idea.Phrase,
		"MockupURL":    idea.MockupImageURL,
		"BucketPrompt": bucketPrompt,
		"Guidance":     guidance,
	})

	raw, err := d.Text.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return err
	}
	clean := []byte(llm.CleanJSONBlock(raw))
	if err := schemas.Validate(schemas.ProductOptions, clean); err != nil {
		return &JobError{Job: j.Name(), Message: "product options failed validation", Cause: err}
	}
	var out struct {
		Options []types.ProductOption `json:"options"`
	}
	if err := json.Unmarshal(clean, &out); err != nil {
		return &JobError{Job: j.Name(), Message: "failed to decode product options", Cause: err}
	}
	if len(out.Options) == 0 {
		return &JobError{Job: j.Name(), Message: "model returned no product options"}
	}
	for i := range out.Options {
		if err := out.Options[i].Validate(); err != nil {
			return &JobError{Job: j.Name(), Message: "product option failed validation", Cause: err}
		}
	}

	product := types.StageProduct
	updated, err := d.completeStage(ctx, idea, db.IdeaPatch{
		Stage:          &product,
		ApparelType:    &out.Options[0].ApparelType,
		ProductOptions: out.Options,
	}, redo)
	if err != nil {
		return err
	}
	return d.Emitter.Emit(ctx, events.TopicProductConfigured, events.Payload{IdeaID: &updated.ID})
}
