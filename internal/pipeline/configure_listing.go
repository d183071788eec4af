package pipeline

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/errgroup"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/events"
	"github.com/camila/ideaforge/internal/llm"
	"github.com/camila/ideaforge/internal/prompts"
	"github.com/camila/ideaforge/internal/schemas"
	"github.com/camila/ideaforge/internal/types"
)

// ConfigureListingJob writes storefront listing copy for a configured
// product. The top option fills the idea's title, description and tags.
type ConfigureListingJob struct {
	deps Deps
}

func NewConfigureListingJob(deps Deps) *ConfigureListingJob {
	return &ConfigureListingJob{deps: deps}
}

func (j *ConfigureListingJob) Name() string { return "configure-listing" }
func (j *ConfigureListingJob) Retries() int { return 3 }
func (j *ConfigureListingJob) Manual() bool { return true }

func (j *ConfigureListingJob) Execute(ctx context.Context, ev events.Event) error {
	d := j.deps
	idea, redo, err := d.loadForStage(ctx, j.Name(), ev, types.StageListing)
	if err != nil || idea == nil {
		return err
	}

	// Guidance, bucket prompt and brand voice are independent reads.
	var (
		guidance     string
		bucketPrompt string
		brand        *types.BrandConfig
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var gerr error
		guidance, gerr = d.guidanceFor(gCtx, idea, types.StageListing, redo)
		return gerr
	})
	g.Go(func() error {
		var gerr error
		bucketPrompt, gerr = d.bucketPromptFor(gCtx, idea, types.StageListing)
		return gerr
	})
	g.Go(func() error {
		var gerr error
		brand, gerr = d.brandVoice(gCtx)
		return gerr
	})
	if err := g.Wait(); err != nil {
		return err
	}

	prompt := prompts.Format(prompts.MustGet("listing.json", "write-listings"), map[string]string{
		"BrandVoice":   brand.Voice,
		"BucketPrompt": bucketPrompt,
		"Guidance":     guidance,
		"ApparelType":  idea.ApparelType,
		"Phrase":       idea.Phrase,
		"Explanation":  idea.PhraseExplanation,
	})

	raw, err := d.Text.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return err
	}
	clean := []byte(llm.CleanJSONBlock(raw))
	if err := schemas.Validate(schemas.ListingOptions, clean); err != nil {
		return &JobError{Job: j.Name(), Message: "listing options failed validation", Cause: err}
	}
	var out struct {
		Options []types.ListingOption `json:"options"`
	}
	if err := json.Unmarshal(clean, &out); err != nil {
		return &JobError{Job: j.Name(), Message: "failed to decode listing options", Cause: err}
	}
	if len(out.Options) == 0 {
		return &JobError{Job: j.Name(), Message: "model returned no listing options"}
	}
	for i := range out.Options {
		if err := out.Options[i].Validate(); err != nil {
			return &JobError{Job: j.Name(), Message: "listing option failed validation", Cause: err}
		}
	}

	listing := types.StageListing
	updated, err := d.completeStage(ctx, idea, db.IdeaPatch{
		Stage:              &listing,
		ProductTitle:       &out.Options[0].Title,
		ProductDescription: &out.Options[0].Description,
		ProductTags:        out.Options[0].Tags,
		ListingOptions:     out.Options,
	}, redo)
	if err != nil {
		return err
	}
	return d.Emitter.Emit(ctx, events.TopicListingConfigured, events.Payload{IdeaID: &updated.ID})
}
