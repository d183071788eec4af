package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/events"
	"github.com/camila/ideaforge/internal/llm"
	"github.com/camila/ideaforge/internal/prompts"
	"github.com/camila/ideaforge/internal/schemas"
	"github.com/camila/ideaforge/internal/types"
)

const defaultBatchSize = 5

// GenerateIdeasJob invents a batch of phrase ideas, or regenerates a single
// idea's phrase when the trigger names one.
type GenerateIdeasJob struct {
	deps Deps
}

func NewGenerateIdeasJob(deps Deps) *GenerateIdeasJob {
	return &GenerateIdeasJob{deps: deps}
}

func (j *GenerateIdeasJob) Name() string { return "generate-ideas" }
func (j *GenerateIdeasJob) Retries() int { return 3 }
func (j *GenerateIdeasJob) Manual() bool { return true }

func (j *GenerateIdeasJob) Execute(ctx context.Context, ev events.Event) error {
	if ev.Payload.IdeaID != nil {
		return j.regenerate(ctx, ev)
	}
	return j.generateBatch(ctx, ev)
}

// generateBatch creates a fresh batch of ideas at stage=phrase. The target
// category is explicit on the trigger or falls back to the category with the
// largest need gap, and every existing phrase in the category becomes an
// exclusion so the model cannot repeat itself.
func (j *GenerateIdeasJob) generateBatch(ctx context.Context, ev events.Event) error {
	d := j.deps

	var category *types.Category
	var err error
	if ev.Payload.CategoryID != nil {
		category, err = d.Store.GetCategory(ctx, *ev.Payload.CategoryID)
		if err != nil {
			return err
		}
	} else {
		category, err = d.Store.HighestNeedCategory(ctx)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return err
		}
	}

	bucket, err := d.Buckets.Assign(ctx, types.StagePhrase, ev.Payload.BucketID)
	if err != nil {
		return err
	}

	var exclusions []string
	categoryName := "general"
	if category != nil {
		categoryName = category.Name
		exclusions, err = d.Store.ListPhrasesForCategory(ctx, category.ID)
		if err != nil {
			return err
		}
	}

	brand, err := d.brandVoice(ctx)
	if err != nil {
		return err
	}

	count := d.BatchSize
	if count <= 0 {
		count = defaultBatchSize
	}

	// A retried trigger resumes where the failed attempt stopped: ideas
	// remember the event that created them, so only the shortfall is
	// generated and one trigger never yields more than count ideas.
	created, err := d.Store.ListIdeasForEvent(ctx, ev.ID)
	if err != nil {
		return err
	}
	if category == nil {
		for _, idea := range created {
			exclusions = append(exclusions, idea.Phrase)
		}
	}

	if remaining := count - len(created); remaining > 0 {
		exclusionText := "(none yet)"
		allExclusions := append(exclusions, brand.Exclusions...)
		if len(allExclusions) > 0 {
			exclusionText = "- " + strings.Join(allExclusions, "\n- ")
		}

		prompt := prompts.Format(prompts.MustGet("phrase.json", "generate-phrases"), map[string]string{
			"BrandVoice":   brand.Voice,
			"BucketPrompt": bucket.Prompt,
			"Category":     categoryName,
			"Count":        fmt.Sprintf("%d", remaining),
			"Exclusions":   exclusionText,
		})

		batch, err := j.generatePhrases(ctx, prompt)
		if err != nil {
			return err
		}
		if len(batch) > remaining {
			batch = batch[:remaining]
		}

		input := db.NewIdea{PhraseBucketID: bucket.ID, SourceEventID: ev.ID}
		if category != nil {
			input.CategoryID = &category.ID
		}
		for _, suggestion := range batch {
			input.Phrase = suggestion.Phrase
			input.PhraseExplanation = suggestion.Explanation
			idea, err := d.Store.CreateIdea(ctx, input)
			if err != nil {
				return err
			}
			created = append(created, idea)
		}
	}

	// Announce every idea of the batch, including ones persisted by an
	// earlier attempt whose announcement may not have gone out. Delivery is
	// at-least-once.
	for _, idea := range created {
		if err := d.Emitter.Emit(ctx, events.TopicIdeaCreated, events.Payload{IdeaID: &idea.ID, CategoryID: idea.CategoryID}); err != nil {
			return err
		}
	}
	return nil
}

// regenerate rewrites one idea's phrase in response to operator notes. Only
// the phrase-stage artifacts change; the idea stays at stage=phrase.
func (j *GenerateIdeasJob) regenerate(ctx context.Context, ev events.Event) error {
	d := j.deps
	idea, err := d.Store.GetIdea(ctx, *ev.Payload.IdeaID)
	if err != nil {
		return err
	}
	if idea.Stage != types.StagePhrase || idea.Status != types.StatusRefining {
		return nil
	}

	notes, _, err := d.Store.LatestRevisionNotes(ctx, idea.ID, types.StagePhrase)
	if err != nil {
		return err
	}
	bucketPrompt, err := d.bucketPromptFor(ctx, idea, types.StagePhrase)
	if err != nil {
		return err
	}
	brand, err := d.brandVoice(ctx)
	if err != nil {
		return err
	}

	prompt := prompts.Format(prompts.MustGet("phrase.json", "refine-phrase"), map[string]string{
		"BrandVoice":   brand.Voice,
		"BucketPrompt": bucketPrompt,
		"Phrase":       idea.Phrase,
		"Notes":        notes,
	})

	batch, err := j.generatePhrases(ctx, prompt)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return &JobError{Job: j.Name(), Message: "model returned no replacement phrase"}
	}

	_, err = d.completeStage(ctx, idea, db.IdeaPatch{
		Phrase:            &batch[0].Phrase,
		PhraseExplanation: &batch[0].Explanation,
	}, true)
	return err
}

func (j *GenerateIdeasJob) generatePhrases(ctx context.Context, prompt string) ([]types.PhraseSuggestion, error) {
	raw, err := j.deps.Text.GenerateJSON(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return nil, err
	}
	clean := []byte(llm.CleanJSONBlock(raw))
	if err := schemas.Validate(schemas.PhraseBatch, clean); err != nil {
		return nil, &JobError{Job: j.Name(), Message: "phrase batch failed validation", Cause: err}
	}
	var out struct {
		Phrases []types.PhraseSuggestion `json:"phrases"`
	}
	if err := json.Unmarshal(clean, &out); err != nil {
		return nil, &JobError{Job: j.Name(), Message: "failed to decode phrase batch", Cause: err}
	}
	for i := range out.Phrases {
		if err := out.Phrases[i].Validate(); err != nil {
			return nil, &JobError{Job: j.Name(), Message: "phrase suggestion failed validation", Cause: err}
		}
	}
	return out.Phrases, nil
}
