package pipeline

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/events"
	"github.com/camila/ideaforge/internal/printful"
	"github.com/camila/ideaforge/internal/types"
)

// CreatePrintfulJob materializes an approved listing at the print provider:
// it uploads the design file, waits for processing, and creates the synced
// product from the idea's selected apparel option. Publishing continues in
// PublishShopifyJob once the provider announces the product.
type CreatePrintfulJob struct {
	deps Deps
}

func NewCreatePrintfulJob(deps Deps) *CreatePrintfulJob {
	return &CreatePrintfulJob{deps: deps}
}

func (j *CreatePrintfulJob) Name() string { return "create-printful-product" }
func (j *CreatePrintfulJob) Retries() int { return 2 }
func (j *CreatePrintfulJob) Manual() bool { return true }

func (j *CreatePrintfulJob) Execute(ctx context.Context, ev events.Event) error {
	d := j.deps
	idea, _, err := d.loadForStage(ctx, j.Name(), ev, types.StagePublish)
	if err != nil || idea == nil {
		return err
	}

	// A retried trigger after a partial run resumes at the announce step
	// instead of creating a second provider product.
	if idea.PrintfulProductID != "" {
		return j.announce(ctx, idea.ID, idea.PrintfulProductID)
	}

	if idea.MockupImageURL == "" {
		return &JobError{Job: j.Name(), Message: "idea has no design file to upload"}
	}
	if len(idea.ProductOptions) == 0 {
		return &JobError{Job: j.Name(), Message: "idea has no product configuration"}
	}
	if idea.ProductTitle == "" {
		return &JobError{Job: j.Name(), Message: "idea has no listing title"}
	}

	upload, err := d.Fulfillment.UploadFile(ctx, idea.MockupImageURL)
	if err != nil {
		return err
	}
	if err := d.Fulfillment.WaitForFile(ctx, upload.FileID); err != nil {
		return err
	}

	product, err := d.Fulfillment.CreateSyncProduct(ctx, printful.SyncProductParams{
		Name:      idea.ProductTitle,
		FileID:    upload.FileID,
		Thumbnail: idea.MockupImageURL,
		Option:    idea.ProductOptions[0],
	})
	if err != nil {
		return err
	}

	productID := strconv.FormatInt(product.ID, 10)
	processing := types.StatusProcessing
	if _, err := d.Store.UpdateIdea(ctx, idea.ID, db.IdeaPatch{PrintfulProductID: &productID}, &processing); err != nil {
		return err
	}
	return j.announce(ctx, idea.ID, productID)
}

func (j *CreatePrintfulJob) announce(ctx context.Context, ideaID uuid.UUID, productID string) error {
	return j.deps.Emitter.Emit(ctx, events.TopicPrintfulCreated, events.Payload{
		IdeaID:            &ideaID,
		PrintfulProductID: productID,
	})
}
