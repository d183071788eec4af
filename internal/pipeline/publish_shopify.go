package pipeline

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/events"
	"github.com/camila/ideaforge/internal/shopify"
	"github.com/camila/ideaforge/internal/types"
)

// PublishShopifyJob finishes publishing: it waits for the provider-to-store
// sync, writes the listing copy onto the storefront product, and moves the
// idea to its final published state. It only runs as part of the chain
// started by CreatePrintfulJob.
type PublishShopifyJob struct {
	deps Deps
}

func NewPublishShopifyJob(deps Deps) *PublishShopifyJob {
	return &PublishShopifyJob{deps: deps}
}

func (j *PublishShopifyJob) Name() string { return "publish-to-shopify" }
func (j *PublishShopifyJob) Retries() int { return 2 }
func (j *PublishShopifyJob) Manual() bool { return false }

func (j *PublishShopifyJob) Execute(ctx context.Context, ev events.Event) error {
	d := j.deps
	if ev.Payload.IdeaID == nil {
		return &JobError{Job: j.Name(), Message: "trigger payload is missing idea_id"}
	}
	idea, err := d.Store.GetIdea(ctx, *ev.Payload.IdeaID)
	if err != nil {
		return err
	}
	if idea.Stage != types.StageListing || idea.Status != types.StatusProcessing {
		log.Printf("pipeline: %s trigger is stale for idea %s (stage=%s status=%s), skipping",
			j.Name(), idea.ID, idea.Stage, idea.Status)
		return nil
	}
	if idea.PrintfulProductID == "" {
		return &JobError{Job: j.Name(), Message: "idea has no provider product to publish"}
	}

	providerID, err := strconv.ParseInt(idea.PrintfulProductID, 10, 64)
	if err != nil {
		return &JobError{Job: j.Name(), Message: "malformed provider product id " + idea.PrintfulProductID, Cause: err}
	}

	storeProductID, err := d.Fulfillment.WaitForSync(ctx, providerID)
	if err != nil {
		return err
	}

	err = d.Storefront.UpdateProduct(ctx, storeProductID, shopify.ProductMetadata{
		Title:       idea.ProductTitle,
		Description: idea.ProductDescription,
		Tags:        idea.ProductTags,
	})
	if err != nil {
		return err
	}

	// Collection membership is cosmetic; a failure here should not strand a
	// product that already exists on the storefront.
	if d.CollectionID != "" {
		if err := d.Storefront.AddToCollection(ctx, storeProductID, d.CollectionID); err != nil {
			log.Printf("pipeline: failed to add product %s to collection %s: %v", storeProductID, d.CollectionID, err)
		}
	}

	productURL, err := d.Storefront.GetProductURL(ctx, storeProductID)
	if err != nil {
		return err
	}

	publish := types.StagePublish
	approved := types.StatusApproved
	processing := types.StatusProcessing
	now := time.Now().UTC()
	_, err = d.Store.UpdateIdea(ctx, idea.ID, db.IdeaPatch{
		Stage:             &publish,
		Status:            &approved,
		ShopifyProductID:  &storeProductID,
		ShopifyProductURL: &productURL,
		PublishedAt:       &now,
		BumpTransitions:   true,
	}, &processing)
	if err != nil {
		return err
	}

	if err := d.Store.RecalculatePublishedCounts(ctx); err != nil {
		log.Printf("pipeline: failed to refresh category counts: %v", err)
	}
	log.Printf("pipeline: idea %s published at %s", idea.ID, productURL)
	return nil
}
