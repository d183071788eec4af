// Package pipeline implements the stage job executors and the retry/recovery
// harness that runs them. Executors are triggered by events, guard their
// stage/status preconditions, call the generation and fulfillment ports, and
// persist artifacts through optimistic updates.
package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/camila/ideaforge/internal/buckets"
	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/events"
	"github.com/camila/ideaforge/internal/llm"
	"github.com/camila/ideaforge/internal/printful"
	"github.com/camila/ideaforge/internal/shopify"
	"github.com/camila/ideaforge/internal/types"
)

// Store is the persistence surface jobs depend on. *db.DB satisfies it.
type Store interface {
	GetIdea(ctx context.Context, id uuid.UUID) (*types.Idea, error)
	CreateIdea(ctx context.Context, input db.NewIdea) (*types.Idea, error)
	UpdateIdea(ctx context.Context, id uuid.UUID, patch db.IdeaPatch, expected *types.Status) (*types.Idea, error)
	UpdateIdeaWithRevision(ctx context.Context, id uuid.UUID, patch db.IdeaPatch, expected *types.Status, entry db.NewRevision) (*types.Idea, error)
	ListPhrasesForCategory(ctx context.Context, categoryID uuid.UUID) ([]string, error)
	ListIdeasForEvent(ctx context.Context, eventID string) ([]*types.Idea, error)

	ForwardGuidanceFor(ctx context.Context, ideaID uuid.UUID, fromStage types.Stage) (string, bool, error)
	LatestRevisionNotes(ctx context.Context, ideaID uuid.UUID, stage types.Stage) (string, bool, error)

	GetBucket(ctx context.Context, id uuid.UUID) (*types.Bucket, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*types.Category, error)
	HighestNeedCategory(ctx context.Context) (*types.Category, error)
	ListCategories(ctx context.Context) ([]*types.Category, error)
	RecalculatePublishedCounts(ctx context.Context) error
	GetBrandConfig(ctx context.Context) (*types.BrandConfig, error)
}

// RunStore records job executions for idempotency and audit.
type RunStore interface {
	BeginJobRun(ctx context.Context, job, eventID string, ideaID *uuid.UUID) (*db.JobRun, bool, error)
	CompleteJobRun(ctx context.Context, runID uuid.UUID, status string, attempts int, errMsg *string) error
}

// TextGenerator produces structured JSON from a prompt.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
}

// ImageGenerator produces a batch of design concepts for a prompt.
type ImageGenerator interface {
	GenerateConcepts(ctx context.Context, prompt string) ([]types.DesignConcept, error)
}

// Fulfillment is the print-provider surface used to materialize a product.
type Fulfillment interface {
	UploadFile(ctx context.Context, fileURL string) (*printful.FileUpload, error)
	WaitForFile(ctx context.Context, fileID int64) error
	CreateSyncProduct(ctx context.Context, params printful.SyncProductParams) (*printful.SyncProduct, error)
	WaitForSync(ctx context.Context, productID int64) (string, error)
}

// Storefront is the listing surface on the selling channel.
type Storefront interface {
	UpdateProduct(ctx context.Context, productID string, meta shopify.ProductMetadata) error
	AddToCollection(ctx context.Context, productID, collectionID string) error
	GetProductURL(ctx context.Context, productID string) (string, error)
}

// Emitter publishes follow-on events. The dispatcher satisfies it.
type Emitter interface {
	Emit(ctx context.Context, topic string, payload events.Payload) error
}

// Deps bundles the shared dependencies injected into every executor.
type Deps struct {
	Store       Store
	Text        TextGenerator
	Images      ImageGenerator
	Fulfillment Fulfillment
	Storefront  Storefront
	Buckets     *buckets.Registry
	Emitter     Emitter

	// BatchSize is how many ideas a phrase generation run creates.
	BatchSize int
	// CollectionID, when set, is the storefront collection published
	// products are added to.
	CollectionID string
}
