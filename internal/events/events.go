// Package events provides the event dispatcher that wires stage job
// executors together. Every idea mutation outside the admin gateway flows
// through events: jobs are triggered by exactly one subscribed handler per
// topic, and chain events announce completed stages.
package events

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/camila/ideaforge/internal/types"
)

// Trigger topics consumed by job executors.
const (
	TopicGenerateIdeas     = "job/generate-ideas"
	TopicCreateDesign      = "job/create-design"
	TopicRefineIdea        = "job/refine-idea"
	TopicConfigureProduct  = "job/configure-product"
	TopicConfigureListing  = "job/configure-listing"
	TopicCreatePrintful    = "job/create-printful-product"
	TopicPublishShopify    = "job/publish-to-shopify"
	TopicAnalyzeCategories = "job/analyze-categories"
)

// Chain topics produced after successful job runs. Only printful.created has
// a subscriber; the others surface completed stages for operator review.
const (
	TopicIdeaCreated       = "idea.created"
	TopicDesignCreated     = "design.created"
	TopicProductConfigured = "product.configured"
	TopicListingConfigured = "listing.configured"
	TopicPrintfulCreated   = "printful.created"
)

// Payload carries the typed fields a topic may need. Unused fields stay
// zero; each handler validates the fields its topic requires.
type Payload struct {
	IdeaID            *uuid.UUID  `json:"idea_id,omitempty"`
	BucketID          *uuid.UUID  `json:"bucket_id,omitempty"`
	CategoryID        *uuid.UUID  `json:"category_id,omitempty"`
	Stage             types.Stage `json:"stage,omitempty"`
	Notes             string      `json:"notes,omitempty"`
	PrintfulProductID string      `json:"printful_product_id,omitempty"`
}

// Event is one delivery on a topic. ID is the idempotency key: handlers
// treat a repeated ID as an already-processed trigger.
type Event struct {
	ID      string    `json:"id"`
	Topic   string    `json:"topic"`
	Payload Payload   `json:"payload"`
	At      time.Time `json:"at"`
}

// NewID returns a fresh event id. ULIDs sort by emission time, which keeps
// run listings readable.
func NewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
