package types

import (
	"time"

	"github.com/google/uuid"
)

// Idea is the unit of creative work moving through the pipeline. Each stage
// owns a disjoint set of artifact fields; a stage job only ever writes the
// fields for the stage it produces.
type Idea struct {
	ID         uuid.UUID  `json:"id"`
	Stage      Stage      `json:"stage"`
	Status     Status     `json:"status"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`

	// Bucket assignments, set when the idea enters each stage.
	PhraseBucketID  *uuid.UUID `json:"phrase_bucket_id,omitempty"`
	DesignBucketID  *uuid.UUID `json:"design_bucket_id,omitempty"`
	ProductBucketID *uuid.UUID `json:"product_bucket_id,omitempty"`
	ListingBucketID *uuid.UUID `json:"listing_bucket_id,omitempty"`

	// Phrase stage artifacts.
	Phrase            string `json:"phrase,omitempty"`
	PhraseExplanation string `json:"phrase_explanation,omitempty"`

	// Design stage artifacts.
	MockupImageURL string          `json:"mockup_image_url,omitempty"`
	DesignConcepts []DesignConcept `json:"design_concepts,omitempty"`

	// Product stage artifacts.
	ApparelType    string          `json:"apparel_type,omitempty"`
	ProductOptions []ProductOption `json:"product_options,omitempty"`

	// Listing stage artifacts.
	ProductTitle       string          `json:"product_title,omitempty"`
	ProductDescription string          `json:"product_description,omitempty"`
	ProductTags        []string        `json:"product_tags,omitempty"`
	ListingOptions     []ListingOption `json:"listing_options,omitempty"`

	// Publish stage artifacts.
	PrintfulProductID string     `json:"printful_product_id,omitempty"`
	ShopifyProductID  string     `json:"shopify_product_id,omitempty"`
	ShopifyProductURL string     `json:"shopify_product_url,omitempty"`
	PublishedAt       *time.Time `json:"published_at,omitempty"`

	// StageTransitions counts successful stage advances. Revision entries
	// record it at append time so forward guidance can be matched to the
	// single transition that should consume it.
	StageTransitions int `json:"stage_transitions"`

	// SourceEventID is the trigger event the idea was created under. Batch
	// generation uses it to resume a partially persisted batch on retry.
	SourceEventID string `json:"source_event_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the idea is in an absorbing state.
func (i *Idea) Terminal() bool {
	return Terminal(i.Stage, i.Status)
}

// BucketIDFor returns the bucket assigned for the given stage, if any.
// The publish stage has no bucket; it reuses the listing artifacts.
func (i *Idea) BucketIDFor(stage Stage) *uuid.UUID {
	switch stage {
	case StagePhrase:
		return i.PhraseBucketID
	case StageDesign:
		return i.DesignBucketID
	case StageProduct:
		return i.ProductBucketID
	case StageListing:
		return i.ListingBucketID
	}
	return nil
}

// RevisionType distinguishes the two kinds of operator feedback.
type RevisionType string

const (
	// RevisionForward is guidance passed from one stage to bias the next
	// stage's generation.
	RevisionForward RevisionType = "forward"
	// RevisionRedo is a same-stage regeneration request.
	RevisionRedo RevisionType = "revision"
)

// Valid reports whether t is a known revision type.
func (t RevisionType) Valid() bool {
	return t == RevisionForward || t == RevisionRedo
}

// RevisionEntry is one immutable record of operator feedback attached to an
// idea. Entries are append-only and returned most-recent-first.
type RevisionEntry struct {
	ID     uuid.UUID    `json:"id"`
	IdeaID uuid.UUID    `json:"idea_id"`
	Stage  Stage        `json:"stage"`
	Type   RevisionType `json:"type"`
	Notes  string       `json:"notes"`
	// TransitionSeq is the idea's StageTransitions value when the entry was
	// appended. A forward entry is unconsumed while the idea's current count
	// still equals it.
	TransitionSeq int       `json:"transition_seq"`
	CreatedAt     time.Time `json:"created_at"`
}
