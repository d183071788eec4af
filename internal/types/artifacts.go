package types

import (
	"github.com/go-playground/validator/v10"
)

// PhraseSuggestion is one generated phrase candidate from the text port.
type PhraseSuggestion struct {
	Phrase      string `json:"phrase" validate:"required"`
	Explanation string `json:"explanation" validate:"required"`
}

// DesignConcept is one generated design variation. The first concept in a
// batch becomes the idea's primary mockup; the full set is kept for
// side-by-side review.
type DesignConcept struct {
	ImageURL string `json:"image_url" validate:"required,url"`
	Seed     int64  `json:"seed"`
}

// PlacementSpec describes where a design is printed on a garment.
type PlacementSpec struct {
	Area     string  `json:"area" validate:"required,oneof=front back left_sleeve right_sleeve"`
	WidthIn  float64 `json:"width_in" validate:"gt=0"`
	OffsetIn float64 `json:"offset_in"`
}

// ProductOption is one generated apparel/variant suggestion.
type ProductOption struct {
	ApparelType string          `json:"apparel_type" validate:"required"`
	Colors      []string        `json:"colors" validate:"min=1"`
	Sizes       []string        `json:"sizes" validate:"min=1"`
	Placements  []PlacementSpec `json:"placements" validate:"min=1,dive"`
	Rationale   string          `json:"rationale,omitempty"`
}

// ListingOption is one generated set of listing copy.
type ListingOption struct {
	Title       string   `json:"title" validate:"required,max=140"`
	Description string   `json:"description" validate:"required"`
	Tags        []string `json:"tags" validate:"min=1"`
}

// Validate validates the PhraseSuggestion using the validator.
func (p *PhraseSuggestion) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// Validate validates the ProductOption using the validator.
func (o *ProductOption) Validate() error {
	validate := validator.New()
	return validate.Struct(o)
}

// Validate validates the ListingOption using the validator.
func (l *ListingOption) Validate() error {
	validate := validator.New()
	return validate.Struct(l)
}
