package types

import (
	"time"

	"github.com/google/uuid"
)

// Bucket is a named prompt/style variant scoped to one stage, used to
// diversify generated output. Buckets are created by seeding and are
// read-only during pipeline execution.
type Bucket struct {
	ID        uuid.UUID `json:"id"`
	Stage     Stage     `json:"stage"`
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt"`
	SortOrder int       `json:"sort_order"`
	Active    bool      `json:"active"`
	// LastAssignedAt drives the least-recently-used assignment policy.
	LastAssignedAt *time.Time `json:"last_assigned_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Category is a thematic grouping used to prioritize phrase generation.
// TargetCount minus PublishedCount is the category's need gap.
type Category struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	TargetCount    int       `json:"target_count"`
	PublishedCount int       `json:"published_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// Gap returns how many more published ideas the category needs.
func (c *Category) Gap() int {
	return c.TargetCount - c.PublishedCount
}

// BrandConfig holds the brand voice inputs threaded into generation prompts.
// It is read-only configuration owned by the admin surface.
type BrandConfig struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Voice      string    `json:"voice"`
	Audience   string    `json:"audience,omitempty"`
	Exclusions []string  `json:"exclusions,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
