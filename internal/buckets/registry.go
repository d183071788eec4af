// Package buckets implements bucket assignment for pipeline stages.
package buckets

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/types"
)

// Store is the persistence surface the registry needs.
type Store interface {
	GetBucket(ctx context.Context, id uuid.UUID) (*types.Bucket, error)
	ClaimLeastRecentlyAssigned(ctx context.Context, stage types.Stage) (*types.Bucket, error)
	TouchBucketAssigned(ctx context.Context, id uuid.UUID) error
}

// Registry assigns a bucket to an idea entering a stage. An operator may
// name a bucket explicitly; otherwise the least-recently-assigned active
// bucket for the stage is chosen so creative variety spreads evenly.
type Registry struct {
	store Store
}

// NewRegistry creates a bucket registry over the given store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Assign returns the bucket to use for the given stage. A valid override
// wins; an override that does not name an active bucket of this stage falls
// back to automatic selection.
func (r *Registry) Assign(ctx context.Context, stage types.Stage, override *uuid.UUID) (*types.Bucket, error) {
	if override != nil {
		b, err := r.store.GetBucket(ctx, *override)
		switch {
		case err == nil && b.Stage == stage && b.Active:
			if terr := r.store.TouchBucketAssigned(ctx, b.ID); terr != nil {
				return nil, terr
			}
			return b, nil
		case err != nil && !errors.Is(err, db.ErrNotFound):
			return nil, err
		default:
			log.Printf("[buckets] override %s unusable for stage %s, selecting automatically", *override, stage)
		}
	}

	return r.store.ClaimLeastRecentlyAssigned(ctx, stage)
}
