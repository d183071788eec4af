package buckets

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/types"
)

type fakeStore struct {
	buckets map[uuid.UUID]*types.Bucket
	claimed *types.Bucket
	touched []uuid.UUID
	claims  int
}

func (f *fakeStore) GetBucket(ctx context.Context, id uuid.UUID) (*types.Bucket, error) {
	b, ok := f.buckets[id]
	if !ok {
		return nil, fmt.Errorf("bucket %s: %w", id, db.ErrNotFound)
	}
	return b, nil
}

func (f *fakeStore) ClaimLeastRecentlyAssigned(ctx context.Context, stage types.Stage) (*types.Bucket, error) {
	f.claims++
	if f.claimed == nil {
		return nil, fmt.Errorf("no active buckets for stage %s: %w", stage, db.ErrNotFound)
	}
	return f.claimed, nil
}

func (f *fakeStore) TouchBucketAssigned(ctx context.Context, id uuid.UUID) error {
	f.touched = append(f.touched, id)
	return nil
}

func TestAssignUsesValidOverride(t *testing.T) {
	override := &types.Bucket{ID: uuid.New(), Stage: types.StageDesign, Name: "bold", Active: true}
	store := &fakeStore{buckets: map[uuid.UUID]*types.Bucket{override.ID: override}}
	registry := NewRegistry(store)

	got, err := registry.Assign(context.Background(), types.StageDesign, &override.ID)
	require.NoError(t, err)
	assert.Equal(t, override.ID, got.ID)
	assert.Equal(t, []uuid.UUID{override.ID}, store.touched, "override assignment should update recency")
	assert.Zero(t, store.claims, "no automatic claim when the override is usable")
}

func TestAssignFallsBackWhenOverrideUnusable(t *testing.T) {
	auto := &types.Bucket{ID: uuid.New(), Stage: types.StageDesign, Name: "minimal", Active: true}

	tests := []struct {
		name     string
		override *types.Bucket
	}{
		{"unknown bucket", nil},
		{"wrong stage", &types.Bucket{ID: uuid.New(), Stage: types.StageListing, Active: true}},
		{"inactive bucket", &types.Bucket{ID: uuid.New(), Stage: types.StageDesign, Active: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{buckets: map[uuid.UUID]*types.Bucket{}, claimed: auto}
			overrideID := uuid.New()
			if tt.override != nil {
				store.buckets[tt.override.ID] = tt.override
				overrideID = tt.override.ID
			}
			registry := NewRegistry(store)

			got, err := registry.Assign(context.Background(), types.StageDesign, &overrideID)
			require.NoError(t, err)
			assert.Equal(t, auto.ID, got.ID, "should fall back to automatic selection")
			assert.Equal(t, 1, store.claims)
		})
	}
}

func TestAssignWithoutOverrideClaimsLeastRecent(t *testing.T) {
	auto := &types.Bucket{ID: uuid.New(), Stage: types.StagePhrase, Name: "pun-heavy", Active: true}
	store := &fakeStore{claimed: auto}
	registry := NewRegistry(store)

	got, err := registry.Assign(context.Background(), types.StagePhrase, nil)
	require.NoError(t, err)
	assert.Equal(t, auto.ID, got.ID)
}

func TestAssignFailsWhenNoBucketsExist(t *testing.T) {
	store := &fakeStore{}
	registry := NewRegistry(store)

	_, err := registry.Assign(context.Background(), types.StagePhrase, nil)
	assert.ErrorIs(t, err, db.ErrNotFound)
}
