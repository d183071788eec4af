package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/camila/ideaforge/internal/types"
)

const bucketColumns = `id, stage, name, prompt, sort_order, active, last_assigned_at, created_at`

func scanBucket(row rowScanner) (*types.Bucket, error) {
	var b types.Bucket
	err := row.Scan(&b.ID, &b.Stage, &b.Name, &b.Prompt, &b.SortOrder, &b.Active, &b.LastAssignedAt, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBucket inserts a bucket, updating the prompt and sort order if a
// bucket with the same stage and name already exists (seeding is rerunnable).
func (db *DB) CreateBucket(ctx context.Context, stage types.Stage, name, prompt string, sortOrder int) (*types.Bucket, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO buckets (stage, name, prompt, sort_order)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (stage, name) DO UPDATE SET prompt = $3, sort_order = $4
		 RETURNING `+bucketColumns,
		stage, name, prompt, sortOrder,
	)
	b, err := scanBucket(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return b, nil
}

// GetBucket retrieves a bucket by id. Returns ErrNotFound for unknown ids.
func (db *DB) GetBucket(ctx context.Context, id uuid.UUID) (*types.Bucket, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+bucketColumns+` FROM buckets WHERE id = $1`, id)
	b, err := scanBucket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("bucket %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}
	return b, nil
}

// ListBuckets retrieves the buckets for a stage ordered by sort order.
func (db *DB) ListBuckets(ctx context.Context, stage types.Stage, activeOnly bool) ([]*types.Bucket, error) {
	query := `SELECT ` + bucketColumns + ` FROM buckets WHERE stage = $1`
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY sort_order, name`

	rows, err := db.pool.Query(ctx, query, stage)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	defer rows.Close()

	var buckets []*types.Bucket
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, nil
}

// ClaimLeastRecentlyAssigned atomically picks the active bucket for a stage
// that was assigned longest ago (never-assigned first, ties broken by sort
// order) and stamps it as assigned now.
func (db *DB) ClaimLeastRecentlyAssigned(ctx context.Context, stage types.Stage) (*types.Bucket, error) {
	row := db.pool.QueryRow(ctx,
		`UPDATE buckets SET last_assigned_at = NOW()
		 WHERE id = (
		     SELECT id FROM buckets
		     WHERE stage = $1 AND active
		     ORDER BY last_assigned_at ASC NULLS FIRST, sort_order ASC, name ASC
		     LIMIT 1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+bucketColumns,
		stage,
	)
	b, err := scanBucket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no active buckets for stage %s: %w", stage, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to claim bucket: %w", err)
	}
	return b, nil
}

// TouchBucketAssigned stamps an explicitly chosen bucket so overrides also
// count toward the least-recently-used rotation.
func (db *DB) TouchBucketAssigned(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx, `UPDATE buckets SET last_assigned_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch bucket: %w", err)
	}
	return nil
}
