package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/camila/ideaforge/internal/types"
)

const categoryColumns = `id, name, description, target_count, published_count, created_at`

func scanCategory(row rowScanner) (*types.Category, error) {
	var c types.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.TargetCount, &c.PublishedCount, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCategory inserts a category, updating its target on name conflict.
func (db *DB) CreateCategory(ctx context.Context, name, description string, targetCount int) (*types.Category, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO categories (name, description, target_count)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET description = $2, target_count = $3
		 RETURNING `+categoryColumns,
		name, description, targetCount,
	)
	c, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}

// GetCategory retrieves a category by id. Returns ErrNotFound for unknown ids.
func (db *DB) GetCategory(ctx context.Context, id uuid.UUID) (*types.Category, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// ListCategories retrieves all categories ordered by need gap, widest first.
func (db *DB) ListCategories(ctx context.Context) ([]*types.Category, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+categoryColumns+` FROM categories
		 ORDER BY (target_count - published_count) DESC, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*types.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, nil
}

// HighestNeedCategory returns the category with the largest published-count
// gap, or ErrNotFound when no categories exist.
func (db *DB) HighestNeedCategory(ctx context.Context) (*types.Category, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories
		 ORDER BY (target_count - published_count) DESC, name
		 LIMIT 1`,
	)
	c, err := scanCategory(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no categories: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get highest-need category: %w", err)
	}
	return c, nil
}

// RecalculatePublishedCounts refreshes every category's published count from
// the ideas that reached the terminal published state.
func (db *DB) RecalculatePublishedCounts(ctx context.Context) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE categories c SET published_count = (
		     SELECT COUNT(*) FROM ideas i
		     WHERE i.category_id = c.id AND i.stage = 'publish' AND i.status = 'approved'
		 )`,
	)
	if err != nil {
		return fmt.Errorf("failed to recalculate published counts: %w", err)
	}
	return nil
}

// UpsertBrandConfig stores the brand voice configuration under a name.
func (db *DB) UpsertBrandConfig(ctx context.Context, cfg types.BrandConfig) (*types.BrandConfig, error) {
	exclusions, err := json.Marshal(cfg.Exclusions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal exclusions: %w", err)
	}

	var out types.BrandConfig
	var exclusionsJSON []byte
	err = db.pool.QueryRow(ctx,
		`INSERT INTO brand_configs (name, voice, audience, exclusions)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO UPDATE SET voice = $2, audience = $3, exclusions = $4, updated_at = NOW()
		 RETURNING id, name, voice, audience, exclusions, updated_at`,
		cfg.Name, cfg.Voice, cfg.Audience, exclusions,
	).Scan(&out.ID, &out.Name, &out.Voice, &out.Audience, &exclusionsJSON, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert brand config: %w", err)
	}
	_ = json.Unmarshal(exclusionsJSON, &out.Exclusions)
	return &out, nil
}

// GetBrandConfig returns the most recently updated brand configuration, or
// ErrNotFound when none has been seeded.
func (db *DB) GetBrandConfig(ctx context.Context) (*types.BrandConfig, error) {
	var out types.BrandConfig
	var exclusionsJSON []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, voice, audience, exclusions, updated_at
		 FROM brand_configs
		 ORDER BY updated_at DESC
		 LIMIT 1`,
	).Scan(&out.ID, &out.Name, &out.Voice, &out.Audience, &exclusionsJSON, &out.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no brand config: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get brand config: %w", err)
	}
	_ = json.Unmarshal(exclusionsJSON, &out.Exclusions)
	return &out, nil
}
