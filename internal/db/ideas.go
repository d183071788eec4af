package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/camila/ideaforge/internal/types"
)

const ideaColumns = `id, stage, status, category_id,
	phrase_bucket_id, design_bucket_id, product_bucket_id, listing_bucket_id,
	phrase, phrase_explanation,
	mockup_image_url, design_concepts,
	apparel_type, product_options,
	product_title, product_description, product_tags, listing_options,
	printful_product_id, shopify_product_id, shopify_product_url, published_at,
	stage_transitions, source_event_id, created_at, updated_at`

// rowScanner abstracts pgx.Row and pgx.Rows for idea scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanIdea reads one idea row, decoding the JSONB artifact columns.
func scanIdea(row rowScanner) (*types.Idea, error) {
	var idea types.Idea
	var conceptsJSON, optionsJSON, tagsJSON, listingsJSON []byte

	err := row.Scan(
		&idea.ID, &idea.Stage, &idea.Status, &idea.CategoryID,
		&idea.PhraseBucketID, &idea.DesignBucketID, &idea.ProductBucketID, &idea.ListingBucketID,
		&idea.Phrase, &idea.PhraseExplanation,
		&idea.MockupImageURL, &conceptsJSON,
		&idea.ApparelType, &optionsJSON,
		&idea.ProductTitle, &idea.ProductDescription, &tagsJSON, &listingsJSON,
		&idea.PrintfulProductID, &idea.ShopifyProductID, &idea.ShopifyProductURL, &idea.PublishedAt,
		&idea.StageTransitions, &idea.SourceEventID, &idea.CreatedAt, &idea.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if conceptsJSON != nil {
		_ = json.Unmarshal(conceptsJSON, &idea.DesignConcepts)
	}
	if optionsJSON != nil {
		_ = json.Unmarshal(optionsJSON, &idea.ProductOptions)
	}
	if tagsJSON != nil {
		_ = json.Unmarshal(tagsJSON, &idea.ProductTags)
	}
	if listingsJSON != nil {
		_ = json.Unmarshal(listingsJSON, &idea.ListingOptions)
	}

	return &idea, nil
}

// NewIdea holds the fields set when a phrase job creates an idea.
type NewIdea struct {
	CategoryID        *uuid.UUID
	PhraseBucketID    uuid.UUID
	Phrase            string
	PhraseExplanation string
	// SourceEventID ties the idea to the trigger event that created it so a
	// retried batch run can find what it already persisted.
	SourceEventID string
}

// CreateIdea inserts a new idea at stage=phrase, status=pending.
func (db *DB) CreateIdea(ctx context.Context, input NewIdea) (*types.Idea, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO ideas (stage, status, category_id, phrase_bucket_id, phrase, phrase_explanation, source_event_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+ideaColumns,
		types.StagePhrase, types.StatusPending, input.CategoryID, input.PhraseBucketID,
		input.Phrase, input.PhraseExplanation, input.SourceEventID,
	)
	idea, err := scanIdea(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create idea: %w", err)
	}
	return idea, nil
}

// ListIdeasForEvent returns the ideas created under one trigger event,
// oldest first. A retried batch run uses it to see how far the previous
// attempt got before creating more.
func (db *DB) ListIdeasForEvent(ctx context.Context, eventID string) ([]*types.Idea, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+ideaColumns+` FROM ideas WHERE source_event_id = $1 ORDER BY created_at`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ideas for event: %w", err)
	}
	defer rows.Close()

	var ideas []*types.Idea
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan idea: %w", err)
		}
		ideas = append(ideas, idea)
	}
	return ideas, nil
}

// GetIdea retrieves an idea by id. Returns ErrNotFound for unknown ids.
func (db *DB) GetIdea(ctx context.Context, id uuid.UUID) (*types.Idea, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE id = $1`, id)
	idea, err := scanIdea(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("idea %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get idea: %w", err)
	}
	return idea, nil
}

// IdeaFilters holds optional filters for listing ideas
type IdeaFilters struct {
	Stage      types.Stage
	Status     types.Status
	CategoryID uuid.UUID
	Limit      int
}

// ListIdeas retrieves ideas with optional filters, newest first.
func (db *DB) ListIdeas(ctx context.Context, filters IdeaFilters) ([]*types.Idea, error) {
	if filters.Limit == 0 {
		filters.Limit = 100
	}

	query := `SELECT ` + ideaColumns + ` FROM ideas WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Stage != "" {
		query += fmt.Sprintf(" AND stage = $%d", argNum)
		args = append(args, filters.Stage)
		argNum++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filters.Status)
		argNum++
	}
	if filters.CategoryID != uuid.Nil {
		query += fmt.Sprintf(" AND category_id = $%d", argNum)
		args = append(args, filters.CategoryID)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ideas: %w", err)
	}
	defer rows.Close()

	var ideas []*types.Idea
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan idea: %w", err)
		}
		ideas = append(ideas, idea)
	}
	return ideas, nil
}

// ListPhrasesForCategory returns the phrases of all ideas in a category,
// used to build exclusion lists for phrase generation.
func (db *DB) ListPhrasesForCategory(ctx context.Context, categoryID uuid.UUID) ([]string, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT phrase FROM ideas WHERE category_id = $1 AND phrase <> '' ORDER BY created_at`,
		categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list phrases: %w", err)
	}
	defer rows.Close()

	var phrases []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan phrase: %w", err)
		}
		phrases = append(phrases, p)
	}
	return phrases, nil
}

// IdeaPatch describes a partial idea update. Nil fields are untouched, so a
// stage job can only write the artifact fields its stage owns.
type IdeaPatch struct {
	Stage      *types.Stage
	Status     *types.Status
	CategoryID *uuid.UUID

	DesignBucketID  *uuid.UUID
	ProductBucketID *uuid.UUID
	ListingBucketID *uuid.UUID

	Phrase            *string
	PhraseExplanation *string

	MockupImageURL *string
	DesignConcepts []types.DesignConcept

	ApparelType    *string
	ProductOptions []types.ProductOption

	ProductTitle       *string
	ProductDescription *string
	ProductTags        []string
	ListingOptions     []types.ListingOption

	PrintfulProductID *string
	ShopifyProductID  *string
	ShopifyProductURL *string
	PublishedAt       *time.Time

	// BumpTransitions increments the stage-transition counter, consuming any
	// forward guidance logged for the transition that just completed.
	BumpTransitions bool
}

// setClauses renders the patch as SQL SET clauses starting at the given
// placeholder number.
func (p *IdeaPatch) setClauses(argNum int) (clauses []string, args []any, err error) {
	add := func(column string, value any) {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, argNum))
		args = append(args, value)
		argNum++
	}
	addJSON := func(column string, value any) error {
		data, merr := json.Marshal(value)
		if merr != nil {
			return fmt.Errorf("failed to marshal %s: %w", column, merr)
		}
		add(column, data)
		return nil
	}

	if p.Stage != nil {
		add("stage", *p.Stage)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.CategoryID != nil {
		add("category_id", *p.CategoryID)
	}
	if p.DesignBucketID != nil {
		add("design_bucket_id", *p.DesignBucketID)
	}
	if p.ProductBucketID != nil {
		add("product_bucket_id", *p.ProductBucketID)
	}
	if p.ListingBucketID != nil {
		add("listing_bucket_id", *p.ListingBucketID)
	}
	if p.Phrase != nil {
		add("phrase", *p.Phrase)
	}
	if p.PhraseExplanation != nil {
		add("phrase_explanation", *p.PhraseExplanation)
	}
	if p.MockupImageURL != nil {
		add("mockup_image_url", *p.MockupImageURL)
	}
	if p.DesignConcepts != nil {
		if err := addJSON("design_concepts", p.DesignConcepts); err != nil {
			return nil, nil, err
		}
	}
	if p.ApparelType != nil {
		add("apparel_type", *p.ApparelType)
	}
	if p.ProductOptions != nil {
		if err := addJSON("product_options", p.ProductOptions); err != nil {
			return nil, nil, err
		}
	}
	if p.ProductTitle != nil {
		add("product_title", *p.ProductTitle)
	}
	if p.ProductDescription != nil {
		add("product_description", *p.ProductDescription)
	}
	if p.ProductTags != nil {
		if err := addJSON("product_tags", p.ProductTags); err != nil {
			return nil, nil, err
		}
	}
	if p.ListingOptions != nil {
		if err := addJSON("listing_options", p.ListingOptions); err != nil {
			return nil, nil, err
		}
	}
	if p.PrintfulProductID != nil {
		add("printful_product_id", *p.PrintfulProductID)
	}
	if p.ShopifyProductID != nil {
		add("shopify_product_id", *p.ShopifyProductID)
	}
	if p.ShopifyProductURL != nil {
		add("shopify_product_url", *p.ShopifyProductURL)
	}
	if p.PublishedAt != nil {
		add("published_at", *p.PublishedAt)
	}
	if p.BumpTransitions {
		clauses = append(clauses, "stage_transitions = stage_transitions + 1")
	}

	clauses = append(clauses, "updated_at = NOW()")
	return clauses, args, nil
}

// UpdateIdea applies a patch to an idea. When expected is non-nil the update
// only succeeds if the idea's current status matches it; a mismatch returns
// ErrConflict so the caller re-reads and re-decides. Rejected ideas refuse
// every update with ErrInvalidTransition.
func (db *DB) UpdateIdea(ctx context.Context, id uuid.UUID, patch IdeaPatch, expected *types.Status) (*types.Idea, error) {
	return db.updateIdea(ctx, db.pool, id, patch, expected)
}

// querier is satisfied by both the pool and a pgx transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (db *DB) updateIdea(ctx context.Context, q querier, id uuid.UUID, patch IdeaPatch, expected *types.Status) (*types.Idea, error) {
	clauses, args, err := patch.setClauses(2)
	if err != nil {
		return nil, err
	}
	args = append([]any{id}, args...)
	argNum := len(args) + 1

	query := `UPDATE ideas SET `
	for i, c := range clauses {
		if i > 0 {
			query += ", "
		}
		query += c
	}
	query += ` WHERE id = $1 AND status <> 'rejected'`
	if expected != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *expected)
	}
	query += ` RETURNING ` + ideaColumns

	row := q.QueryRow(ctx, query, args...)
	idea, err := scanIdea(row)
	if err == nil {
		return idea, nil
	}
	if err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to update idea: %w", err)
	}

	// No row matched: distinguish missing, rejected and stale-status cases.
	current, gerr := db.GetIdea(ctx, id)
	if gerr != nil {
		return nil, gerr
	}
	if current.Status == types.StatusRejected {
		return nil, fmt.Errorf("idea %s is rejected: %w", id, ErrInvalidTransition)
	}
	return nil, fmt.Errorf("idea %s has status %q: %w", id, current.Status, ErrConflict)
}

// UpdateIdeaWithRevision applies a patch and appends a ledger entry in a
// single transaction: both succeed or both fail.
func (db *DB) UpdateIdeaWithRevision(ctx context.Context, id uuid.UUID, patch IdeaPatch, expected *types.Status, entry NewRevision) (*types.Idea, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idea, err := db.updateIdea(ctx, tx, id, patch, expected)
	if err != nil {
		return nil, err
	}

	if err := appendRevision(ctx, tx, id, idea.StageTransitions, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit idea update: %w", err)
	}
	return idea, nil
}
