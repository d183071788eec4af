package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/camila/ideaforge/internal/types"
)

// NewRevision holds the fields for a ledger entry to append.
type NewRevision struct {
	Stage types.Stage
	Type  types.RevisionType
	Notes string
}

// appendRevision inserts a ledger entry within the caller's transaction.
// transitionSeq is the idea's stage-transition count at append time.
func appendRevision(ctx context.Context, q querier, ideaID uuid.UUID, transitionSeq int, entry NewRevision) error {
	var id uuid.UUID
	err := q.QueryRow(ctx,
		`INSERT INTO revision_entries (idea_id, stage, type, notes, transition_seq)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		ideaID, entry.Stage, entry.Type, entry.Notes, transitionSeq,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to append revision entry: %w", err)
	}
	return nil
}

// ListRevisions returns an idea's ledger entries, most recent first.
func (db *DB) ListRevisions(ctx context.Context, ideaID uuid.UUID) ([]types.RevisionEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, idea_id, stage, type, notes, transition_seq, created_at
		 FROM revision_entries
		 WHERE idea_id = $1
		 ORDER BY created_at DESC, id DESC`,
		ideaID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	defer rows.Close()

	var entries []types.RevisionEntry
	for rows.Next() {
		var e types.RevisionEntry
		if err := rows.Scan(&e.ID, &e.IdeaID, &e.Stage, &e.Type, &e.Notes, &e.TransitionSeq, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan revision entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ForwardGuidanceFor returns the notes of the most recent unconsumed forward
// entry logged at fromStage. An entry is unconsumed while the idea's current
// stage-transition count equals the count recorded at append time; the first
// successful run of the following stage bumps the count and consumes it.
// Returns ("", false, nil) when there is no guidance to apply.
func (db *DB) ForwardGuidanceFor(ctx context.Context, ideaID uuid.UUID, fromStage types.Stage) (string, bool, error) {
	var notes string
	err := db.pool.QueryRow(ctx,
		`SELECT r.notes
		 FROM revision_entries r
		 JOIN ideas i ON i.id = r.idea_id
		 WHERE r.idea_id = $1 AND r.stage = $2 AND r.type = $3
		   AND r.transition_seq = i.stage_transitions
		 ORDER BY r.created_at DESC, r.id DESC
		 LIMIT 1`,
		ideaID, fromStage, types.RevisionForward,
	).Scan(&notes)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read forward guidance: %w", err)
	}
	return notes, true, nil
}

// LatestRevisionNotes returns the notes of the most recent revision-type
// entry logged at the given stage, used to bias same-stage regeneration.
func (db *DB) LatestRevisionNotes(ctx context.Context, ideaID uuid.UUID, stage types.Stage) (string, bool, error) {
	var notes string
	err := db.pool.QueryRow(ctx,
		`SELECT notes
		 FROM revision_entries
		 WHERE idea_id = $1 AND stage = $2 AND type = $3
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		ideaID, stage, types.RevisionRedo,
	).Scan(&notes)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read revision notes: %w", err)
	}
	return notes, true, nil
}
