package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// JobRunStatus constants
const (
	JobRunStatusRunning   = "running"
	JobRunStatusCompleted = "completed"
	JobRunStatusFailed    = "failed"
)

// JobRun records one execution of a stage job, keyed by the triggering
// event id for idempotency.
type JobRun struct {
	ID           uuid.UUID  `json:"id"`
	Job          string     `json:"job"`
	EventID      string     `json:"event_id"`
	IdeaID       *uuid.UUID `json:"idea_id,omitempty"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	DurationMs   *int       `json:"duration_ms,omitempty"`
}

const jobRunColumns = `id, job, event_id, idea_id, status, attempts, error_message, started_at, completed_at, duration_ms`

func scanJobRun(row rowScanner) (*JobRun, error) {
	var r JobRun
	err := row.Scan(&r.ID, &r.Job, &r.EventID, &r.IdeaID, &r.Status, &r.Attempts,
		&r.ErrorMessage, &r.StartedAt, &r.CompletedAt, &r.DurationMs)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// BeginJobRun records the start of a job execution. The event id is unique;
// a duplicate delivery returns ok=false and the job must treat the trigger
// as a no-op.
func (db *DB) BeginJobRun(ctx context.Context, job, eventID string, ideaID *uuid.UUID) (*JobRun, bool, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO job_runs (job, event_id, idea_id, status)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (event_id) DO NOTHING
		 RETURNING `+jobRunColumns,
		job, eventID, ideaID, JobRunStatusRunning,
	)
	run, err := scanJobRun(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil // already processed
		}
		return nil, false, fmt.Errorf("failed to begin job run: %w", err)
	}
	return run, true, nil
}

// CompleteJobRun marks a run finished with the given status and attempt count.
func (db *DB) CompleteJobRun(ctx context.Context, runID uuid.UUID, status string, attempts int, errMsg *string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE job_runs
		 SET status = $1, attempts = $2, error_message = $3, completed_at = NOW(),
		     duration_ms = (EXTRACT(EPOCH FROM (NOW() - started_at)) * 1000)::INT
		 WHERE id = $4`,
		status, attempts, errMsg, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete job run: %w", err)
	}
	return nil
}

// GetJobRun retrieves a run by id. Returns ErrNotFound for unknown ids.
func (db *DB) GetJobRun(ctx context.Context, runID uuid.UUID) (*JobRun, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+jobRunColumns+` FROM job_runs WHERE id = $1`, runID)
	run, err := scanJobRun(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("job run %s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job run: %w", err)
	}
	return run, nil
}

// JobRunFilters holds optional filters for listing job runs
type JobRunFilters struct {
	Job    string
	Status string
	IdeaID uuid.UUID
	Limit  int
}

// ListJobRuns retrieves recent runs, newest first.
func (db *DB) ListJobRuns(ctx context.Context, filters JobRunFilters) ([]*JobRun, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT ` + jobRunColumns + ` FROM job_runs WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Job != "" {
		query += fmt.Sprintf(" AND job = $%d", argNum)
		args = append(args, filters.Job)
		argNum++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filters.Status)
		argNum++
	}
	if filters.IdeaID != uuid.Nil {
		query += fmt.Sprintf(" AND idea_id = $%d", argNum)
		args = append(args, filters.IdeaID)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list job runs: %w", err)
	}
	defer rows.Close()

	var runs []*JobRun
	for rows.Next() {
		run, err := scanJobRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}
