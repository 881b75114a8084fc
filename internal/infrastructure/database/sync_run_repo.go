package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
	"github.com/bimakw/facilitator-indexer/internal/domain/repositories"
)

// Ensure SyncRunRepo implements SyncRunRepository
var _ repositories.SyncRunRepository = (*SyncRunRepo)(nil)

// SyncRunRepo implements SyncRunRepository using PostgreSQL
type SyncRunRepo struct {
	db *sqlx.DB
}

// NewSyncRunRepo creates a new sync run repository
func NewSyncRunRepo(db *sqlx.DB) *SyncRunRepo {
	return &SyncRunRepo{db: db}
}

// Create records a run as started
func (r *SyncRunRepo) Create(ctx context.Context, run *entities.SyncRun) error {
	query := `
		INSERT INTO sync_runs (id, job_id, chain, provider, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.JobID,
		run.Chain,
		run.Provider,
		run.Status,
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sync run: %w", err)
	}

	return nil
}

// Finish stores the final status and counters of a run. A run whose start
// was never recorded is inserted whole.
func (r *SyncRunRepo) Finish(ctx context.Context, run *entities.SyncRun) error {
	query := `
		INSERT INTO sync_runs (id, job_id, chain, provider, status, fetched, saved, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			fetched = EXCLUDED.fetched,
			saved = EXCLUDED.saved,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.JobID,
		run.Chain,
		run.Provider,
		run.Status,
		run.Fetched,
		run.Saved,
		run.Error,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to finish sync run: %w", err)
	}

	return nil
}

// ListRecent returns the latest runs, newest first
func (r *SyncRunRepo) ListRecent(ctx context.Context, jobID string, limit int) ([]entities.SyncRun, error) {
	query := `
		SELECT id, job_id, chain, provider, status, fetched, saved, error, started_at, finished_at
		FROM sync_runs
		WHERE ($1 = '' OR job_id = $1)
		ORDER BY started_at DESC
		LIMIT $2
	`

	var runs []entities.SyncRun
	if err := r.db.SelectContext(ctx, &runs, query, jobID, limit); err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}

	return runs, nil
}
