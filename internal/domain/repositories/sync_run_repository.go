package repositories

import (
	"context"

	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
)

// SyncRunRepository defines the interface for sync run bookkeeping
type SyncRunRepository interface {
	// Create records a run as started
	Create(ctx context.Context, run *entities.SyncRun) error

	// Finish stores the final status and counters of a run
	Finish(ctx context.Context, run *entities.SyncRun) error

	// ListRecent returns the latest runs, newest first. An empty jobID
	// returns runs of every job.
	ListRecent(ctx context.Context, jobID string, limit int) ([]entities.SyncRun, error)
}
