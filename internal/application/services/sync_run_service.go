package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
	"github.com/bimakw/facilitator-indexer/internal/domain/repositories"
)

const maxSyncRunsLimit = 200

// SyncRunService exposes sync run history to the read API
type SyncRunService struct {
	runRepo repositories.SyncRunRepository
	logger  *zap.Logger
}

// NewSyncRunService creates a new sync run service
func NewSyncRunService(runRepo repositories.SyncRunRepository, logger *zap.Logger) *SyncRunService {
	return &SyncRunService{runRepo: runRepo, logger: logger}
}

// SyncRunsResponse is the API response for sync run queries
type SyncRunsResponse struct {
	Runs []entities.SyncRun `json:"runs"`
}

// ListRecent returns the latest runs, newest first, optionally for one job
func (s *SyncRunService) ListRecent(ctx context.Context, jobID string, limit int) (*SyncRunsResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > maxSyncRunsLimit {
		limit = maxSyncRunsLimit
	}

	runs, err := s.runRepo.ListRecent(ctx, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	if runs == nil {
		runs = []entities.SyncRun{}
	}
	return &SyncRunsResponse{Runs: runs}, nil
}
