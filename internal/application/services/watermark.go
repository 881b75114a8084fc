package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/facilitator-indexer/internal/config"
	"github.com/bimakw/facilitator-indexer/internal/domain"
	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
	"github.com/bimakw/facilitator-indexer/internal/domain/repositories"
)

// WatermarkSource says where a resolved watermark came from
type WatermarkSource string

const (
	WatermarkStored           WatermarkSource = "stored"
	WatermarkFacilitatorStart WatermarkSource = "facilitator_start_date"
	WatermarkJobStart         WatermarkSource = "job_start_date"
	WatermarkFallback         WatermarkSource = "fallback_lookback"
)

// Watermark is the inclusive lower bound of the next fetch
type Watermark struct {
	Since  time.Time
	Source WatermarkSource
}

// WatermarkResolver derives the resume point of a stream from storage
type WatermarkResolver struct {
	transferRepo repositories.TransferEventRepository
	logger       *zap.Logger
}

// NewWatermarkResolver creates a new watermark resolver
func NewWatermarkResolver(transferRepo repositories.TransferEventRepository, logger *zap.Logger) *WatermarkResolver {
	return &WatermarkResolver{
		transferRepo: transferRepo,
		logger:       logger,
	}
}

// Resolve returns the block time of the newest stored transfer of the
// (chain, provider, facilitator) stream. Without one it falls back to the
// facilitator start date, then the job start date, then now minus the job
// lookback. The result never lies after now.
func (r *WatermarkResolver) Resolve(ctx context.Context, job config.JobConfig, fac entities.Facilitator, now time.Time) (Watermark, error) {
	latest, err := r.transferRepo.FindMostRecent(ctx, job.Chain, job.Provider, fac.ID)
	if err != nil {
		return Watermark{}, &domain.StorageError{Op: "find most recent transfer", Err: err}
	}

	var wm Watermark
	switch {
	case latest != nil:
		wm = Watermark{Since: latest.BlockTimestamp, Source: WatermarkStored}
	case fac.SyncStartDate != nil:
		wm = Watermark{Since: *fac.SyncStartDate, Source: WatermarkFacilitatorStart}
	case job.SyncStartDate != nil:
		wm = Watermark{Since: *job.SyncStartDate, Source: WatermarkJobStart}
	default:
		wm = Watermark{Since: now.Add(-job.FallbackLookback), Source: WatermarkFallback}
	}

	wm.Since = wm.Since.UTC()
	if wm.Since.After(now) {
		r.logger.Warn("Watermark is in the future, clamping to now",
			zap.String("facilitator", fac.ID),
			zap.Time("watermark", wm.Since),
			zap.Time("now", now),
		)
		wm.Since = now
	}
	return wm, nil
}
