package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bimakw/facilitator-indexer/internal/application/pagination"
	"github.com/bimakw/facilitator-indexer/internal/config"
	"github.com/bimakw/facilitator-indexer/internal/domain"
	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
	"github.com/bimakw/facilitator-indexer/internal/domain/repositories"
	"github.com/bimakw/facilitator-indexer/internal/infrastructure/metrics"
	"github.com/bimakw/facilitator-indexer/internal/infrastructure/provider"
)

// FacilitatorSource lists the facilitators a job should sync
type FacilitatorSource interface {
	ForChain(chain entities.Chain, ids []string) []entities.Facilitator
}

// CacheInvalidator drops cached read API responses matching a key pattern
type CacheInvalidator interface {
	DeletePattern(ctx context.Context, pattern string) error
}

// cachedResponsePatterns are the read API cache keys that depend on stored
// transfers
var cachedResponsePatterns = []string{"transfers:*", "facilitators:*", "facilitator_stats:*"}

// FetcherFactory builds the page fetcher of a job for one facilitator
type FetcherFactory func(job config.JobConfig, fac entities.Facilitator) (pagination.PageFetcher, error)

// ProviderFetchers returns a FetcherFactory that binds the job's provider to
// the executor registered under the job id
func ProviderFetchers(executors map[string]provider.Executor) FetcherFactory {
	return func(job config.JobConfig, fac entities.Facilitator) (pagination.PageFetcher, error) {
		exec, ok := executors[job.ID]
		if !ok {
			return nil, fmt.Errorf("no executor configured for job %s", job.ID)
		}
		p, err := provider.ForChain(job.Chain, job.Provider)
		if err != nil {
			return nil, err
		}
		return provider.NewClient(p, exec, provider.QueryContext{
			Chain:       job.Chain,
			Provider:    job.Provider,
			Network:     job.Network,
			Facilitator: fac,
		}), nil
	}
}

// FacilitatorResult is the outcome of syncing one facilitator
type FacilitatorResult struct {
	FacilitatorID    string          `json:"facilitator_id"`
	Since            time.Time       `json:"since"`
	Until            time.Time       `json:"until"`
	WatermarkSource  WatermarkSource `json:"watermark_source"`
	Fetched          int             `json:"fetched"`
	Saved            int64           `json:"saved"`
	Requests         int             `json:"requests"`
	SaturatedWindows int             `json:"saturated_windows"`
}

// RunSummary aggregates one job invocation
type RunSummary struct {
	RunID        string                 `json:"run_id"`
	JobID        string                 `json:"job_id"`
	Status       entities.SyncRunStatus `json:"status"`
	Facilitators []FacilitatorResult    `json:"facilitators"`
	Fetched      int64                  `json:"fetched"`
	Saved        int64                  `json:"saved"`
	StartedAt    time.Time              `json:"started_at"`
	FinishedAt   time.Time              `json:"finished_at"`
}

// SyncService runs sync jobs: for each facilitator of the job it resolves the
// watermark, paginates [since, now) and persists the results
type SyncService struct {
	transferRepo repositories.TransferEventRepository
	runRepo      repositories.SyncRunRepository
	facilitators FacilitatorSource
	fetchers     FetcherFactory
	watermarks   *WatermarkResolver
	stream       bool
	invalidator  CacheInvalidator
	logger       *zap.Logger
	now          func() time.Time
}

// NewSyncService creates a new sync service. With stream set, every page is
// inserted as soon as it is fetched instead of once per facilitator.
func NewSyncService(
	transferRepo repositories.TransferEventRepository,
	runRepo repositories.SyncRunRepository,
	facilitators FacilitatorSource,
	fetchers FetcherFactory,
	stream bool,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		transferRepo: transferRepo,
		runRepo:      runRepo,
		facilitators: facilitators,
		fetchers:     fetchers,
		watermarks:   NewWatermarkResolver(transferRepo, logger),
		stream:       stream,
		logger:       logger,
		now:          time.Now,
	}
}

// SetCacheInvalidator makes runs that stored new transfers drop the read
// API's cached responses
func (s *SyncService) SetCacheInvalidator(inv CacheInvalidator) {
	s.invalidator = inv
}

// Run executes one invocation of job. The first failing facilitator aborts
// the run; transfers already inserted stay and drive the next watermark.
func (s *SyncService) Run(ctx context.Context, job config.JobConfig) (*RunSummary, error) {
	now := s.now().UTC()
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		JobID:     job.ID,
		StartedAt: now,
	}
	logger := s.logger.With(
		zap.String("job", job.ID),
		zap.String("chain", string(job.Chain)),
		zap.String("provider", string(job.Provider)),
		zap.String("run_id", summary.RunID),
	)

	if !job.Enabled {
		logger.Info("Sync job disabled, skipping")
		summary.Status = entities.SyncRunSkipped
		summary.FinishedAt = now
		metrics.RunsTotal.WithLabelValues(job.ID, string(entities.SyncRunSkipped)).Inc()
		return summary, nil
	}

	paginator, err := pagination.New(job.Strategy, job.Window, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create paginator: %w", err)
	}

	run := &entities.SyncRun{
		ID:        summary.RunID,
		JobID:     job.ID,
		Chain:     job.Chain,
		Provider:  job.Provider,
		Status:    entities.SyncRunRunning,
		StartedAt: now,
	}
	s.recordStart(ctx, run, logger)

	facs := s.facilitators.ForChain(job.Chain, job.FacilitatorIDs)
	logger.Info("Sync job started", zap.Int("facilitators", len(facs)))

	var runErr error
	for _, fac := range facs {
		result, err := s.syncFacilitator(ctx, job, fac, paginator, now, logger)
		summary.Fetched += int64(result.Fetched)
		summary.Saved += result.Saved
		summary.Facilitators = append(summary.Facilitators, result)
		if err != nil {
			logger.Error("Facilitator sync failed",
				zap.String("facilitator", fac.ID),
				zap.Error(err),
			)
			runErr = fmt.Errorf("job %s facilitator %s: %w", job.ID, fac.ID, err)
			break
		}
	}

	summary.FinishedAt = s.now().UTC()
	summary.Status = entities.SyncRunSucceeded
	if runErr != nil {
		summary.Status = entities.SyncRunFailed
	}

	run.Status = summary.Status
	run.Fetched = summary.Fetched
	run.Saved = summary.Saved
	if runErr != nil {
		msg := runErr.Error()
		run.Error = &msg
	}
	finishedAt := summary.FinishedAt
	run.FinishedAt = &finishedAt
	s.recordFinish(run, logger)

	if summary.Saved > 0 {
		s.invalidateCache(logger)
	}

	metrics.RunsTotal.WithLabelValues(job.ID, string(summary.Status)).Inc()
	metrics.RunDuration.WithLabelValues(job.ID).Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())

	if runErr != nil {
		return summary, runErr
	}

	logger.Info("Sync job completed",
		zap.Int64("fetched", summary.Fetched),
		zap.Int64("saved", summary.Saved),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

func (s *SyncService) syncFacilitator(
	ctx context.Context,
	job config.JobConfig,
	fac entities.Facilitator,
	paginator pagination.Paginator,
	now time.Time,
	logger *zap.Logger,
) (FacilitatorResult, error) {
	result := FacilitatorResult{FacilitatorID: fac.ID, Until: now}
	labels := []string{string(job.Chain), string(job.Provider), fac.ID}

	wm, err := s.watermarks.Resolve(ctx, job, fac, now)
	if err != nil {
		return result, err
	}
	result.Since = wm.Since
	result.WatermarkSource = wm.Source
	metrics.WatermarkTimestamp.WithLabelValues(labels...).Set(float64(wm.Since.Unix()))

	logger.Info("Fetching transfers",
		zap.String("facilitator", fac.ID),
		zap.String("address", fac.Address),
		zap.Time("since", wm.Since),
		zap.Time("until", now),
		zap.String("watermark_source", string(wm.Source)),
	)

	fetcher, err := s.fetchers(job, fac)
	if err != nil {
		return result, fmt.Errorf("failed to create fetcher: %w", err)
	}

	var sink pagination.Sink
	if s.stream {
		sink = func(ctx context.Context, page []entities.TransferEvent) error {
			saved, err := s.insert(ctx, page)
			result.Saved += saved
			return err
		}
	}

	res, err := paginator.Paginate(ctx, fetcher, wm.Since, now, job.PageSize, sink)
	result.Fetched = res.Fetched
	result.Requests = res.Requests
	result.SaturatedWindows = len(res.SaturatedWindows)
	metrics.TransfersFetched.WithLabelValues(labels...).Add(float64(res.Fetched))
	metrics.WindowSaturations.WithLabelValues(labels...).Add(float64(len(res.SaturatedWindows)))
	if err != nil {
		metrics.TransfersSaved.WithLabelValues(labels...).Add(float64(result.Saved))
		return result, err
	}

	if !s.stream && len(res.Transfers) > 0 {
		saved, err := s.insert(ctx, res.Transfers)
		result.Saved = saved
		if err != nil {
			return result, err
		}
	}
	metrics.TransfersSaved.WithLabelValues(labels...).Add(float64(result.Saved))

	logger.Info("Facilitator sync completed",
		zap.String("facilitator", fac.ID),
		zap.Int("fetched", result.Fetched),
		zap.Int64("saved", result.Saved),
		zap.Int64("duplicates", int64(result.Fetched)-result.Saved),
		zap.Int("requests", result.Requests),
		zap.Int("saturated_windows", result.SaturatedWindows),
		zap.Time("since", result.Since),
		zap.Time("until", result.Until),
	)
	return result, nil
}

func (s *SyncService) insert(ctx context.Context, transfers []entities.TransferEvent) (int64, error) {
	saved, err := s.transferRepo.InsertMany(ctx, transfers)
	if err != nil {
		var storageErr *domain.StorageError
		if errors.As(err, &storageErr) {
			return saved, err
		}
		return saved, &domain.StorageError{Op: "insert transfers", Err: err}
	}
	return saved, nil
}

// Run bookkeeping never fails a run
func (s *SyncService) recordStart(ctx context.Context, run *entities.SyncRun, logger *zap.Logger) {
	if s.runRepo == nil {
		return
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		logger.Warn("Failed to record sync run start", zap.Error(err))
	}
}

func (s *SyncService) recordFinish(run *entities.SyncRun, logger *zap.Logger) {
	if s.runRepo == nil {
		return
	}
	// the run context may already be past its deadline
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.runRepo.Finish(ctx, run); err != nil {
		logger.Warn("Failed to record sync run result", zap.Error(err))
	}
}

func (s *SyncService) invalidateCache(logger *zap.Logger) {
	if s.invalidator == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, pattern := range cachedResponsePatterns {
		if err := s.invalidator.DeletePattern(ctx, pattern); err != nil {
			logger.Warn("Failed to invalidate cached responses", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}
