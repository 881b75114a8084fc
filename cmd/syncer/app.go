package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bimakw/facilitator-indexer/internal/application/services"
	"github.com/bimakw/facilitator-indexer/internal/config"
	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
	"github.com/bimakw/facilitator-indexer/internal/infrastructure/cache"
	"github.com/bimakw/facilitator-indexer/internal/infrastructure/database"
	"github.com/bimakw/facilitator-indexer/internal/infrastructure/provider"
	"github.com/bimakw/facilitator-indexer/internal/logging"
)

// app holds the wired dependencies shared by the serve and run commands
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	db           *database.PostgresDB
	redis        *cache.RedisCache
	facilitators *config.Facilitators
	jobs         []config.JobConfig
	scheduler    *services.Scheduler

	closers []func() error
}

// loadBase reads configuration, the logger and the facilitator table
func loadBase() (*config.Config, *zap.Logger, *config.Facilitators, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if isDebug {
		cfg.Log.Level = "debug"
	}
	if facilitatorsPath != "" {
		cfg.Sync.FacilitatorsFile = facilitatorsPath
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}

	facs, err := config.LoadFacilitators(cfg.Sync.FacilitatorsFile)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, facs, nil
}

// newApp connects storage, builds one executor per enabled job and the
// scheduler that drives the sync service
func newApp(ctx context.Context) (*app, error) {
	cfg, logger, facs, err := loadBase()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, facilitators: facs, jobs: config.Jobs(cfg)}

	db, err := database.NewPostgresDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	if err := db.Migrate(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cfg.Redis, cfg.API.CacheTTL, logger)
		if err != nil {
			logger.Warn("Failed to connect to Redis, running without replica lock", zap.Error(err))
		} else {
			a.redis = redisCache
			a.closers = append(a.closers, redisCache.Close)
		}
	}

	executors, err := a.buildExecutors(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	syncService := services.NewSyncService(
		database.NewTransferEventRepo(db.DB()),
		database.NewSyncRunRepo(db.DB()),
		facs,
		services.ProviderFetchers(executors),
		cfg.Sync.StreamPersistence,
		logger,
	)

	if a.redis != nil {
		syncService.SetCacheInvalidator(a.redis)
	}

	var locker services.Locker
	if cfg.Sync.LockEnabled && a.redis != nil {
		locker = a.redis
	}

	scheduler, err := services.NewScheduler(syncService, a.jobs, locker, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.scheduler = scheduler

	return a, nil
}

// buildExecutors creates the executor of every enabled job. Bitquery jobs
// sharing an endpoint share one executor and so one rate limiter.
func (a *app) buildExecutors(ctx context.Context) (map[string]provider.Executor, error) {
	executors := make(map[string]provider.Executor)
	byEndpoint := make(map[string]*provider.HTTPExecutor)

	for _, job := range a.jobs {
		if !job.Enabled {
			continue
		}

		switch job.Provider {
		case entities.ProviderBitquery:
			exec, ok := byEndpoint[job.Endpoint]
			if !ok {
				exec = provider.NewHTTPExecutor(provider.HTTPExecutorConfig{
					Endpoint:       job.Endpoint,
					APIKey:         a.cfg.Bitquery.APIKey,
					Timeout:        a.cfg.Bitquery.RequestTimeout,
					RateLimitRPS:   a.cfg.Bitquery.RateLimitRPS,
					RateLimitBurst: a.cfg.Bitquery.RateLimitBurst,
					Label:          string(job.Provider),
				}, a.logger)
				byEndpoint[job.Endpoint] = exec
			}
			executors[job.ID] = exec

		case entities.ProviderBigQuery:
			exec, err := provider.NewBigQueryExecutor(ctx, a.cfg.BigQuery.ProjectID, a.cfg.BigQuery.CredentialsFile, a.logger)
			if err != nil {
				return nil, fmt.Errorf("job %s: %w", job.ID, err)
			}
			a.closers = append(a.closers, exec.Close)
			executors[job.ID] = exec

		default:
			return nil, fmt.Errorf("job %s: unsupported provider %q", job.ID, job.Provider)
		}
	}

	return executors, nil
}

// Close releases every resource in reverse acquisition order
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}
