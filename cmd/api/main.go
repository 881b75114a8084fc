package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bimakw/facilitator-indexer/internal/application/services"
	"github.com/bimakw/facilitator-indexer/internal/config"
	"github.com/bimakw/facilitator-indexer/internal/infrastructure/cache"
	"github.com/bimakw/facilitator-indexer/internal/infrastructure/database"
	"github.com/bimakw/facilitator-indexer/internal/logging"
	"github.com/bimakw/facilitator-indexer/internal/presentation/handlers"
	"github.com/bimakw/facilitator-indexer/internal/presentation/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting facilitator-indexer API",
		zap.Int("port", cfg.API.Port),
	)

	facilitators, err := config.LoadFacilitators(cfg.Sync.FacilitatorsFile)
	if err != nil {
		logger.Fatal("Failed to load facilitators", zap.Error(err))
	}

	// Connect to database
	db, err := database.NewPostgresDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Connect to Redis cache (optional)
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewRedisCache(cfg.Redis, cfg.API.CacheTTL, logger)
		if err != nil {
			logger.Warn("Failed to connect to Redis, running without cache", zap.Error(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}

	// Create repositories
	transferRepo := database.NewTransferEventRepo(db.DB())
	runRepo := database.NewSyncRunRepo(db.DB())

	// Create services
	transferService := services.NewTransferService(transferRepo, redisCache, logger)
	facilitatorService := services.NewFacilitatorService(facilitators, transferRepo, redisCache, logger)
	syncRunService := services.NewSyncRunService(runRepo, logger)

	// Create handlers
	transferHandler := handlers.NewTransferHandler(transferService, logger)
	facilitatorHandler := handlers.NewFacilitatorHandler(facilitatorService, logger)
	syncRunHandler := handlers.NewSyncRunHandler(syncRunService, logger)

	var healthOpts []handlers.HealthOption
	if redisCache != nil {
		healthOpts = append(healthOpts, handlers.WithOptionalCheck("cache", redisCache))
	}
	healthHandler := handlers.NewHealthHandler(db, healthOpts...)

	// Setup router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Recoverer)

	// Health endpoints (no rate limiting)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/live", healthHandler.Live)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimiter(cfg.API.RateLimitRPS))
		transferHandler.RegisterRoutes(r)
		facilitatorHandler.RegisterRoutes(r)
		syncRunHandler.RegisterRoutes(r)
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	// Run server in goroutine
	go func() {
		logger.Info("API server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Received shutdown signal, shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}
