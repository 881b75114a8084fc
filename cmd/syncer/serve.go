package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bimakw/facilitator-indexer/internal/presentation/handlers"
	"github.com/bimakw/facilitator-indexer/internal/presentation/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run every enabled job on its cron schedule and serve the admin API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	for _, job := range a.jobs {
		logger.Info("Job configured",
			zap.String("job", job.ID),
			zap.String("cron", job.Cron),
			zap.Bool("enabled", job.Enabled),
			zap.String("strategy", string(job.Strategy)),
		)
	}

	a.scheduler.Start()
	if a.cfg.Sync.RunOnStart {
		for _, job := range a.jobs {
			if !job.Enabled {
				continue
			}
			if err := a.scheduler.Trigger(job.ID); err != nil {
				logger.Warn("Failed to trigger job on start", zap.String("job", job.ID), zap.Error(err))
			}
		}
	}

	healthOpts := []handlers.HealthOption{}
	if a.redis != nil {
		healthOpts = append(healthOpts, handlers.WithOptionalCheck("redis", a.redis))
	}
	healthHandler := handlers.NewHealthHandler(a.db, healthOpts...)
	jobsHandler := handlers.NewJobsHandler(a.scheduler, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/live", healthHandler.Live)
	r.Handle("/metrics", promhttp.Handler())
	jobsHandler.RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", a.cfg.Sync.MetricsPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Admin server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal, stopping syncer...", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("Admin server error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.API.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Admin server shutdown error", zap.Error(err))
	}

	a.scheduler.Stop()
	logger.Info("Syncer stopped")
	return nil
}
