package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/facilitator-indexer/internal/application/services"
)

var runCmd = &cobra.Command{
	Use:   "run [job-id...]",
	Short: "Run jobs once and exit (every enabled job when none is named)",
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ids := args
	if len(ids) == 0 {
		for _, job := range a.jobs {
			if job.Enabled {
				ids = append(ids, job.ID)
			}
		}
	}
	if len(ids) == 0 {
		a.logger.Warn("No enabled jobs to run")
		return nil
	}

	var (
		mu        sync.Mutex
		summaries []*services.RunSummary
	)

	// jobs are independent: one failing job does not cancel the others
	var g errgroup.Group
	g.SetLimit(a.cfg.Sync.WorkerCount)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			summary, err := a.scheduler.RunNow(ctx, id)
			if summary != nil {
				mu.Lock()
				summaries = append(summaries, summary)
				mu.Unlock()
			}
			if err != nil {
				a.logger.Error("Job failed", zap.String("job", id), zap.Error(err))
				return fmt.Errorf("job %s: %w", id, err)
			}
			return nil
		})
	}
	runErr := g.Wait()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(summaries); err != nil {
		return fmt.Errorf("failed to write summaries: %w", err)
	}
	return runErr
}
