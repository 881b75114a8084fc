package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bimakw/facilitator-indexer/internal/config"
)

var (
	// ErrJobRunning is returned when a job is already running in this
	// process or on another replica
	ErrJobRunning = errors.New("job is already running")

	// ErrUnknownJob is returned for job ids that are not configured
	ErrUnknownJob = errors.New("unknown job")
)

// JobRunner executes a single job invocation
type JobRunner interface {
	Run(ctx context.Context, job config.JobConfig) (*RunSummary, error)
}

// Locker provides a lock shared between replicas
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// JobStatus describes a configured job for the admin surface
type JobStatus struct {
	ID       string     `json:"id"`
	Chain    string     `json:"chain"`
	Provider string     `json:"provider"`
	Cron     string     `json:"cron"`
	Enabled  bool       `json:"enabled"`
	Running  bool       `json:"running"`
	NextRun  *time.Time `json:"next_run,omitempty"`
}

type scheduledJob struct {
	config  config.JobConfig
	mu      sync.Mutex
	running bool
	entry   cron.EntryID
}

// Scheduler triggers sync jobs on their cron schedules. A job never overlaps
// itself, whether triggered by cron or manually.
type Scheduler struct {
	cron   *cron.Cron
	runner JobRunner
	locker Locker
	logger *zap.Logger

	jobs  map[string]*scheduledJob
	order []string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler validates jobs and registers the enabled ones. locker may be
// nil to skip cross-replica locking.
func NewScheduler(runner JobRunner, jobs []config.JobConfig, locker Locker, logger *zap.Logger) (*Scheduler, error) {
	cronLogger := cronZapLogger{logger: logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		runner: runner,
		locker: locker,
		logger: logger,
		jobs:   make(map[string]*scheduledJob, len(jobs)),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	for _, job := range jobs {
		if err := job.Validate(); err != nil {
			return nil, err
		}
		if _, ok := s.jobs[job.ID]; ok {
			return nil, fmt.Errorf("duplicate job id %s", job.ID)
		}

		sj := &scheduledJob{config: job}
		s.jobs[job.ID] = sj
		s.order = append(s.order, job.ID)

		if !job.Enabled {
			logger.Info("Job disabled, not scheduling", zap.String("job", job.ID))
			continue
		}

		id := job.ID
		entry, err := s.cron.AddFunc(job.Cron, func() {
			if _, err := s.RunNow(s.ctx, id); err != nil && !errors.Is(err, ErrJobRunning) {
				s.logger.Error("Scheduled job failed", zap.String("job", id), zap.Error(err))
			}
		})
		if err != nil {
			return nil, fmt.Errorf("failed to schedule job %s: %w", job.ID, err)
		}
		sj.entry = entry
	}

	return s, nil
}

// Start starts the cron loop in the background
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler", zap.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop stops scheduling, cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	cronCtx := s.cron.Stop()
	s.cancel()
	<-cronCtx.Done()
	s.wg.Wait()
}

// RunNow runs a job synchronously. Disabled jobs run as a logged no-op.
func (s *Scheduler) RunNow(ctx context.Context, jobID string) (*RunSummary, error) {
	sj, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	if !sj.tryStart() {
		s.logger.Info("Job already running, skipping", zap.String("job", jobID))
		return nil, ErrJobRunning
	}
	defer sj.finish()

	return s.execute(ctx, sj.config)
}

// Trigger starts a job in the background and returns immediately
func (s *Scheduler) Trigger(jobID string) error {
	sj, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	if !sj.tryStart() {
		return ErrJobRunning
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer sj.finish()
		if _, err := s.execute(s.ctx, sj.config); err != nil {
			s.logger.Error("Triggered job failed", zap.String("job", jobID), zap.Error(err))
		}
	}()
	return nil
}

// Jobs returns every configured job in configuration order
func (s *Scheduler) Jobs() []JobStatus {
	out := make([]JobStatus, 0, len(s.order))
	for _, id := range s.order {
		sj := s.jobs[id]
		status := JobStatus{
			ID:       id,
			Chain:    string(sj.config.Chain),
			Provider: string(sj.config.Provider),
			Cron:     sj.config.Cron,
			Enabled:  sj.config.Enabled,
			Running:  sj.isRunning(),
		}
		if sj.entry != 0 {
			if next := s.cron.Entry(sj.entry).Next; !next.IsZero() {
				status.NextRun = &next
			}
		}
		out = append(out, status)
	}
	return out
}

// execute runs a job under its max duration, holding the replica lock
func (s *Scheduler) execute(parent context.Context, job config.JobConfig) (*RunSummary, error) {
	ctx, cancel := context.WithTimeout(parent, job.MaxDuration)
	defer cancel()

	if s.locker != nil && job.Enabled {
		key := "sync:lock:" + job.ID
		token, ok, err := s.locker.AcquireLock(ctx, key, job.MaxDuration)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}
		if !ok {
			s.logger.Info("Job locked by another replica, skipping", zap.String("job", job.ID))
			return nil, ErrJobRunning
		}
		defer func() {
			releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer releaseCancel()
			if err := s.locker.ReleaseLock(releaseCtx, key, token); err != nil {
				s.logger.Warn("Failed to release job lock", zap.String("job", job.ID), zap.Error(err))
			}
		}()
	}

	return s.runner.Run(ctx, job)
}

func (j *scheduledJob) tryStart() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return false
	}
	j.running = true
	return true
}

func (j *scheduledJob) finish() {
	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

func (j *scheduledJob) isRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// cronZapLogger adapts zap to cron.Logger
type cronZapLogger struct {
	logger *zap.SugaredLogger
}

func (l cronZapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronZapLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
