package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
)

// PaginationStrategy selects how a job walks its [since, now) range
type PaginationStrategy string

const (
	StrategyOffset     PaginationStrategy = "offset"
	StrategyTimeWindow PaginationStrategy = "time_window"
)

// DefaultWindow is the time-window size used when a job does not set one
const DefaultWindow = 3 * 24 * time.Hour

// JobConfig is the static sync configuration of one (chain, provider) pairing
type JobConfig struct {
	ID               string
	Chain            entities.Chain
	Provider         entities.Provider
	Network          string
	Cron             string
	MaxDuration      time.Duration
	Endpoint         string
	Strategy         PaginationStrategy
	PageSize         int
	Window           time.Duration
	FallbackLookback time.Duration
	SyncStartDate    *time.Time
	Enabled          bool
	FacilitatorIDs   []string
}

// JobID builds the conventional job id for a chain/provider pairing
func JobID(chain entities.Chain, provider entities.Provider) string {
	return string(chain) + "-sync-transfers-" + string(provider)
}

// Jobs returns the static job table, with enablement resolved from cfg
func Jobs(cfg *Config) []JobConfig {
	solanaStart := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	jobs := []JobConfig{
		{
			Chain:            entities.ChainBase,
			Provider:         entities.ProviderBitquery,
			Network:          "base",
			Cron:             "*/30 * * * *",
			MaxDuration:      15 * time.Minute,
			Endpoint:         cfg.Bitquery.StreamingURL,
			Strategy:         StrategyOffset,
			PageSize:         10_000,
			FallbackLookback: 180 * 24 * time.Hour,
			Enabled:          cfg.Bitquery.APIKey != "",
		},
		{
			Chain:            entities.ChainPolygon,
			Provider:         entities.ProviderBitquery,
			Network:          "matic",
			Cron:             "*/30 * * * *",
			MaxDuration:      1000 * time.Second,
			Endpoint:         cfg.Bitquery.StreamingURL,
			Strategy:         StrategyOffset,
			PageSize:         10_000,
			FallbackLookback: 180 * 24 * time.Hour,
			Enabled:          cfg.Bitquery.APIKey != "",
		},
		{
			Chain:            entities.ChainSolana,
			Provider:         entities.ProviderBitquery,
			Network:          "solana",
			Cron:             "*/30 * * * *",
			MaxDuration:      300 * time.Second,
			Endpoint:         cfg.Bitquery.LegacyURL,
			Strategy:         StrategyOffset,
			PageSize:         20_000,
			FallbackLookback: 180 * 24 * time.Hour,
			SyncStartDate:    &solanaStart,
			Enabled:          cfg.Bitquery.APIKey != "",
		},
		{
			Chain:            entities.ChainSolana,
			Provider:         entities.ProviderBigQuery,
			Network:          cfg.BigQuery.SolanaDataset,
			Cron:             "0 * * * *",
			MaxDuration:      30 * time.Minute,
			Strategy:         StrategyTimeWindow,
			PageSize:         20_000,
			Window:           DefaultWindow,
			FallbackLookback: 180 * 24 * time.Hour,
			SyncStartDate:    &solanaStart,
			Enabled:          cfg.BigQuery.ProjectID != "",
		},
	}

	disabled := make(map[string]struct{}, len(cfg.Sync.DisabledJobs))
	for _, id := range cfg.Sync.DisabledJobs {
		disabled[id] = struct{}{}
	}

	for i := range jobs {
		jobs[i].ID = JobID(jobs[i].Chain, jobs[i].Provider)
		if _, ok := disabled[jobs[i].ID]; ok {
			jobs[i].Enabled = false
		}
	}
	return jobs
}

// Validate checks a job definition before it is scheduled
func (j JobConfig) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if !j.Chain.Valid() {
		return fmt.Errorf("job %s: unknown chain %q", j.ID, j.Chain)
	}
	if j.PageSize <= 0 {
		return fmt.Errorf("job %s: page size must be positive", j.ID)
	}
	if j.MaxDuration <= 0 {
		return fmt.Errorf("job %s: max duration must be positive", j.ID)
	}
	switch j.Strategy {
	case StrategyOffset:
	case StrategyTimeWindow:
		if j.Window <= 0 {
			return fmt.Errorf("job %s: time_window strategy needs a positive window", j.ID)
		}
	default:
		return fmt.Errorf("job %s: unknown pagination strategy %q", j.ID, j.Strategy)
	}
	if j.SyncStartDate == nil && j.FallbackLookback <= 0 {
		return fmt.Errorf("job %s: either sync start date or fallback lookback is required", j.ID)
	}
	if _, err := cron.ParseStandard(j.Cron); err != nil {
		return fmt.Errorf("job %s: invalid cron %q: %w", j.ID, j.Cron, err)
	}
	return nil
}
