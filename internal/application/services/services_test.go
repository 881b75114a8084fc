package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bimakw/facilitator-indexer/internal/application/pagination"
	"github.com/bimakw/facilitator-indexer/internal/config"
	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
	"github.com/bimakw/facilitator-indexer/internal/infrastructure/provider"
	"github.com/bimakw/facilitator-indexer/internal/testutil"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testJob(opts ...func(*config.JobConfig)) config.JobConfig {
	job := config.JobConfig{
		ID:               "base-sync-transfers-bitquery",
		Chain:            entities.ChainBase,
		Provider:         entities.ProviderBitquery,
		Network:          "base",
		Cron:             "*/30 * * * *",
		MaxDuration:      time.Minute,
		Strategy:         config.StrategyOffset,
		PageSize:         2,
		FallbackLookback: 30 * 24 * time.Hour,
		Enabled:          true,
	}
	for _, opt := range opts {
		opt(&job)
	}
	return job
}

type staticFacilitators []entities.Facilitator

func (s staticFacilitators) ForChain(chain entities.Chain, ids []string) []entities.Facilitator {
	var out []entities.Facilitator
	for _, f := range s {
		if f.Chain == chain && f.Enabled {
			out = append(out, f)
		}
	}
	return out
}

type fetchRecord struct {
	FacilitatorID string
	Range         provider.TimeRange
	Offset        int
}

// fakeIndexer serves per-facilitator transfers newest first, the way a
// provider applies [start, end), ordering, limit and offset
type fakeIndexer struct {
	mu      sync.Mutex
	rows    map[string][]entities.TransferEvent
	calls   []fetchRecord
	failFor map[string]error
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{
		rows:    make(map[string][]entities.TransferEvent),
		failFor: make(map[string]error),
	}
}

func (f *fakeIndexer) factory() FetcherFactory {
	return func(job config.JobConfig, fac entities.Facilitator) (pagination.PageFetcher, error) {
		return pagination.FetcherFunc(func(ctx context.Context, r provider.TimeRange, offset, pageSize int) ([]entities.TransferEvent, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.calls = append(f.calls, fetchRecord{FacilitatorID: fac.ID, Range: r, Offset: offset})

			if err, ok := f.failFor[fac.ID]; ok {
				return nil, err
			}

			var inRange []entities.TransferEvent
			for _, row := range f.rows[fac.ID] {
				if !row.BlockTimestamp.Before(r.Start) && row.BlockTimestamp.Before(r.End) {
					inRange = append(inRange, row)
				}
			}
			if offset >= len(inRange) {
				return []entities.TransferEvent{}, nil
			}
			end := offset + pageSize
			if end > len(inRange) {
				end = len(inRange)
			}
			return inRange[offset:end], nil
		}), nil
	}
}

func (f *fakeIndexer) callsFor(id string) []fetchRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fetchRecord
	for _, c := range f.calls {
		if c.FacilitatorID == id {
			out = append(out, c)
		}
	}
	return out
}

// transfersAt builds one transfer per timestamp, newest first
func transfersAt(facilitatorID string, times ...time.Time) []entities.TransferEvent {
	out := make([]entities.TransferEvent, len(times))
	for i, ts := range times {
		out[len(times)-1-i] = testutil.CreateTestTransferEvent(
			testutil.WithFacilitatorID(facilitatorID),
			testutil.WithTxHash(fmt.Sprintf("0x%s%02d", facilitatorID, i)),
			testutil.WithBlockTimestamp(ts),
		)
	}
	return out
}
