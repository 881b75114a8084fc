// Package pagination drives a page fetcher until a [since, now) range is
// exhaustively covered.
package pagination

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/facilitator-indexer/internal/config"
	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
	"github.com/bimakw/facilitator-indexer/internal/infrastructure/provider"
)

// PageFetcher fetches one page of transfers in r, skipping offset rows
type PageFetcher interface {
	FetchPage(ctx context.Context, r provider.TimeRange, offset, pageSize int) ([]entities.TransferEvent, error)
}

// FetcherFunc adapts a function to PageFetcher
type FetcherFunc func(ctx context.Context, r provider.TimeRange, offset, pageSize int) ([]entities.TransferEvent, error)

func (f FetcherFunc) FetchPage(ctx context.Context, r provider.TimeRange, offset, pageSize int) ([]entities.TransferEvent, error) {
	return f(ctx, r, offset, pageSize)
}

// Sink receives every fetched page. A nil Sink makes the paginator
// accumulate pages into Result.Transfers instead.
type Sink func(ctx context.Context, page []entities.TransferEvent) error

// Result summarises one pagination pass
type Result struct {
	Transfers        []entities.TransferEvent
	Fetched          int
	Requests         int
	SaturatedWindows []provider.TimeRange
}

// Paginator walks [since, now) using one strategy
type Paginator interface {
	Paginate(ctx context.Context, fetcher PageFetcher, since, now time.Time, pageSize int, sink Sink) (Result, error)
}

// New returns the paginator for a job strategy
func New(strategy config.PaginationStrategy, window time.Duration, logger *zap.Logger) (Paginator, error) {
	switch strategy {
	case config.StrategyOffset:
		return Offset{}, nil
	case config.StrategyTimeWindow:
		if window <= 0 {
			window = config.DefaultWindow
		}
		return &TimeWindow{Window: window, Logger: logger}, nil
	}
	return nil, fmt.Errorf("unknown pagination strategy %q", strategy)
}

func (r *Result) collect(ctx context.Context, page []entities.TransferEvent, sink Sink) error {
	r.Requests++
	r.Fetched += len(page)
	if len(page) == 0 {
		return nil
	}
	if sink != nil {
		return sink(ctx, page)
	}
	r.Transfers = append(r.Transfers, page...)
	return nil
}
