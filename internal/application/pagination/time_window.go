package pagination

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/facilitator-indexer/internal/infrastructure/provider"
)

// TimeWindow slices [since, now) into consecutive windows and issues exactly
// one query per window, oldest first. A window that fills a whole page may be
// truncated; it is reported, never re-queried.
type TimeWindow struct {
	Window time.Duration
	Logger *zap.Logger
}

var _ Paginator = (*TimeWindow)(nil)

// Windows returns the half-open windows covering [since, now)
func (tw *TimeWindow) Windows(since, now time.Time) []provider.TimeRange {
	if tw.Window <= 0 || !since.Before(now) {
		return nil
	}

	var out []provider.TimeRange
	for start := since; start.Before(now); start = start.Add(tw.Window) {
		end := start.Add(tw.Window)
		if end.After(now) {
			end = now
		}
		out = append(out, provider.TimeRange{Start: start, End: end})
	}
	return out
}

func (tw *TimeWindow) Paginate(ctx context.Context, fetcher PageFetcher, since, now time.Time, pageSize int, sink Sink) (Result, error) {
	var res Result
	if pageSize <= 0 {
		return res, fmt.Errorf("page size must be positive, got %d", pageSize)
	}
	if tw.Window <= 0 {
		return res, fmt.Errorf("window must be positive, got %s", tw.Window)
	}

	logger := tw.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, w := range tw.Windows(since, now) {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		page, err := fetcher.FetchPage(ctx, w, 0, pageSize)
		if err != nil {
			return res, fmt.Errorf("failed to fetch window %s - %s: %w",
				w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339), err)
		}

		if len(page) >= pageSize {
			res.SaturatedWindows = append(res.SaturatedWindows, w)
			logger.Warn("Window saturated, results may be truncated",
				zap.Time("window_start", w.Start),
				zap.Time("window_end", w.End),
				zap.Int("count", len(page)),
				zap.Int("page_size", pageSize),
			)
		}

		if err := res.collect(ctx, page, sink); err != nil {
			return res, fmt.Errorf("failed to store window %s - %s: %w",
				w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339), err)
		}
	}
	return res, nil
}
