package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/bimakw/facilitator-indexer/internal/infrastructure/provider"
)

// Offset repeats the same [since, now) query with an increasing offset until
// a page comes back shorter than the page size
type Offset struct{}

var _ Paginator = Offset{}

func (Offset) Paginate(ctx context.Context, fetcher PageFetcher, since, now time.Time, pageSize int, sink Sink) (Result, error) {
	var res Result
	if pageSize <= 0 {
		return res, fmt.Errorf("page size must be positive, got %d", pageSize)
	}
	if !since.Before(now) {
		return res, nil
	}

	r := provider.TimeRange{Start: since, End: now}
	for offset := 0; ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		page, err := fetcher.FetchPage(ctx, r, offset, pageSize)
		if err != nil {
			return res, fmt.Errorf("failed to fetch page at offset %d: %w", offset, err)
		}
		if err := res.collect(ctx, page, sink); err != nil {
			return res, fmt.Errorf("failed to store page at offset %d: %w", offset, err)
		}
		if len(page) < pageSize {
			return res, nil
		}
	}
}
