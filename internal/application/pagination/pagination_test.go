package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bimakw/facilitator-indexer/internal/config"
	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
	"github.com/bimakw/facilitator-indexer/internal/infrastructure/provider"
)

type fetchCall struct {
	Range    provider.TimeRange
	Offset   int
	PageSize int
}

// recordingFetcher serves a fixed dataset ordered newest first and records
// every request
type recordingFetcher struct {
	rows   []entities.TransferEvent
	calls  []fetchCall
	failOn int // 1-based call number that fails, 0 never
}

func (f *recordingFetcher) FetchPage(_ context.Context, r provider.TimeRange, offset, pageSize int) ([]entities.TransferEvent, error) {
	f.calls = append(f.calls, fetchCall{Range: r, Offset: offset, PageSize: pageSize})
	if f.failOn == len(f.calls) {
		return nil, errors.New("boom")
	}

	var inRange []entities.TransferEvent
	for _, row := range f.rows {
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
}

var since = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

// rows builds n transfers one minute apart, newest first
func rows(n int) []entities.TransferEvent {
	out := make([]entities.TransferEvent, n)
	for i := 0; i < n; i++ {
		out[i] = entities.TransferEvent{
			TxHash:         fmt.Sprintf("tx-%d", i),
			BlockTimestamp: since.Add(time.Duration(n-i) * time.Minute),
		}
	}
	return out
}

func TestNew(t *testing.T) {
	p, err := New(config.StrategyOffset, 0, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, Offset{}, p)

	p, err = New(config.StrategyTimeWindow, 0, zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, &TimeWindow{}, p)
	assert.Equal(t, config.DefaultWindow, p.(*TimeWindow).Window)

	_, err = New("cursor", 0, zap.NewNop())
	assert.Error(t, err)
}

func TestOffset_TerminatesOnShortPage(t *testing.T) {
	// pageSize=10 and results 10,10,3 -> exactly 3 requests at offsets 0,10,20
	f := &recordingFetcher{rows: rows(23)}
	now := since.Add(24 * time.Hour)

	res, err := Offset{}.Paginate(context.Background(), f, since, now, 10, nil)
	require.NoError(t, err)

	require.Len(t, f.calls, 3)
	for i, c := range f.calls {
		assert.Equal(t, i*10, c.Offset)
		assert.Equal(t, provider.TimeRange{Start: since, End: now}, c.Range)
	}
	assert.Equal(t, 23, res.Fetched)
	assert.Len(t, res.Transfers, 23)
	assert.Equal(t, 3, res.Requests)
}

func TestOffset_ExactMultipleCostsOneEmptyRequest(t *testing.T) {
	f := &recordingFetcher{rows: rows(20)}
	now := since.Add(24 * time.Hour)

	res, err := Offset{}.Paginate(context.Background(), f, since, now, 10, nil)
	require.NoError(t, err)

	require.Len(t, f.calls, 3)
	assert.Equal(t, 20, f.calls[2].Offset)
	assert.Equal(t, 20, res.Fetched)
}

func TestOffset_EmptyRange(t *testing.T) {
	f := &recordingFetcher{rows: rows(5)}

	res, err := Offset{}.Paginate(context.Background(), f, since, since, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, f.calls)
	assert.Empty(t, res.Transfers)

	_, err = Offset{}.Paginate(context.Background(), f, since.Add(time.Hour), since, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, f.calls)
}

func TestOffset_ErrorAbortsWithContext(t *testing.T) {
	f := &recordingFetcher{rows: rows(25), failOn: 2}
	now := since.Add(24 * time.Hour)

	res, err := Offset{}.Paginate(context.Background(), f, since, now, 10, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offset 10")
	assert.Len(t, f.calls, 2)
	assert.Equal(t, 10, res.Fetched)
}

func TestOffset_StreamsToSink(t *testing.T) {
	f := &recordingFetcher{rows: rows(15)}
	now := since.Add(24 * time.Hour)

	var pages []int
	sink := func(_ context.Context, page []entities.TransferEvent) error {
		pages = append(pages, len(page))
		return nil
	}

	res, err := Offset{}.Paginate(context.Background(), f, since, now, 10, sink)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 5}, pages)
	assert.Empty(t, res.Transfers)
	assert.Equal(t, 15, res.Fetched)
}

func TestOffset_SinkErrorAborts(t *testing.T) {
	f := &recordingFetcher{rows: rows(25)}
	now := since.Add(24 * time.Hour)

	sinkErr := errors.New("db down")
	_, err := Offset{}.Paginate(context.Background(), f, since, now, 10, func(context.Context, []entities.TransferEvent) error {
		return sinkErr
	})
	require.ErrorIs(t, err, sinkErr)
	assert.Len(t, f.calls, 1)
}

func TestTimeWindow_Coverage(t *testing.T) {
	tw := &TimeWindow{Window: 3 * 24 * time.Hour, Logger: zap.NewNop()}

	tests := []struct {
		name  string
		span  time.Duration
		count int
	}{
		{"exact multiple", 9 * 24 * time.Hour, 3},
		{"partial last window", 10 * 24 * time.Hour, 4},
		{"shorter than one window", time.Hour, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := since.Add(tt.span)
			windows := tw.Windows(since, now)
			require.Len(t, windows, tt.count)

			assert.Equal(t, since, windows[0].Start)
			assert.Equal(t, now, windows[len(windows)-1].End)
			for i := 1; i < len(windows); i++ {
				// no gaps, no overlaps
				assert.Equal(t, windows[i-1].End, windows[i].Start)
			}
			for _, w := range windows {
				assert.True(t, w.Start.Before(w.End))
				assert.LessOrEqual(t, w.End.Sub(w.Start), tw.Window)
			}
		})
	}

	assert.Empty(t, tw.Windows(since, since))
}

func TestTimeWindow_OneRequestPerWindowOldestFirst(t *testing.T) {
	f := &recordingFetcher{rows: rows(50)}
	tw := &TimeWindow{Window: 10 * time.Minute, Logger: zap.NewNop()}
	now := since.Add(time.Hour)

	res, err := tw.Paginate(context.Background(), f, since, now, 100, nil)
	require.NoError(t, err)

	require.Len(t, f.calls, 6)
	for i, c := range f.calls {
		assert.Equal(t, 0, c.Offset)
		assert.Equal(t, since.Add(time.Duration(i)*10*time.Minute), c.Range.Start)
	}
	assert.Equal(t, 50, res.Fetched)
	assert.Empty(t, res.SaturatedWindows)
}

func TestTimeWindow_SaturationWarnsWithoutError(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := &recordingFetcher{rows: rows(30)}
	tw := &TimeWindow{Window: 24 * time.Hour, Logger: zap.New(core)}
	now := since.Add(24 * time.Hour)

	res, err := tw.Paginate(context.Background(), f, since, now, 10, nil)
	require.NoError(t, err)

	// no further pagination inside the saturated window
	require.Len(t, f.calls, 1)
	assert.Equal(t, 10, res.Fetched)
	require.Len(t, res.SaturatedWindows, 1)
	assert.Equal(t, provider.TimeRange{Start: since, End: now}, res.SaturatedWindows[0])

	entries := logs.FilterMessage("Window saturated, results may be truncated").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(10), entries[0].ContextMap()["count"])
}

func TestTimeWindow_ErrorAbortsRemainingWindows(t *testing.T) {
	f := &recordingFetcher{rows: rows(10), failOn: 2}
	tw := &TimeWindow{Window: time.Hour}
	now := since.Add(5 * time.Hour)

	_, err := tw.Paginate(context.Background(), f, since, now, 10, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window")
	assert.Len(t, f.calls, 2)
}

func TestTimeWindow_CancelledContext(t *testing.T) {
	f := &recordingFetcher{}
	tw := &TimeWindow{Window: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tw.Paginate(ctx, f, since, since.Add(3*time.Hour), 10, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.calls)
}
