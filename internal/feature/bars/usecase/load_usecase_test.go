package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_etl/internal/feature/bars/domain/entity"
)

// stubFetcher is a LatestFetcher returning fixed values.
type stubFetcher struct {
	FetchSinceFunc func(ctx context.Context, symbol string, last time.Time) ([]entity.Bar, time.Time, error)
	Symbols        []string
	Since          []time.Time
}

func (s *stubFetcher) FetchSince(ctx context.Context, symbol string, last time.Time) ([]entity.Bar, time.Time, error) {
	s.Symbols = append(s.Symbols, symbol)
	s.Since = append(s.Since, last)
	return s.FetchSinceFunc(ctx, symbol, last)
}

func TestLoader_Load_EndToEnd(t *testing.T) {
	t.Parallel()

	wm := newMemWatermarks()
	wm.values["IBM"] = mustTime("2025-11-06 23:59:59")
	bars := newMemBars()
	market := &mockMarketRepository{
		FetchMonthFunc: func(ctx context.Context, symbol string, bucket entity.MonthBucket) (entity.Result, error) {
			return success(bar("IBM", "2025-11-07 00:30:00")), nil
		},
	}
	fetcher := newTestIncremental(market, wm, "2025-11-07 12:00:00")
	loader := NewLoader(fetcher, bars, wm, nil)

	rep, err := loader.Load(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Fetched)
	assert.Equal(t, 1, rep.Inserted)
	assert.Equal(t, 0, rep.Skipped)
	assert.True(t, rep.Persisted)
	assert.True(t, rep.Advanced)
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, "2025-11-07 00:30:00", entity.FormatTimestamp(wm.values["IBM"]))

	// Same provider data again: nothing is new, nothing is inserted.
	rep, err = loader.Load(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Fetched)
	assert.Equal(t, 0, rep.Inserted)
	assert.False(t, rep.Advanced)
	assert.Equal(t, 1, bars.InsertCalls)
}

func TestLoader_Load_ReadsWatermarkOnce(t *testing.T) {
	t.Parallel()

	wm := newMemWatermarks()
	wm.values["IBM"] = mustTime("2025-11-06 23:59:59")
	market := &mockMarketRepository{
		FetchMonthFunc: func(ctx context.Context, symbol string, bucket entity.MonthBucket) (entity.Result, error) {
			return success(bar("IBM", "2025-11-07 00:30:00")), nil
		},
	}
	loader := NewLoader(newTestIncremental(market, wm, "2025-11-07 12:00:00"), newMemBars(), wm, nil)

	rep, err := loader.Load(context.Background(), "IBM")

	require.NoError(t, err)
	assert.True(t, rep.Advanced)
	assert.Equal(t, 1, wm.GetCalls)
}

func TestLoader_Load_PassesStoredWatermarkToFetcher(t *testing.T) {
	t.Parallel()

	wm := newMemWatermarks()
	wm.values["IBM"] = mustTime("2025-11-06 23:59:59")
	fetcher := &stubFetcher{
		FetchSinceFunc: func(ctx context.Context, symbol string, last time.Time) ([]entity.Bar, time.Time, error) {
			return nil, last, nil
		},
	}

	_, err := NewLoader(fetcher, newMemBars(), wm, nil).Load(context.Background(), "IBM")

	require.NoError(t, err)
	require.Len(t, fetcher.Since, 1)
	assert.Equal(t, "2025-11-06 23:59:59", entity.FormatTimestamp(fetcher.Since[0]))
	assert.Equal(t, 1, wm.GetCalls)
}

func TestLoader_Load_DatabaseFailureKeepsWatermark(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(b *memBars)
	}{
		{"insert fails", func(b *memBars) { b.InsertErr = ErrDB }},
		{"schema fails", func(b *memBars) { b.EnsureErr = ErrDB }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wm := newMemWatermarks()
			wm.values["IBM"] = mustTime("2025-11-06 23:59:59")
			bars := newMemBars()
			tt.setup(bars)
			fetcher := &stubFetcher{
				FetchSinceFunc: func(ctx context.Context, symbol string, last time.Time) ([]entity.Bar, time.Time, error) {
					return []entity.Bar{bar("IBM", "2025-11-07 00:30:00")}, mustTime("2025-11-07 00:30:00"), nil
				},
			}

			rep, err := NewLoader(fetcher, bars, wm, nil).Load(context.Background(), "IBM")

			require.NoError(t, err)
			assert.False(t, rep.Persisted)
			assert.False(t, rep.Advanced)
			assert.Equal(t, 0, wm.SetCalls)
			assert.Equal(t, "2025-11-06 23:59:59", entity.FormatTimestamp(rep.Watermark))
		})
	}
}

func TestLoader_Load_FetchErrorIsReturned(t *testing.T) {
	t.Parallel()

	wm := newMemWatermarks()
	bars := newMemBars()
	fetcher := &stubFetcher{
		FetchSinceFunc: func(ctx context.Context, symbol string, last time.Time) ([]entity.Bar, time.Time, error) {
			return nil, entity.DefaultWatermark, ErrMarketAPI
		},
	}

	_, err := NewLoader(fetcher, bars, wm, nil).Load(context.Background(), "IBM")

	assert.ErrorIs(t, err, ErrMarketAPI)
	assert.Equal(t, 0, bars.EnsureCalls)
	assert.Equal(t, 0, wm.SetCalls)
}

func TestLoader_Load_WatermarkNeverMovesBackwards(t *testing.T) {
	t.Parallel()

	wm := newMemWatermarks()
	wm.values["IBM"] = mustTime("2025-11-07 02:00:00")
	bars := newMemBars()
	fetcher := &stubFetcher{
		FetchSinceFunc: func(ctx context.Context, symbol string, last time.Time) ([]entity.Bar, time.Time, error) {
			return []entity.Bar{bar("IBM", "2025-11-07 03:00:00")}, mustTime("2025-11-07 01:00:00"), nil
		},
	}

	rep, err := NewLoader(fetcher, bars, wm, nil).Load(context.Background(), "IBM")

	require.NoError(t, err)
	assert.True(t, rep.Persisted)
	assert.False(t, rep.Advanced)
	assert.Equal(t, 0, wm.SetCalls)
	assert.Equal(t, "2025-11-07 02:00:00", entity.FormatTimestamp(wm.values["IBM"]))
}

func TestLoader_Load_WatermarkWriteFailureIsLogged(t *testing.T) {
	t.Parallel()

	wm := newMemWatermarks()
	wm.SetErr = ErrDB
	fetcher := &stubFetcher{
		FetchSinceFunc: func(ctx context.Context, symbol string, last time.Time) ([]entity.Bar, time.Time, error) {
			return []entity.Bar{bar("IBM", "2025-11-07 00:30:00")}, mustTime("2025-11-07 00:30:00"), nil
		},
	}

	rep, err := NewLoader(fetcher, newMemBars(), wm, nil).Load(context.Background(), "IBM")

	require.NoError(t, err)
	assert.True(t, rep.Persisted)
	assert.False(t, rep.Advanced)
	assert.Equal(t, 1, wm.SetCalls)
}

func TestLoader_LoadAll(t *testing.T) {
	t.Parallel()

	wm := newMemWatermarks()
	limiter := &mockRateLimiter{}
	fetcher := &stubFetcher{
		FetchSinceFunc: func(ctx context.Context, symbol string, last time.Time) ([]entity.Bar, time.Time, error) {
			if symbol == "BAD" {
				return nil, entity.DefaultWatermark, ErrMarketAPI
			}
			return []entity.Bar{bar(symbol, "2025-11-07 00:30:00")}, mustTime("2025-11-07 00:30:00"), nil
		},
	}

	reports, err := NewLoader(fetcher, newMemBars(), wm, limiter).LoadAll(context.Background(), []string{"IBM", "BAD", "AAPL"})

	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, []string{"IBM", "BAD", "AAPL"}, fetcher.Symbols)
	assert.Equal(t, 3, limiter.WaitCalls)
	assert.True(t, reports[0].Advanced)
	assert.False(t, reports[1].Advanced)
	assert.True(t, reports[2].Advanced)
	assert.Contains(t, wm.values, "AAPL")
	assert.NotContains(t, wm.values, "BAD")
}

func TestLoader_LoadAll_StopsWhenLimiterIsCancelled(t *testing.T) {
	t.Parallel()

	limiter := &mockRateLimiter{Err: context.Canceled}
	fetcher := &stubFetcher{
		FetchSinceFunc: func(ctx context.Context, symbol string, last time.Time) ([]entity.Bar, time.Time, error) {
			return nil, entity.DefaultWatermark, nil
		},
	}

	reports, err := NewLoader(fetcher, newMemBars(), newMemWatermarks(), limiter).LoadAll(context.Background(), []string{"IBM", "AAPL"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, reports)
	assert.Empty(t, fetcher.Symbols)
}
