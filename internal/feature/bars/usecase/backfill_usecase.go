package usecase

import (
	"context"
	"log/slog"
	"time"

	"stock_etl/internal/feature/bars/domain/entity"
)

// Chunk is the data of one backfilled month.
type Chunk struct {
	Bucket entity.MonthBucket
	Bars   []entity.Bar
}

// BackfillStats counts what a stream has done so far.
type BackfillStats struct {
	Attempted int // months queried
	Failed    int // months whose fetch returned an error
	Yielded   int // non-empty months handed to the consumer
}

// BackfillFetcher pulls the full monthly history of a symbol from the provider.
// It holds no storage dependency; consumers persist what the stream yields.
type BackfillFetcher struct {
	market MarketRepository
	pacer  RateLimiter
	now    func() time.Time
}

// NewBackfillFetcher creates a BackfillFetcher. pacer is waited on between
// every two provider calls, whatever the outcome of the first one.
func NewBackfillFetcher(market MarketRepository, pacer RateLimiter) *BackfillFetcher {
	return &BackfillFetcher{market: market, pacer: pacer, now: time.Now}
}

// Backfill returns a stream over the months of symbol from
// entity.BackfillStartYear through the current month.
func (f *BackfillFetcher) Backfill(symbol string) *BackfillStream {
	slog.Info("starting backfill", "symbol", symbol)
	return &BackfillStream{
		fetcher: f,
		symbol:  symbol,
		buckets: entity.BackfillBuckets(f.now()),
	}
}

// BackfillStream is a finite, pull-based iterator of monthly chunks. Each call
// to Next queries the provider until a non-empty month is found, so at most one
// month of data is held at a time. A stream cannot be restarted.
type BackfillStream struct {
	fetcher *BackfillFetcher
	symbol  string
	buckets []entity.MonthBucket
	pos     int
	called  bool
	done    bool
	err     error
	stats   BackfillStats
}

// Next returns the next non-empty month in chronological order. It returns
// false once every month has been queried or ctx is done.
func (s *BackfillStream) Next(ctx context.Context) (Chunk, bool) {
	for s.err == nil && s.pos < len(s.buckets) {
		if s.called {
			if err := s.fetcher.pacer.Wait(ctx); err != nil {
				s.err = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			s.err = err
			break
		}

		bucket := s.buckets[s.pos]
		s.pos++
		s.called = true
		s.stats.Attempted++

		slog.Info("fetching month", "symbol", s.symbol, "month", bucket.String())
		res, err := s.fetcher.market.FetchMonth(ctx, s.symbol, bucket)
		if err != nil {
			// 1ヶ月分の失敗でバックフィル全体を止めない
			s.stats.Failed++
			slog.Error("failed to fetch month, moving to next", "symbol", s.symbol, "month", bucket.String(), "error", err)
			continue
		}
		if res.Kind != entity.ResultSuccess || len(res.Bars) == 0 {
			slog.Info("no data for month, skipping", "symbol", s.symbol, "month", bucket.String(), "result", res.Kind.String())
			continue
		}

		s.stats.Yielded++
		slog.Info("fetched month", "symbol", s.symbol, "month", bucket.String(), "records", len(res.Bars))
		return Chunk{Bucket: bucket, Bars: res.Bars}, true
	}

	if s.err == nil && !s.done {
		s.done = true
		slog.Info("backfill complete", "symbol", s.symbol, "attempted", s.stats.Attempted, "failed", s.stats.Failed, "yielded", s.stats.Yielded)
	}
	return Chunk{}, false
}

// Err returns the context error that stopped the stream early, if any.
func (s *BackfillStream) Err() error {
	return s.err
}

// Stats returns the counters accumulated so far.
func (s *BackfillStream) Stats() BackfillStats {
	return s.stats
}
