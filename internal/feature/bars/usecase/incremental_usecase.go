package usecase

import (
	"context"
	"log/slog"
	"time"

	"stock_etl/internal/feature/bars/domain/entity"
)

// watermarkSafetyGap is added to the stored watermark to obtain the first
// timestamp that counts as new.
const watermarkSafetyGap = time.Second

// IncrementalFetcher fetches the bars newer than a symbol's watermark from
// the current calendar month.
type IncrementalFetcher struct {
	market    MarketRepository
	watermark WatermarkRepository
	now       func() time.Time
}

// NewIncrementalFetcher creates a new IncrementalFetcher.
func NewIncrementalFetcher(market MarketRepository, watermark WatermarkRepository) *IncrementalFetcher {
	return &IncrementalFetcher{market: market, watermark: watermark, now: time.Now}
}

// FetchLatest reads the stored watermark of symbol and returns what
// FetchSince returns for it.
func (f *IncrementalFetcher) FetchLatest(ctx context.Context, symbol string) ([]entity.Bar, time.Time, error) {
	return f.FetchSince(ctx, symbol, readWatermark(ctx, f.watermark, symbol))
}

// FetchSince returns the bars of symbol at or after last+1s together with the
// watermark to store once they are persisted.
//
// The returned watermark is the newest timestamp the provider returned for the
// month, even when that bar itself was filtered out. When nothing qualifies the
// bars are empty and the watermark is last.
func (f *IncrementalFetcher) FetchSince(ctx context.Context, symbol string, last time.Time) ([]entity.Bar, time.Time, error) {
	cutoff := last.Add(watermarkSafetyGap)

	bucket := entity.BucketOf(f.now())
	res, err := f.market.FetchMonth(ctx, symbol, bucket)
	if err != nil {
		return nil, last, err
	}
	if res.Kind != entity.ResultSuccess {
		slog.Info("no usable data from provider", "symbol", symbol, "month", bucket.String(), "result", res.Kind.String())
		return nil, last, nil
	}

	newest := last
	fresh := make([]entity.Bar, 0, len(res.Bars))
	for _, b := range res.Bars {
		if b.Time.After(newest) {
			newest = b.Time
		}
		if !b.Time.Before(cutoff) {
			fresh = append(fresh, b)
		}
	}

	if len(fresh) == 0 {
		slog.Info("no new data since last watermark", "symbol", symbol, "watermark", entity.FormatTimestamp(last))
		return nil, last, nil
	}
	return fresh, newest, nil
}

// readWatermark fails open: any read error yields the default watermark.
func readWatermark(ctx context.Context, repo WatermarkRepository, symbol string) time.Time {
	wm, err := repo.Get(ctx, symbol)
	if err != nil {
		slog.Warn("failed to read watermark, using default", "symbol", symbol, "error", err)
		return entity.DefaultWatermark
	}
	return wm
}
