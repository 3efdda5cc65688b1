package usecase

import (
	"context"
	"log/slog"
	"time"

	"stock_etl/internal/feature/bars/domain/entity"
	"stock_etl/internal/platform/runid"
)

// LatestFetcher is the incremental fetch step the Loader drives. The Loader
// reads the watermark once and hands it over, so the cutoff and the
// monotonic check use the same value.
type LatestFetcher interface {
	FetchSince(ctx context.Context, symbol string, last time.Time) ([]entity.Bar, time.Time, error)
}

// LoadReport summarizes one incremental cycle for one symbol.
type LoadReport struct {
	Symbol            string
	RunID             string
	Fetched           int
	Inserted          int
	Skipped           int
	PreviousWatermark time.Time
	Watermark         time.Time // watermark in effect after the cycle
	Advanced          bool      // whether the watermark was written
	Persisted         bool      // whether the batch was committed
}

// Loader runs incremental cycles: fetch, persist, then advance the watermark.
type Loader struct {
	fetcher   LatestFetcher
	bars      BarRepository
	watermark WatermarkRepository
	limiter   RateLimiter
}

// NewLoader creates a new Loader. limiter paces LoadAll; it may be nil when
// only single-symbol loads are run.
func NewLoader(fetcher LatestFetcher, bars BarRepository, watermark WatermarkRepository, limiter RateLimiter) *Loader {
	return &Loader{fetcher: fetcher, bars: bars, watermark: watermark, limiter: limiter}
}

// Load runs one incremental cycle for symbol.
//
// Fetch errors are returned. Database errors are logged and swallowed, and the
// watermark stays where it was so the same rows are fetched again next run.
func (l *Loader) Load(ctx context.Context, symbol string) (LoadReport, error) {
	rep := LoadReport{Symbol: symbol, RunID: runid.New()}
	log := slog.With("symbol", symbol, "run_id", rep.RunID)

	rep.PreviousWatermark = readWatermark(ctx, l.watermark, symbol)
	rep.Watermark = rep.PreviousWatermark

	bars, newWatermark, err := l.fetcher.FetchSince(ctx, symbol, rep.PreviousWatermark)
	if err != nil {
		log.Error("failed to fetch latest bars", "error", err)
		return rep, err
	}
	rep.Fetched = len(bars)
	if len(bars) == 0 {
		log.Info("no new records found")
		return rep, nil
	}
	log.Info("found new records", "count", len(bars), "after", entity.FormatTimestamp(rep.PreviousWatermark))

	if err := l.bars.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure schema, watermark not advanced", "error", err)
		return rep, nil
	}
	res, err := l.bars.InsertBatch(ctx, bars)
	if err != nil {
		log.Error("failed to insert bars, watermark not advanced", "error", err)
		return rep, nil
	}
	rep.Persisted = true
	rep.Inserted, rep.Skipped = res.Inserted, res.Skipped
	log.Info("committed bars", "inserted", res.Inserted, "skipped", res.Skipped)

	if !newWatermark.After(rep.PreviousWatermark) {
		return rep, nil
	}
	if err := l.watermark.Set(ctx, symbol, newWatermark); err != nil {
		log.Error("failed to update watermark", "error", err)
		return rep, nil
	}
	rep.Watermark = newWatermark
	rep.Advanced = true
	log.Info("watermark updated", "watermark", entity.FormatTimestamp(newWatermark))
	return rep, nil
}

// LoadAll runs Load for each symbol in order, pacing provider calls with the
// rate limiter. A failing symbol is logged and the rest still run; only
// context cancellation stops the loop early.
func (l *Loader) LoadAll(ctx context.Context, symbols []string) ([]LoadReport, error) {
	reports := make([]LoadReport, 0, len(symbols))
	for _, s := range symbols {
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return reports, err
			}
		}
		rep, err := l.Load(ctx, s)
		reports = append(reports, rep)
		if err != nil {
			// 1つの銘柄でエラーが発生しても処理を止めずに次の銘柄へ
			if ctx.Err() != nil {
				return reports, ctx.Err()
			}
			continue
		}
	}
	return reports, nil
}
