// Package usecase implements the change-data-capture ingestion logic for
// intraday bars: incremental sync, historical backfill and loading.
package usecase

import (
	"context"
	"time"

	"stock_etl/internal/feature/bars/domain/entity"
)

// MarketRepository fetches one month of bars for one symbol from the external
// provider. Following Go convention, interfaces are defined by the consumer
// (usecase), not the provider (adapters).
type MarketRepository interface {
	FetchMonth(ctx context.Context, symbol string, bucket entity.MonthBucket) (entity.Result, error)
}

// WatermarkRepository persists the per-symbol high-water mark.
type WatermarkRepository interface {
	// Get returns the stored watermark, or entity.DefaultWatermark when the
	// symbol has never been stored.
	Get(ctx context.Context, symbol string) (time.Time, error)
	// Set durably stores ts for symbol without touching other symbols.
	Set(ctx context.Context, symbol string, ts time.Time) error
}

// InsertResult reports the outcome of a conflict-skipping batch insert.
type InsertResult struct {
	Inserted int
	Skipped  int
}

// BarRepository is the write side of bar persistence.
type BarRepository interface {
	// EnsureSchema creates the destination table and its uniqueness constraint
	// if they do not exist yet.
	EnsureSchema(ctx context.Context) error
	// InsertBatch inserts bars in a single transaction, skipping rows that
	// already exist for (symbol, timestamp).
	InsertBatch(ctx context.Context, bars []entity.Bar) (InsertResult, error)
}

// BarReader is the read side of bar persistence.
type BarReader interface {
	// Latest returns up to limit bars of symbol, newest first.
	Latest(ctx context.Context, symbol string, limit int) ([]entity.Bar, error)
}

// RateLimiter paces calls to the external provider.
type RateLimiter interface {
	Wait(ctx context.Context) error
}
