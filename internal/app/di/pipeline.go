package di

import (
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"stock_etl/internal/feature/bars/adapters"
	"stock_etl/internal/feature/bars/usecase"
	"stock_etl/internal/platform/cache"
	"stock_etl/internal/platform/config"
	"stock_etl/internal/shared/ratelimiter"
)

// barCacheTTL is the upper bound for cached bar reads.
const barCacheTTL = 5 * time.Minute

// NewWatermarkRepository returns the Redis-backed store when selected and
// available, and the JSON file store otherwise.
func NewWatermarkRepository(cfg config.Config, rdb *redisv9.Client) usecase.WatermarkRepository {
	if cfg.WatermarkBackend == config.BackendRedis && rdb != nil {
		return adapters.NewWatermarkRedis(rdb, adapters.DefaultWatermarkHash)
	}
	return adapters.NewWatermarkFile(cfg.CDCPath)
}

// NewBarStore wraps the gorm repository with the Redis read cache. With a nil
// client the cache passes everything through.
func NewBarStore(db *gorm.DB, rdb *redisv9.Client) cache.BarStore {
	return cache.NewCachingBarRepository(rdb, barCacheTTL, adapters.NewBarRepository(db), "bars")
}

// NewLoader wires the incremental pipeline.
func NewLoader(cfg config.Config, res *Resources) *usecase.Loader {
	market := NewMarket(cfg.AlphaVantage)
	watermark := NewWatermarkRepository(cfg, res.Redis)
	fetcher := usecase.NewIncrementalFetcher(market, watermark)
	limiter := ratelimiter.NewRateLimiter(cfg.CallsPerMinute, time.Minute)
	return usecase.NewLoader(fetcher, NewBarStore(res.DB, res.Redis), watermark, limiter)
}

// NewBackfillRunner wires the backfill pipeline. archiveDir may be empty to
// skip the parquet archive.
func NewBackfillRunner(cfg config.Config, res *Resources, archiveDir string) *usecase.BackfillRunner {
	market := NewMarket(cfg.AlphaVantage)
	pacer := ratelimiter.NewFixedDelay(cfg.BackfillCallDelay)
	fetcher := usecase.NewBackfillFetcher(market, pacer)

	var archive usecase.ChunkArchive
	if archiveDir != "" {
		archive = adapters.NewParquetArchive(archiveDir)
	}
	return usecase.NewBackfillRunner(fetcher, NewBarStore(res.DB, res.Redis), NewWatermarkRepository(cfg, res.Redis), archive)
}
