package adapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"stock_etl/internal/feature/bars/domain/entity"
	"stock_etl/internal/feature/bars/usecase"
)

// DefaultWatermarkHash is the Redis hash holding all watermarks.
const DefaultWatermarkHash = "stocketl:watermarks"

// watermarkRedis keeps watermarks as fields of one Redis hash, using the same
// keys and value format as the JSON document.
type watermarkRedis struct {
	rdb  *redis.Client
	hash string
}

var _ usecase.WatermarkRepository = (*watermarkRedis)(nil)

func NewWatermarkRedis(rdb *redis.Client, hash string) *watermarkRedis {
	if hash == "" {
		hash = DefaultWatermarkHash
	}
	return &watermarkRedis{rdb: rdb, hash: hash}
}

func (w *watermarkRedis) Get(ctx context.Context, symbol string) (time.Time, error) {
	v, err := w.rdb.HGet(ctx, w.hash, entity.WatermarkKey(symbol)).Result()
	if errors.Is(err, redis.Nil) {
		return entity.DefaultWatermark, nil
	}
	if err != nil {
		return entity.DefaultWatermark, fmt.Errorf("redis hget %s: %w", symbol, err)
	}
	ts, err := entity.ParseTimestamp(v)
	if err != nil {
		slog.Warn("invalid watermark value, using default", "symbol", symbol, "value", v, "error", err)
		return entity.DefaultWatermark, nil
	}
	return ts, nil
}

func (w *watermarkRedis) Set(ctx context.Context, symbol string, ts time.Time) error {
	if err := w.rdb.HSet(ctx, w.hash, entity.WatermarkKey(symbol), entity.FormatTimestamp(ts)).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", symbol, err)
	}
	return nil
}
