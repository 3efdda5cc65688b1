package di

import (
	"context"
	"fmt"
	"log/slog"

	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"stock_etl/internal/platform/config"
	infradb "stock_etl/internal/platform/db"
	infraredis "stock_etl/internal/platform/redis"
)

// Resources are the long-lived connections of one process.
type Resources struct {
	DB    *gorm.DB
	Redis *redisv9.Client // nil when Redis is not configured or unreachable
}

// OpenResources connects to PostgreSQL and, when configured, Redis. Redis is
// optional unless it backs the watermarks.
func OpenResources(ctx context.Context, cfg config.Config) (*Resources, error) {
	db, err := infradb.OpenDB(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	res := &Resources{DB: db}

	if !cfg.Redis.Enabled() {
		return res, nil
	}
	rdb, err := infraredis.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		if cfg.WatermarkBackend == config.BackendRedis {
			res.Close()
			return nil, fmt.Errorf("redis watermark backend: %w", err)
		}
		slog.Warn("Redis unavailable. Running without cache.", "error", err)
		return res, nil
	}
	res.Redis = rdb
	return res, nil
}

// Close releases every open connection.
func (r *Resources) Close() {
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			slog.Error("failed to close Redis client", "error", err)
		}
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				slog.Error("failed to close database", "error", err)
			}
		}
	}
}

// PingDB checks the database connection for the health endpoint.
func (r *Resources) PingDB(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PingRedis checks the Redis connection for the health endpoint.
func (r *Resources) PingRedis(ctx context.Context) error {
	return r.Redis.Ping(ctx).Err()
}
