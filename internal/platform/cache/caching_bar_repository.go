// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"stock_etl/internal/feature/bars/domain/entity"
	"stock_etl/internal/feature/bars/usecase"
)

// BarStore is the read and write side of bar persistence.
type BarStore interface {
	usecase.BarRepository
	usecase.BarReader
}

// CachingBarRepository decorates a BarStore with Redis caching of Latest.
// Writes go straight to the inner store and invalidate the symbols they touched.
type CachingBarRepository struct {
	inner     BarStore
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	now       func() time.Time
}

var _ BarStore = (*CachingBarRepository)(nil)

// NewCachingBarRepository decorates a BarStore with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "bars".
func NewCachingBarRepository(rdb *redis.Client, ttl time.Duration, inner BarStore, namespace string) *CachingBarRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "bars"
	}
	return &CachingBarRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		now:       time.Now,
	}
}

// EnsureSchema delegates to the inner store.
func (c *CachingBarRepository) EnsureSchema(ctx context.Context) error {
	return c.inner.EnsureSchema(ctx)
}

// InsertBatch inserts bars and invalidates cache entries of the symbols that got new rows.
func (c *CachingBarRepository) InsertBatch(ctx context.Context, bars []entity.Bar) (usecase.InsertResult, error) {
	res, err := c.inner.InsertBatch(ctx, bars)
	if err != nil {
		return res, err
	}
	if c.rdb == nil || res.Inserted == 0 {
		return res, nil
	}

	seen := map[string]struct{}{}
	for _, b := range bars {
		prefix := c.cacheKeyPrefix(b.Symbol)
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		_ = c.deleteByPattern(ctx, prefix+"*") // best effort
	}
	return res, nil
}

// Latest returns bars from the cache, falling back to the inner store on a miss.
func (c *CachingBarRepository) Latest(ctx context.Context, symbol string, limit int) ([]entity.Bar, error) {
	if c.rdb == nil {
		return c.inner.Latest(ctx, symbol, limit)
	}

	key := c.cacheKey(symbol, limit)

	// 1) キャッシュを確認
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.Bar
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// 壊れたキャッシュは削除
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) DBにフォールバック
	out, err := c.inner.Latest(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}

	// 3) キャッシュに保存（ベストエフォート）
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.expiry()).Err()
	}

	return out, nil
}

// expiry caps the ttl at the next bar boundary.
func (c *CachingBarRepository) expiry() time.Duration {
	return min(c.ttl, TimeUntilNextBar(c.now()))
}

func (c *CachingBarRepository) cacheKey(symbol string, limit int) string {
	return fmt.Sprintf("%s:%s:%d", c.namespace, safe(symbol), limit)
}

func (c *CachingBarRepository) cacheKeyPrefix(symbol string) string {
	return fmt.Sprintf("%s:%s:", c.namespace, safe(symbol))
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingBarRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
