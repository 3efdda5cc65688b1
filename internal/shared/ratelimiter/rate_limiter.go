// Package ratelimiter paces calls to rate-limited external APIs.
package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimiter allows at most limit calls per interval window and blocks
// callers once the window is used up.
type RateLimiter struct {
	mu        sync.Mutex
	limit     int           // 1ウィンドウあたりの上限
	interval  time.Duration // どの単位でリセットするか
	count     int
	lastReset time.Time
}

// NewRateLimiter creates a new RateLimiter.
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &RateLimiter{
		limit:     limit,
		interval:  interval,
		lastReset: time.Now(),
	}
}

// Wait reserves one call, sleeping until the next window if the current one is
// exhausted. It returns ctx.Err() if ctx is done while sleeping.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	// interval を過ぎたらカウントリセット
	if now.Sub(rl.lastReset) >= rl.interval {
		rl.count = 0
		rl.lastReset = now
	}

	rl.count++
	if rl.count <= rl.limit {
		return nil
	}

	sleep := rl.interval - now.Sub(rl.lastReset)
	if sleep > 0 {
		slog.Info("rate limit reached, sleeping", "limit", rl.limit, "sleep", sleep)
		if err := sleepCtx(ctx, sleep); err != nil {
			rl.count--
			return err
		}
	}
	rl.count = 1
	rl.lastReset = time.Now()
	return nil
}

// FixedDelay waits the same delay on every call. It is used where the
// provider requires a minimum gap between consecutive requests.
type FixedDelay struct {
	delay time.Duration
}

// NewFixedDelay creates a FixedDelay.
func NewFixedDelay(delay time.Duration) *FixedDelay {
	return &FixedDelay{delay: delay}
}

// Wait sleeps for the configured delay or until ctx is done.
func (d *FixedDelay) Wait(ctx context.Context) error {
	slog.Debug("waiting to respect API rate limits", "delay", d.delay)
	return sleepCtx(ctx, d.delay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
