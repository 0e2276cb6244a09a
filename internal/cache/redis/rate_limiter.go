package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

// Bounds on how long Wait sleeps between attempts.
const (
	minWaitBackoff = 10 * time.Millisecond
	maxWaitBackoff = time.Second
)

// RateLimiter is a weighted sliding-window limiter shared by every process
// on the same Redis. The Binance client charges each call its request
// weight; the API middleware charges one unit per request.
type RateLimiter struct {
	rdb    *redis.Client
	ns     namespace
	script *redis.Script
	now    func() time.Time
}

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{
		rdb:    c.Underlying(),
		ns:     c.ns,
		script: redis.NewScript(slidingWindowLua),
		now:    time.Now,
	}
}

// Allow admits one unit for key.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	ok, _, err := rl.take(ctx, key, 1, limit, window)
	return ok, err
}

// Wait blocks until one unit for key is admitted.
func (rl *RateLimiter) Wait(ctx context.Context, key string, limit int, window time.Duration) error {
	return rl.WaitN(ctx, key, 1, limit, window)
}

// WaitN blocks until n units for key are admitted, sleeping for the
// script's retry hint between attempts. A weight above the limit can never
// be admitted and fails immediately.
func (rl *RateLimiter) WaitN(ctx context.Context, key string, n, limit int, window time.Duration) error {
	if n > limit {
		return fmt.Errorf("redis: rate limit %s: weight %d exceeds limit %d", key, n, limit)
	}
	for {
		ok, retry, err := rl.take(ctx, key, n, limit, window)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		timer := time.NewTimer(clampBackoff(retry))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("redis: rate limit %s: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
}

func (rl *RateLimiter) take(ctx context.Context, key string, n, limit int, window time.Duration) (bool, time.Duration, error) {
	res, err := rl.script.Run(ctx, rl.rdb,
		[]string{rl.ns.key("ratelimit", key)},
		rl.now().UnixMicro(), window.Microseconds(), limit, n,
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	if len(res) < 3 {
		return false, 0, fmt.Errorf("redis: rate limit %s: unexpected reply %v", key, res)
	}
	return res[0] == 1, time.Duration(res[2]) * time.Microsecond, nil
}

func clampBackoff(d time.Duration) time.Duration {
	return min(max(d, minWaitBackoff), maxWaitBackoff)
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
