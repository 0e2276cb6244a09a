package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// defaultKlineTTL keeps a series for a fraction of the shortest bar.
const defaultKlineTTL = 20 * time.Second

// KlineCache implements domain.KlineCache with one JSON string per
// (symbol, interval, limit) request.
type KlineCache struct {
	rdb *redis.Client
	ns  namespace
	ttl time.Duration
}

// NewKlineCache creates a KlineCache. A non-positive ttl uses the default.
func NewKlineCache(c *Client, ttl time.Duration) *KlineCache {
	if ttl <= 0 {
		ttl = defaultKlineTTL
	}
	return &KlineCache{rdb: c.Underlying(), ns: c.ns, ttl: ttl}
}

func klineKey(symbol, interval string, limit int) string {
	return fmt.Sprintf("klines:%s:%s:%d", safeKey(symbol), safeKey(interval), limit)
}

// Get returns the cached series. A miss or a corrupt entry reports false;
// corrupt entries are removed.
func (kc *KlineCache) Get(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, bool, error) {
	key := kc.ns.key(klineKey(symbol, interval, limit))
	b, err := kc.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get klines %s: %w", key, err)
	}

	var out []domain.Candle
	if err := json.Unmarshal(b, &out); err != nil || len(out) == 0 {
		_ = kc.rdb.Del(ctx, key).Err()
		return nil, false, nil
	}
	return out, true, nil
}

// Set stores candles under the request key with the cache TTL.
func (kc *KlineCache) Set(ctx context.Context, symbol, interval string, limit int, candles []domain.Candle) error {
	b, err := json.Marshal(candles)
	if err != nil {
		return fmt.Errorf("redis: marshal klines: %w", err)
	}
	key := kc.ns.key(klineKey(symbol, interval, limit))
	if err := kc.rdb.Set(ctx, key, b, kc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set klines %s: %w", key, err)
	}
	return nil
}

// safeKey escapes characters that would break the key layout.
func safeKey(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, ":", "_")
}

// Compile-time interface check.
var _ domain.KlineCache = (*KlineCache)(nil)
