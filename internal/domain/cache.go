package domain

import (
	"context"
	"time"
)

// KlineCache stores recently fetched candle series.
type KlineCache interface {
	Get(ctx context.Context, symbol, interval string, limit int) ([]Candle, bool, error)
	Set(ctx context.Context, symbol, interval string, limit int, candles []Candle) error
}

// TrailingStore mirrors trailing state outside the process.
type TrailingStore interface {
	Save(ctx context.Context, st TrailingState) error
	Delete(ctx context.Context, symbol string) error
	LoadAll(ctx context.Context) ([]TrailingState, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
