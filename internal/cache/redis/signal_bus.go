package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Stream trimming: XADD MAXLEN ~ cap per stream.
const defaultStreamCap int64 = 10000

var streamCaps = map[string]int64{
	domain.StreamTrades: 5000,
}

// subscriberBuffer is the per-subscription queue. When a consumer falls
// behind, the oldest queued event is dropped so dashboards see fresh state.
const subscriberBuffer = 64

// SignalBus implements domain.SignalBus: pub/sub for the live event
// channels (logs, positions, stats, signals, trades) and a capped stream
// for the closed-trade history.
type SignalBus struct {
	rdb *redis.Client
	ns  namespace
}

// NewSignalBus creates a SignalBus backed by the given Client.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying(), ns: c.ns}
}

// Publish sends payload on channel.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, sb.ns.key(channel), payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe listens on channel, or on a glob pattern, until ctx ends. The
// returned channel is closed when the subscription stops.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	name := sb.ns.key(channel)
	var ps *redis.PubSub
	if hasPattern(channel) {
		ps = sb.rdb.PSubscribe(ctx, name)
	} else {
		ps = sb.rdb.Subscribe(ctx, name)
	}
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, subscriberBuffer)
	go func() {
		defer close(out)
		defer ps.Close()
		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				deliver(out, []byte(msg.Payload))
			}
		}
	}()
	return out, nil
}

// deliver enqueues p, evicting the oldest entry when out is full. Only the
// subscription goroutine sends on out.
func deliver(out chan []byte, p []byte) {
	for {
		select {
		case out <- p:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}

func hasPattern(channel string) bool {
	return strings.ContainsAny(channel, "*?[")
}

func streamCap(stream string) int64 {
	if n, ok := streamCaps[stream]; ok {
		return n
	}
	return defaultStreamCap
}

// StreamAppend adds payload to stream, trimming it to its cap.
func (sb *SignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	err := sb.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: sb.ns.key(stream),
		MaxLen: streamCap(stream),
		Approx: true,
		Values: map[string]interface{}{"payload": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}

// StreamRead returns up to count entries after lastID ("" or "0" reads
// from the start). An empty stream yields no entries and no error.
func (sb *SignalBus) StreamRead(ctx context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	if lastID == "" {
		lastID = "0"
	}
	res, err := sb.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{sb.ns.key(stream), lastID},
		Count:   int64(count),
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: stream read %s: %w", stream, err)
	}

	var out []domain.StreamMessage
	for _, s := range res {
		for _, m := range s.Messages {
			if p, ok := payloadBytes(m.Values["payload"]); ok {
				out = append(out, domain.StreamMessage{ID: m.ID, Payload: p})
			}
		}
	}
	return out, nil
}

func payloadBytes(v any) ([]byte, bool) {
	switch p := v.(type) {
	case string:
		return []byte(p), true
	case []byte:
		return p, true
	default:
		return nil, false
	}
}

var _ domain.SignalBus = (*SignalBus)(nil)
