package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// trailingHash holds one JSON-encoded TrailingState per symbol field.
const trailingHash = "trailing:states"

// TrailingStore implements domain.TrailingStore on a single Redis hash so a
// restarted process can resume trailing open positions.
type TrailingStore struct {
	rdb  *redis.Client
	hash string
}

// NewTrailingStore creates a TrailingStore backed by the given Client.
func NewTrailingStore(c *Client) *TrailingStore {
	return &TrailingStore{rdb: c.Underlying(), hash: c.ns.key(trailingHash)}
}

// Save writes st under its symbol.
func (ts *TrailingStore) Save(ctx context.Context, st domain.TrailingState) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("redis: marshal trailing %s: %w", st.Symbol, err)
	}
	if err := ts.rdb.HSet(ctx, ts.hash, st.Symbol, b).Err(); err != nil {
		return fmt.Errorf("redis: save trailing %s: %w", st.Symbol, err)
	}
	return nil
}

// Delete removes the state for symbol. Missing symbols are not an error.
func (ts *TrailingStore) Delete(ctx context.Context, symbol string) error {
	if err := ts.rdb.HDel(ctx, ts.hash, symbol).Err(); err != nil {
		return fmt.Errorf("redis: delete trailing %s: %w", symbol, err)
	}
	return nil
}

// LoadAll returns every stored state. Undecodable entries are skipped.
func (ts *TrailingStore) LoadAll(ctx context.Context) ([]domain.TrailingState, error) {
	vals, err := ts.rdb.HGetAll(ctx, ts.hash).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load trailing: %w", err)
	}
	out := make([]domain.TrailingState, 0, len(vals))
	for symbol, raw := range vals {
		var st domain.TrailingState
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			continue
		}
		if st.Symbol == "" {
			st.Symbol = symbol
		}
		out = append(out, st)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.TrailingStore = (*TrailingStore)(nil)
