package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

// SettingsStore implements domain.SettingsStore using PostgreSQL.
type SettingsStore struct {
	pool *pgxpool.Pool
}

// NewSettingsStore creates a new SettingsStore backed by the given connection pool.
func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// Get retrieves the snapshot stored under name.
func (s *SettingsStore) Get(ctx context.Context, name string) (domain.SettingsSnapshot, error) {
	const query = `SELECT name, payload, updated_at FROM settings_snapshots WHERE name = $1`

	var snap domain.SettingsSnapshot
	err := s.pool.QueryRow(ctx, query, name).Scan(&snap.Name, &snap.Payload, &snap.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SettingsSnapshot{}, domain.ErrNotFound
		}
		return domain.SettingsSnapshot{}, fmt.Errorf("postgres: get settings %s: %w", name, err)
	}
	return snap, nil
}

// Upsert inserts or replaces a snapshot. The payload must be JSON.
func (s *SettingsStore) Upsert(ctx context.Context, snap domain.SettingsSnapshot) error {
	const query = `
		INSERT INTO settings_snapshots (name, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET
			payload    = EXCLUDED.payload,
			updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, snap.Name, snap.Payload); err != nil {
		return fmt.Errorf("postgres: upsert settings %s: %w", snap.Name, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SettingsStore = (*SettingsStore)(nil)
