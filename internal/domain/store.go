package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
	// Event matches entries whose event name starts with this prefix,
	// e.g. "position." for every position event.
	Event string
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log of bot events.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
	ListBefore(ctx context.Context, before time.Time) ([]AuditEntry, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// SettingsSnapshot is a named, versioned settings blob.
type SettingsSnapshot struct {
	Name      string
	Payload   []byte
	UpdatedAt time.Time
}

// SettingsStore persists the last applied trading settings.
type SettingsStore interface {
	Get(ctx context.Context, name string) (SettingsSnapshot, error)
	Upsert(ctx context.Context, snap SettingsSnapshot) error
}
