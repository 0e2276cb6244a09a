package postgres

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

func TestDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{
			name: "explicit dsn wins",
			cfg:  ClientConfig{DSN: "postgres://u:p@db:6543/x", Host: "ignored"},
			want: "postgres://u:p@db:6543/x",
		},
		{
			name: "defaults",
			cfg:  ClientConfig{Host: "localhost", Database: "futuresbot", User: "bot", Password: "pw"},
			want: "postgres://bot:pw@localhost:5432/futuresbot?sslmode=disable",
		},
		{
			name: "escapes credentials",
			cfg:  ClientConfig{Host: "db", Port: 5433, Database: "fb", User: "bot", Password: "p@ss/word", SSLMode: "require"},
			want: "postgres://bot:p%40ss%2Fword@db:5433/fb?sslmode=require",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DSN(tt.cfg))
		})
	}
}

func TestBuildListQuery(t *testing.T) {
	t.Parallel()

	q, args := buildListQuery(domain.ListOpts{})
	assert.Equal(t, "SELECT id, event, detail, created_at FROM audit_log ORDER BY created_at DESC, id DESC", q)
	assert.Empty(t, args)

	q, args = buildListQuery(domain.ListOpts{Event: "position_", Limit: 5})
	assert.Equal(t, "SELECT id, event, detail, created_at FROM audit_log WHERE event LIKE $1 ORDER BY created_at DESC, id DESC LIMIT $2", q)
	assert.Equal(t, []any{`position\_%`, 5}, args)

	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	until := since.Add(24 * time.Hour)
	q, args = buildListQuery(domain.ListOpts{Since: &since, Until: &until, Limit: 50, Offset: 100})
	assert.Contains(t, q, "created_at >= $1")
	assert.Contains(t, q, "created_at <= $2")
	assert.Contains(t, q, "LIMIT $3")
	assert.Contains(t, q, "OFFSET $4")
	assert.Equal(t, []any{since, until, 50, 100}, args)

	q, args = buildListQuery(domain.ListOpts{Limit: 10})
	assert.Contains(t, q, "LIMIT $1")
	assert.Equal(t, []any{10}, args)
}

func TestMigrationsEmbedded(t *testing.T) {
	t.Parallel()

	ms, err := loadMigrations(migrationsFS, "migrations")
	require.NoError(t, err)
	var names []string
	for _, m := range ms {
		names = append(names, m.name)
		assert.NotEmpty(t, m.sql)
	}
	assert.Equal(t, []string{"001_audit_log.sql", "002_settings_snapshots.sql"}, names)
}

func TestLoadMigrationsOrdersAndFilters(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"m/010_later.sql": {Data: []byte("SELECT 10;")},
		"m/002_first.sql": {Data: []byte("SELECT 2;")},
		"m/README.md":     {Data: []byte("notes")},
		"m/sub/003_x.sql": {Data: []byte("SELECT 3;")},
	}
	ms, err := loadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "002_first.sql", ms[0].name)
	assert.Equal(t, "SELECT 2;", ms[0].sql)
	assert.Equal(t, "010_later.sql", ms[1].name)

	_, err = loadMigrations(fsys, "missing")
	assert.Error(t, err)
}
