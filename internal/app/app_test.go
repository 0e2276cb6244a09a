package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/futuresbot/internal/config"
	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/scheduler"
)

type stubSettingsStore struct {
	snap domain.SettingsSnapshot
	err  error
}

func (s *stubSettingsStore) Get(_ context.Context, name string) (domain.SettingsSnapshot, error) {
	if s.err != nil {
		return domain.SettingsSnapshot{}, s.err
	}
	if name != s.snap.Name {
		return domain.SettingsSnapshot{}, domain.ErrNotFound
	}
	return s.snap, nil
}

func (s *stubSettingsStore) Upsert(context.Context, domain.SettingsSnapshot) error { return nil }

func newTestApp() *App {
	cfg := config.Defaults()
	return New(&cfg, slog.New(slog.DiscardHandler))
}

func TestLoadSettings(t *testing.T) {
	t.Parallel()

	saved := config.DefaultTradingSettings()
	saved.MinVolume = 250
	payload, err := json.Marshal(saved)
	require.NoError(t, err)

	invalid := config.DefaultTradingSettings()
	invalid.BudgetPct = 0
	badPayload, err := json.Marshal(invalid)
	require.NoError(t, err)

	def := config.DefaultTradingSettings()

	tests := []struct {
		name    string
		store   domain.SettingsStore
		load    bool
		want    float64
		wantErr bool
	}{
		{"no store", nil, true, def.MinVolume, false},
		{"load disabled", &stubSettingsStore{snap: domain.SettingsSnapshot{Name: scheduler.SettingsName, Payload: payload}}, false, def.MinVolume, false},
		{"restored", &stubSettingsStore{snap: domain.SettingsSnapshot{Name: scheduler.SettingsName, Payload: payload}}, true, 250, false},
		{"missing", &stubSettingsStore{snap: domain.SettingsSnapshot{Name: "other"}}, true, def.MinVolume, false},
		{"garbage", &stubSettingsStore{snap: domain.SettingsSnapshot{Name: scheduler.SettingsName, Payload: []byte("{")}}, true, def.MinVolume, false},
		{"invalid", &stubSettingsStore{snap: domain.SettingsSnapshot{Name: scheduler.SettingsName, Payload: badPayload}}, true, def.MinVolume, false},
		{"store error", &stubSettingsStore{err: errors.New("db down")}, true, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := newTestApp()
			a.cfg.Postgres.LoadSettings = tt.load

			got, err := a.loadSettings(context.Background(), tt.store)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.MinVolume)
		})
	}
}

func TestNeedsArchive(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	assert.False(t, needsArchive(&cfg))

	cfg.Archive.Enabled = true
	assert.False(t, needsArchive(&cfg))

	cfg.Mode = "FULL"
	assert.True(t, needsArchive(&cfg))
}

func TestAuditListerKeepsNilInterface(t *testing.T) {
	t.Parallel()

	assert.Nil(t, auditLister(nil))
}

func TestRunRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	a := newTestApp()
	a.cfg.Mode = "scrape"
	defer a.Close()

	err := a.Run(context.Background())
	require.ErrorContains(t, err, "unsupported mode")
	assert.Empty(t, a.closers)
}

func TestModeRunner(t *testing.T) {
	t.Parallel()

	a := newTestApp()
	for _, mode := range []string{"trade", "monitor", "full", "TRADE"} {
		run, err := a.modeRunner(mode)
		require.NoError(t, err, mode)
		assert.NotNil(t, run)
	}
	_, err := a.modeRunner("backtest")
	assert.Error(t, err)
}
