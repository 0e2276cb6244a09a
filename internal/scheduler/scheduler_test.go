package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/futuresbot/internal/config"
	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/executor"
	"github.com/alanyoungcy/futuresbot/internal/service"
	"github.com/alanyoungcy/futuresbot/internal/strategy"
)

type fakeAccount struct {
	domain.Trading
	balance   float64
	positions []domain.PositionSnapshot
	err       error
}

func (f *fakeAccount) Balance(context.Context) (float64, error) { return f.balance, nil }

func (f *fakeAccount) Positions(context.Context, string) ([]domain.PositionSnapshot, error) {
	return f.positions, f.err
}

type fakeMarket struct {
	symbols  []string
	screenFn func() error
	delay    time.Duration

	inflight atomic.Int32
	maxSeen  atomic.Int32
	calls    atomic.Int32
}

func (f *fakeMarket) Screen(context.Context, float64) ([]string, error) {
	if f.screenFn != nil {
		if err := f.screenFn(); err != nil {
			return nil, err
		}
	}
	return f.symbols, nil
}

func (f *fakeMarket) Klines(context.Context, string, string, int) ([]domain.Candle, error) {
	f.calls.Add(1)
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		cur := f.maxSeen.Load()
		if n <= cur || f.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(f.delay)
	// Too short to score: the engine returns HOLD.
	return make([]domain.Candle, 10), nil
}

type fakePositions struct {
	mu         sync.Mutex
	open       map[string]bool
	gone       []domain.PositionSnapshot
	reconciled []domain.PositionSnapshot
	evaluated  []string
	closeSet   map[string]bool
	closeAll   int
}

func (f *fakePositions) HasOpen(symbol string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open[symbol]
}

func (f *fakePositions) SyncLive([]domain.PositionSnapshot, time.Time) []domain.PositionSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := f.gone
	f.gone = nil
	return g
}

func (f *fakePositions) Reconcile(_ context.Context, gone []domain.PositionSnapshot) {
	f.mu.Lock()
	f.reconciled = append(f.reconciled, gone...)
	f.mu.Unlock()
}

func (f *fakePositions) Evaluate(_ context.Context, pos domain.PositionSnapshot, _ float64, _ config.TradingSettings) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evaluated = append(f.evaluated, pos.Symbol)
	return f.closeSet[pos.Symbol], nil
}

func (f *fakePositions) CloseAll(context.Context) (int, int, error) {
	f.mu.Lock()
	f.closeAll++
	f.mu.Unlock()
	return 2, 0, nil
}

func (f *fakePositions) Views(p []domain.PositionSnapshot) []service.PositionView {
	out := make([]service.PositionView, 0, len(p))
	for _, s := range p {
		out = append(out, service.PositionView{PositionSnapshot: s, Direction: s.Direction()})
	}
	return out
}

type fakeOpener struct{ calls atomic.Int32 }

func (f *fakeOpener) Execute(context.Context, executor.Intent) (domain.TrailingState, error) {
	f.calls.Add(1)
	return domain.TrailingState{}, nil
}

type memBus struct {
	mu   sync.Mutex
	msgs map[string][][]byte
}

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.msgs == nil {
		b.msgs = make(map[string][][]byte)
	}
	b.msgs[channel] = append(b.msgs[channel], payload)
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }

func (b *memBus) StreamAppend(context.Context, string, []byte) error { return nil }

func (b *memBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func (b *memBus) count(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.msgs[channel])
}

type memSettingsStore struct {
	snap domain.SettingsSnapshot
	n    int
}

func (m *memSettingsStore) Get(context.Context, string) (domain.SettingsSnapshot, error) {
	if m.n == 0 {
		return domain.SettingsSnapshot{}, domain.ErrNotFound
	}
	return m.snap, nil
}

func (m *memSettingsStore) Upsert(_ context.Context, s domain.SettingsSnapshot) error {
	m.snap = s
	m.n++
	return nil
}

type harness struct {
	sched     *Scheduler
	account   *fakeAccount
	market    *fakeMarket
	positions *fakePositions
	opener    *fakeOpener
	bus       *memBus
	store     *memSettingsStore
	stats     *service.StatsTracker
}

func newHarness(t *testing.T, workers int) *harness {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	h := &harness{
		account:   &fakeAccount{balance: 1000},
		market:    &fakeMarket{},
		positions: &fakePositions{open: map[string]bool{}, closeSet: map[string]bool{}},
		opener:    &fakeOpener{},
		bus:       &memBus{},
		store:     &memSettingsStore{},
		stats:     service.NewStatsTracker(time.Now()),
	}
	h.sched = New(Config{Mode: "trade", Workers: workers, MonitorInterval: 10 * time.Millisecond, ScanInterval: time.Hour}, Deps{
		Settings:      config.NewLive(config.DefaultTradingSettings()),
		Account:       h.account,
		Market:        h.market,
		Positions:     h.positions,
		Opener:        h.opener,
		Engine:        strategy.NewEngine(strategy.NewDefaultRegistry(), strategy.DefaultOptions(), logger),
		Stats:         h.stats,
		Journal:       service.NewJournal(100, nil, logger),
		Bus:           h.bus,
		SettingsStore: h.store,
	}, logger)
	return h
}

func TestMonitorOnce(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 5)
	ctx := context.Background()

	h.account.positions = []domain.PositionSnapshot{
		{Symbol: "AUSDT", Amount: 1, MarkPrice: 10, EntryPrice: 9},
		{Symbol: "BUSDT", Amount: -2, MarkPrice: 20, EntryPrice: 21},
	}
	h.positions.gone = []domain.PositionSnapshot{{Symbol: "CUSDT", Amount: 1}}
	h.positions.closeSet["AUSDT"] = true

	require.NoError(t, h.sched.MonitorOnce(ctx))

	assert.ElementsMatch(t, []string{"AUSDT", "BUSDT"}, h.positions.evaluated)
	require.Len(t, h.positions.reconciled, 1)
	assert.Equal(t, "CUSDT", h.positions.reconciled[0].Symbol)

	views := h.sched.Positions()
	require.Len(t, views, 1)
	assert.Equal(t, "BUSDT", views[0].Symbol)

	stats := h.stats.Snapshot()
	assert.Equal(t, 1000.0, stats.Balance)
	assert.Equal(t, 1, stats.OpenPositions)
	assert.InDelta(t, 40, stats.OpenNotional, 1e-9)

	assert.Equal(t, 1, h.bus.count(domain.ChannelPositions))
	assert.Equal(t, 1, h.bus.count(domain.ChannelStats))
}

func TestMonitorOnce_PositionsError(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 5)
	h.account.err = errors.New("timeout")

	err := h.sched.MonitorOnce(context.Background())
	require.Error(t, err)
	assert.Empty(t, h.positions.evaluated)
}

func TestScanOnce_WorkerLimitAndSkips(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 3)
	h.sched.Start()
	require.NoError(t, h.sched.SetTrading(true))

	for i := 0; i < 12; i++ {
		h.market.symbols = append(h.market.symbols, string(rune('A'+i))+"USDT")
	}
	h.positions.open["AUSDT"] = true
	h.market.delay = 5 * time.Millisecond

	report, err := h.sched.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, report.Candidates)
	assert.Equal(t, 11, report.Analyzed)
	assert.Zero(t, report.Signals)
	assert.EqualValues(t, 11, h.market.calls.Load())
	assert.LessOrEqual(t, h.market.maxSeen.Load(), int32(3))
	assert.Zero(t, h.opener.calls.Load())
}

func TestScanOnce_ScreenFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 5)
	h.market.screenFn = func() error { return domain.ErrRateLimited }

	_, err := h.sched.ScanOnce(context.Background())
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestControls(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 5)

	assert.ErrorIs(t, h.sched.SetTrading(true), domain.ErrNotRunning)

	h.sched.Start()
	require.NoError(t, h.sched.SetTrading(true))
	st := h.sched.Status()
	assert.True(t, st.Running)
	assert.True(t, st.Trading)
	assert.Equal(t, "trade", st.Mode)

	h.sched.Stop()
	st = h.sched.Status()
	assert.False(t, st.Running)
	assert.False(t, st.Trading)
	assert.Zero(t, st.UptimeSeconds)
}

func TestMonitorModeRefusesTrading(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 5)
	h.sched.cfg.Mode = ModeMonitor

	h.sched.Start()
	assert.ErrorIs(t, h.sched.SetTrading(true), domain.ErrMonitorOnly)
	assert.False(t, h.sched.Trading())
	require.NoError(t, h.sched.SetTrading(false))
}

func TestEmergencyStop(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 5)
	h.sched.Start()
	require.NoError(t, h.sched.SetTrading(true))

	closed, failed, err := h.sched.EmergencyStop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, closed)
	assert.Zero(t, failed)
	assert.Equal(t, 1, h.positions.closeAll)
	assert.False(t, h.sched.Running())
	assert.False(t, h.sched.Trading())
}

func TestUpdateSettings(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 5)
	ctx := context.Background()

	bad := config.DefaultTradingSettings()
	bad.Interval = "7m"
	require.Error(t, h.sched.UpdateSettings(ctx, bad))
	assert.Equal(t, "15m", h.sched.Settings().Interval)
	assert.Zero(t, h.store.n)

	good := config.DefaultTradingSettings()
	good.BudgetPct = 1.5
	require.NoError(t, h.sched.UpdateSettings(ctx, good))
	assert.Equal(t, 1.5, h.sched.Settings().BudgetPct)
	require.Equal(t, 1, h.store.n)
	assert.Equal(t, SettingsName, h.store.snap.Name)

	var persisted config.TradingSettings
	require.NoError(t, json.Unmarshal(h.store.snap.Payload, &persisted))
	assert.Equal(t, 1.5, persisted.BudgetPct)
}

func TestScanLoop_SingleInstance(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.sched.scanLoop(ctx) }()

	require.Eventually(t, func() bool { return h.sched.Status().Scanning }, time.Second, 5*time.Millisecond)
	assert.NoError(t, h.sched.scanLoop(ctx), "second loop returns immediately")

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, h.sched.Status().Scanning)
}

func TestRun_MonitorsWhileRunning(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 5)
	h.sched.cfg.AutoStart = true
	h.account.positions = []domain.PositionSnapshot{{Symbol: "AUSDT", Amount: 1, MarkPrice: 10, EntryPrice: 10}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.sched.Run(ctx) }()

	require.Eventually(t, func() bool { return h.bus.count(domain.ChannelStats) >= 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
