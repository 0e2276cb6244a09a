// Package scheduler drives the bot: a monitor loop that reconciles and
// evaluates live positions, and a scan loop that screens the market, scores
// candidates on a bounded worker pool and opens actionable ones.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/futuresbot/internal/config"
	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/executor"
	"github.com/alanyoungcy/futuresbot/internal/service"
	"github.com/alanyoungcy/futuresbot/internal/strategy"
)

// SettingsName is the key trading settings are persisted under.
const SettingsName = "trading"

// ModeMonitor runs the monitor loop only; SetTrading(true) is refused.
const ModeMonitor = "monitor"

// Market is the market data surface used by the scan loop.
type Market interface {
	Screen(ctx context.Context, minVolumeMillions float64) ([]string, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)
}

// Positions is the lifecycle surface used by both loops. It is implemented
// by service.PositionService.
type Positions interface {
	HasOpen(symbol string) bool
	SyncLive(current []domain.PositionSnapshot, fetchedAt time.Time) []domain.PositionSnapshot
	Reconcile(ctx context.Context, gone []domain.PositionSnapshot)
	Evaluate(ctx context.Context, pos domain.PositionSnapshot, balance float64, set config.TradingSettings) (bool, error)
	CloseAll(ctx context.Context) (closed, failed int, err error)
	Views(positions []domain.PositionSnapshot) []service.PositionView
}

// Opener executes actionable intents. It is implemented by
// executor.Executor.
type Opener interface {
	Execute(ctx context.Context, in executor.Intent) (domain.TrailingState, error)
}

// Config holds the loop timing and start-up flags.
type Config struct {
	Mode            string
	MonitorInterval time.Duration
	ScanInterval    time.Duration
	Workers         int
	AutoStart       bool
	AutoTrade       bool
}

// Deps groups the collaborators of a Scheduler. Bus and SettingsStore may
// be nil.
type Deps struct {
	Settings      *config.Live
	Account       domain.Trading
	Market        Market
	Positions     Positions
	Opener        Opener
	Engine        *strategy.Engine
	Stats         *service.StatsTracker
	Journal       *service.Journal
	Bus           domain.SignalBus
	SettingsStore domain.SettingsStore
}

// ScanReport summarizes one scan cycle.
type ScanReport struct {
	Candidates int `json:"candidates"`
	Analyzed   int `json:"analyzed"`
	Signals    int `json:"signals"`
	Opened     int `json:"opened"`
}

// Scheduler owns the running, trading and scanning flags and the two loops.
type Scheduler struct {
	cfg  Config
	deps Deps

	running  atomic.Bool
	trading  atomic.Bool
	scanning atomic.Bool
	wake     chan struct{}

	mu        sync.Mutex
	startedAt time.Time
	views     []service.PositionView

	now    func() time.Time
	logger *slog.Logger
}

// New creates a Scheduler.
func New(cfg Config, deps Deps, logger *slog.Logger) *Scheduler {
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = 4 * time.Second
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 120 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	return &Scheduler{
		cfg:    cfg,
		deps:   deps,
		wake:   make(chan struct{}, 1),
		now:    time.Now,
		logger: logger.With(slog.String("component", "scheduler")),
	}
}

// Run starts the monitor and scan loops and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.cfg.AutoStart {
		s.Start()
		if s.cfg.AutoTrade {
			if err := s.SetTrading(true); err != nil {
				s.logger.WarnContext(ctx, "scheduler: auto trade not enabled", slog.String("error", err.Error()))
			}
		}
	}
	s.logger.InfoContext(ctx, "scheduler: started",
		slog.Duration("monitor_interval", s.cfg.MonitorInterval),
		slog.Duration("scan_interval", s.cfg.ScanInterval),
		slog.Int("workers", s.cfg.Workers),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.monitorLoop(ctx) })
	g.Go(func() error { return s.scanLoop(ctx) })
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Scheduler) monitorLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !s.running.Load() {
				continue
			}
			if err := s.MonitorOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.WarnContext(ctx, "scheduler: monitor tick failed", slog.String("error", err.Error()))
			}
		}
	}
}

// scanLoop is the single long-lived scan task. The scanning flag guards
// against a second loop.
func (s *Scheduler) scanLoop(ctx context.Context) error {
	if !s.scanning.CompareAndSwap(false, true) {
		return nil
	}
	defer s.scanning.Store(false)

	for {
		if s.running.Load() && s.trading.Load() {
			report, err := s.ScanOnce(ctx)
			if err != nil && ctx.Err() == nil {
				s.logger.WarnContext(ctx, "scheduler: scan failed", slog.String("error", err.Error()))
			} else if err == nil {
				s.logger.InfoContext(ctx, "scheduler: scan finished",
					slog.Int("candidates", report.Candidates),
					slog.Int("signals", report.Signals),
					slog.Int("opened", report.Opened),
				)
			}
			if err := s.sleep(ctx, s.cfg.ScanInterval); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		case <-time.After(s.cfg.MonitorInterval):
		}
	}
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// MonitorOnce runs one monitor tick: refresh balance, detect closures,
// evaluate exits and publish snapshots.
func (s *Scheduler) MonitorOnce(ctx context.Context) error {
	d := s.deps
	if bal, err := d.Account.Balance(ctx); err == nil {
		d.Stats.SetBalance(bal)
	} else {
		s.logger.DebugContext(ctx, "scheduler: balance refresh failed", slog.String("error", err.Error()))
	}
	balance := d.Stats.Balance()

	fetchedAt := s.now()
	positions, err := d.Account.Positions(ctx, "")
	if err != nil {
		return fmt.Errorf("scheduler: positions: %w", err)
	}

	if gone := d.Positions.SyncLive(positions, fetchedAt); len(gone) > 0 {
		d.Positions.Reconcile(ctx, gone)
	}

	set := d.Settings.Snapshot()
	open := make([]domain.PositionSnapshot, 0, len(positions))
	for _, p := range positions {
		closed, err := d.Positions.Evaluate(ctx, p, balance, set)
		if err != nil {
			s.logger.WarnContext(ctx, "scheduler: exit evaluation failed",
				slog.String("symbol", p.Symbol),
				slog.String("error", err.Error()),
			)
		}
		if !closed {
			open = append(open, p)
		}
	}

	d.Stats.SetExposure(open)
	views := d.Positions.Views(open)
	s.mu.Lock()
	s.views = views
	s.mu.Unlock()

	s.publish(ctx, domain.ChannelPositions, views)
	s.publish(ctx, domain.ChannelStats, s.Status())
	return nil
}

// ScanOnce runs one scan cycle against a snapshot of the live settings.
func (s *Scheduler) ScanOnce(ctx context.Context) (ScanReport, error) {
	d := s.deps
	set := d.Settings.Snapshot()

	symbols, err := d.Market.Screen(ctx, set.MinVolume)
	if err != nil {
		d.Journal.Error(ctx, "scan failed: %v", err)
		return ScanReport{}, err
	}
	d.Journal.Info(ctx, false, "scanning %d symbols", len(symbols))

	engine := d.Engine.WithOptions(strategy.Options{
		Threshold: set.ScoreThreshold,
		MinRSI:    set.MinRSI,
		MaxRSI:    set.MaxRSI,
		Disabled:  set.DisabledModules,
	})

	var analyzed, signals, opened atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for _, sym := range symbols {
		if ctx.Err() != nil || !s.trading.Load() {
			break
		}
		g.Go(func() error {
			res := s.analyze(ctx, engine, sym, set)
			if res.analyzed {
				analyzed.Add(1)
			}
			if res.signal {
				signals.Add(1)
			}
			if res.opened {
				opened.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return ScanReport{
		Candidates: len(symbols),
		Analyzed:   int(analyzed.Load()),
		Signals:    int(signals.Load()),
		Opened:     int(opened.Load()),
	}, ctx.Err()
}

type analysis struct {
	analyzed bool
	signal   bool
	opened   bool
}

func (s *Scheduler) analyze(ctx context.Context, engine *strategy.Engine, symbol string, set config.TradingSettings) analysis {
	d := s.deps
	if d.Positions.HasOpen(symbol) {
		return analysis{}
	}

	candles, err := d.Market.Klines(ctx, symbol, set.Interval, set.KlineLimit)
	if err != nil {
		s.logger.DebugContext(ctx, "scheduler: klines unavailable",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return analysis{}
	}

	dec := engine.Score(candles)
	dec.Symbol = symbol
	res := analysis{analyzed: true}
	if !dec.Actionable() {
		return res
	}
	res.signal = true
	engine.Record(dec)
	s.publish(ctx, domain.ChannelSignals, dec)

	lev, vol := service.ClassifyVolatility(candles)
	d.Journal.Info(ctx, false, "%s %s score %.1f | %dx (vol %.2f%%) | %s",
		symbol, dec.Signal, dec.Score, lev, vol, dec.Reason)

	_, err = d.Opener.Execute(ctx, executor.Intent{
		Decision: dec,
		Leverage: lev,
		Candles:  candles,
		Settings: set,
	})
	res.opened = err == nil
	return res
}

// Start sets the running flag.
func (s *Scheduler) Start() {
	if s.running.Swap(true) {
		return
	}
	s.mu.Lock()
	s.startedAt = s.now()
	s.mu.Unlock()
	s.deps.Journal.Info(context.Background(), true, "bot started")
}

// Stop clears the running and trading flags. The scan loop halts at its
// next sleep boundary and the monitor loop at its next tick.
func (s *Scheduler) Stop() {
	s.trading.Store(false)
	if s.running.Swap(false) {
		s.deps.Journal.Info(context.Background(), true, "bot stopped")
	}
}

// SetTrading toggles the scan loop. Enabling requires a running bot.
func (s *Scheduler) SetTrading(on bool) error {
	if on && s.cfg.Mode == ModeMonitor {
		return fmt.Errorf("scheduler: enable trading: %w", domain.ErrMonitorOnly)
	}
	if on && !s.running.Load() {
		return fmt.Errorf("scheduler: enable trading: %w", domain.ErrNotRunning)
	}
	if s.trading.Swap(on) == on {
		return nil
	}
	if on {
		select {
		case s.wake <- struct{}{}:
		default:
		}
		s.deps.Journal.Info(context.Background(), true, "trading enabled")
	} else {
		s.deps.Journal.Info(context.Background(), true, "trading paused")
	}
	return nil
}

// EmergencyStop stops the bot and synchronously closes every position.
func (s *Scheduler) EmergencyStop(ctx context.Context) (closed, failed int, err error) {
	s.Stop()
	s.deps.Journal.Warn(ctx, true, "emergency stop: closing all positions")
	return s.deps.Positions.CloseAll(ctx)
}

// UpdateSettings validates and installs a new settings snapshot, then
// persists it when a store is configured.
func (s *Scheduler) UpdateSettings(ctx context.Context, set config.TradingSettings) error {
	if err := s.deps.Settings.Update(set); err != nil {
		return err
	}
	s.deps.Journal.Info(ctx, true, "settings updated")

	if s.deps.SettingsStore == nil {
		return nil
	}
	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("scheduler: encode settings: %w", err)
	}
	if err := s.deps.SettingsStore.Upsert(ctx, domain.SettingsSnapshot{
		Name:      SettingsName,
		Payload:   payload,
		UpdatedAt: s.now().UTC(),
	}); err != nil {
		s.logger.WarnContext(ctx, "scheduler: persist settings failed", slog.String("error", err.Error()))
	}
	return nil
}

// Settings returns the current settings snapshot.
func (s *Scheduler) Settings() config.TradingSettings { return s.deps.Settings.Snapshot() }

// Running reports whether the bot is started.
func (s *Scheduler) Running() bool { return s.running.Load() }

// Trading reports whether the scan loop may open positions.
func (s *Scheduler) Trading() bool { return s.trading.Load() }

// Status returns the flags alongside a stats snapshot.
func (s *Scheduler) Status() domain.BotStatus {
	st := s.deps.Stats.Snapshot()
	s.mu.Lock()
	started := s.startedAt
	s.mu.Unlock()

	var uptime int64
	if s.running.Load() && !started.IsZero() {
		uptime = int64(s.now().Sub(started).Seconds())
	}
	return domain.BotStatus{
		Mode:          s.cfg.Mode,
		Running:       s.running.Load(),
		Trading:       s.trading.Load(),
		Scanning:      s.scanning.Load(),
		UptimeSeconds: uptime,
		WinRate:       st.WinRate(),
		Stats:         st,
	}
}

// Positions returns the views published by the last monitor tick.
func (s *Scheduler) Positions() []service.PositionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]service.PositionView, len(s.views))
	copy(out, s.views)
	return out
}

// Decisions returns recent actionable decisions, newest first.
func (s *Scheduler) Decisions(limit int) []domain.Decision {
	return s.deps.Engine.RecentDecisions(limit)
}

func (s *Scheduler) publish(ctx context.Context, channel string, v any) {
	if s.deps.Bus == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.deps.Bus.Publish(ctx, channel, payload); err != nil {
		s.logger.DebugContext(ctx, "scheduler: publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
