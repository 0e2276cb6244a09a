package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/futuresbot/internal/config"
	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/executor"
	"github.com/alanyoungcy/futuresbot/internal/scheduler"
	"github.com/alanyoungcy/futuresbot/internal/server"
	"github.com/alanyoungcy/futuresbot/internal/server/handler"
	"github.com/alanyoungcy/futuresbot/internal/server/ws"
	"github.com/alanyoungcy/futuresbot/internal/service"
	"github.com/alanyoungcy/futuresbot/internal/strategy"
)

// journalSize bounds the in-memory activity log served by /api/logs.
const journalSize = 500

// bot groups the services that make up one running instance.
type bot struct {
	settings  *config.Live
	journal   *service.Journal
	stats     *service.StatsTracker
	positions *service.PositionService
	executor  *executor.Executor
	scheduler *scheduler.Scheduler
}

// TradeMode runs the scheduler, executor and API. Trading starts only if
// scheduler.auto_trade is set or an operator enables it.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")
	return a.run(ctx, deps, a.cfg.Scheduler.AutoTrade)
}

// MonitorMode manages exits for existing positions and never opens new
// ones.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")
	return a.run(ctx, deps, false)
}

// FullMode is trade mode plus the scheduled audit archiver.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")
	if deps.Archiver == nil {
		a.logger.WarnContext(ctx, "archive disabled, full mode runs without the archiver")
	}
	return a.run(ctx, deps, a.cfg.Scheduler.AutoTrade)
}

func (a *App) run(ctx context.Context, deps *Dependencies, autoTrade bool) error {
	b, err := a.buildBot(ctx, deps, autoTrade)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return b.scheduler.Run(ctx) })
	g.Go(func() error { return b.executor.Run(ctx) })

	var archiveTrigger chan<- struct{}
	if deps.Archiver != nil {
		archiveTrigger = deps.Archiver.Trigger()
		g.Go(func() error { return deps.Archiver.RunCron(ctx, a.cfg.Archive.Cron) })
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, b, archiveTrigger)
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// buildBot assembles the services around deps and resumes trailing for any
// positions already open on the exchange.
func (a *App) buildBot(ctx context.Context, deps *Dependencies, autoTrade bool) (*bot, error) {
	logger := a.logger

	set, err := a.loadSettings(ctx, deps.SettingsStore)
	if err != nil {
		return nil, err
	}
	live := config.NewLive(set)

	journal := service.NewJournal(journalSize, deps.SignalBus, logger)
	stats := service.NewStatsTracker(time.Now())
	market := service.NewMarketService(deps.Exchange, deps.KlineCache, logger)
	risk := service.NewRiskService(deps.Exchange, logger)
	trails := service.NewTrailingBook(deps.TrailingStore, logger)

	posCfg := service.DefaultPositionConfig()
	posCfg.CloseBatch = a.cfg.Scheduler.CloseBatch
	posCfg.ClosePause = a.cfg.Scheduler.ClosePause.Duration

	var alerts service.Alerter
	if deps.Notifier != nil && deps.Notifier.Enabled() {
		alerts = deps.Notifier
	}
	positions := service.NewPositionService(
		deps.Exchange, market, trails, stats, journal,
		deps.AuditStore, alerts, deps.SignalBus, posCfg, logger,
	)

	if balance, err := deps.Exchange.Balance(ctx); err != nil {
		logger.WarnContext(ctx, "initial balance fetch failed", slog.String("error", err.Error()))
	} else {
		stats.SetBalance(balance)
	}

	current, err := deps.Exchange.Positions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("app: fetch open positions: %w", err)
	}
	resumed, err := positions.Restore(ctx, current)
	if err != nil {
		logger.WarnContext(ctx, "trailing restore failed", slog.String("error", err.Error()))
	}
	logger.InfoContext(ctx, "positions restored",
		slog.Int("open", len(current)),
		slog.Int("trailing_resumed", resumed),
	)

	exec := executor.NewExecutor(
		positions, risk, deps.LockManager,
		a.cfg.Scheduler.DedupTTL.Duration, a.cfg.Scheduler.OpenLockTTL.Duration, logger,
	)
	engine := strategy.NewEngine(strategy.NewDefaultRegistry(), strategy.DefaultOptions(), logger)

	sched := scheduler.New(scheduler.Config{
		Mode:            strings.ToLower(a.cfg.Mode),
		MonitorInterval: a.cfg.Scheduler.MonitorInterval.Duration,
		ScanInterval:    a.cfg.Scheduler.ScanInterval.Duration,
		Workers:         a.cfg.Scheduler.Workers,
		AutoStart:       a.cfg.Scheduler.AutoStart,
		AutoTrade:       autoTrade,
	}, scheduler.Deps{
		Settings:      live,
		Account:       deps.Exchange,
		Market:        market,
		Positions:     positions,
		Opener:        exec,
		Engine:        engine,
		Stats:         stats,
		Journal:       journal,
		Bus:           deps.SignalBus,
		SettingsStore: deps.SettingsStore,
	}, logger)

	return &bot{
		settings:  live,
		journal:   journal,
		stats:     stats,
		positions: positions,
		executor:  exec,
		scheduler: sched,
	}, nil
}

// loadSettings returns the persisted trading settings when enabled and
// present, otherwise the [trading] section of the config file.
func (a *App) loadSettings(ctx context.Context, store domain.SettingsStore) (config.TradingSettings, error) {
	set := a.cfg.Trading.Clone()
	if store == nil || !a.cfg.Postgres.LoadSettings {
		return set, nil
	}
	snap, err := store.Get(ctx, scheduler.SettingsName)
	if errors.Is(err, domain.ErrNotFound) {
		return set, nil
	}
	if err != nil {
		return set, fmt.Errorf("app: load settings: %w", err)
	}
	var saved config.TradingSettings
	if err := json.Unmarshal(snap.Payload, &saved); err != nil {
		a.logger.WarnContext(ctx, "saved settings unreadable, using config file", slog.String("error", err.Error()))
		return set, nil
	}
	if err := saved.Validate(); err != nil {
		a.logger.WarnContext(ctx, "saved settings invalid, using config file", slog.String("error", err.Error()))
		return set, nil
	}
	a.logger.InfoContext(ctx, "restored saved settings", slog.Time("updated_at", snap.UpdatedAt))
	return saved, nil
}

// startHTTPServer registers the API and WebSocket hub on g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, b *bot, archiveTrigger chan<- struct{}) {
	hub := ws.NewHub(deps.SignalBus, ws.Config{
		AllowedOrigins: a.cfg.Server.CORSOrigins,
		Status:         b.scheduler.Status,
	}, a.logger)
	g.Go(func() error { return hub.Run(ctx) })

	health := handler.NewHealthHandler(a.logger)
	for name, check := range deps.Checks {
		health.WithCheck(name, check)
	}

	handlers := server.Handlers{
		Health:    health,
		Bot:       handler.NewBotHandler(b.scheduler, a.logger),
		Positions: handler.NewPositionHandler(b.scheduler, b.positions, a.logger),
		Settings:  handler.NewSettingsHandler(b.scheduler, a.logger),
		Logs:      handler.NewLogHandler(b.journal, auditLister(deps.AuditStore), a.logger),
	}
	if archiveTrigger != nil {
		handlers.Archive = handler.NewArchiveHandler(archiveTrigger, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)
	g.Go(func() error { return srv.Run(ctx) })
}

// auditLister keeps a nil store a nil interface so the handler can
// report the audit log as unavailable.
func auditLister(store domain.AuditStore) handler.AuditLister {
	if store == nil {
		return nil
	}
	return store
}
