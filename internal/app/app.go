// Package app provides the top-level lifecycle for the futures bot. It wires
// infrastructure (exchange client, caches, stores, blob storage and
// notifications), assembles the trading services and runs the goroutines
// for the configured mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/futuresbot/internal/config"
)

// App owns the configuration, the logger and the cleanup functions
// registered while wiring.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run resolves the mode, wires all dependencies and blocks until the
// context is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	run, err := a.modeRunner(a.cfg.Mode)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	a.closers = append(a.closers, cleanup)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	return run(ctx, deps)
}

// modeRunner maps a configured mode onto its entry point.
func (a *App) modeRunner(mode string) (func(context.Context, *Dependencies) error, error) {
	switch strings.ToLower(mode) {
	case "trade":
		return a.TradeMode, nil
	case "monitor":
		return a.MonitorMode, nil
	case "full":
		return a.FullMode, nil
	default:
		return nil, fmt.Errorf("app: unsupported mode %q", mode)
	}
}

// Close releases connections in reverse order. Repeated calls are no-ops.
func (a *App) Close() {
	if len(a.closers) == 0 {
		return
	}
	a.logger.Info("releasing connections")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
