package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/futuresbot/internal/config"
	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/service"
)

// ErrDuplicate reports an intent suppressed by the dedup window.
var ErrDuplicate = errors.New("executor: duplicate intent")

// Opener is the position surface the executor drives. It is implemented
// by service.PositionService.
type Opener interface {
	HasOpen(symbol string) bool
	Open(ctx context.Context, req service.OpenRequest) (domain.TrailingState, error)
}

// FundingChecker validates the funding rate before an open. It is
// implemented by service.RiskService.
type FundingChecker interface {
	CheckFunding(ctx context.Context, symbol string, maxPct float64) error
}

// Intent is an actionable decision with everything needed to open it.
type Intent struct {
	Decision domain.Decision
	Leverage int
	Candles  []domain.Candle
	Settings config.TradingSettings
}

// Executor turns actionable decisions into opens. It applies dedup, an
// optional distributed lock, an open-position check and the funding cap
// before handing the intent to the position service.
type Executor struct {
	positions Opener
	risk      FundingChecker
	locks     domain.LockManager
	dedup     *Dedup
	lockTTL   time.Duration
	logger    *slog.Logger

	cleanupInterval time.Duration
}

// NewExecutor creates an Executor. locks may be nil, in which case only
// in-process guards apply.
func NewExecutor(
	positions Opener,
	risk FundingChecker,
	locks domain.LockManager,
	dedupTTL time.Duration,
	lockTTL time.Duration,
	logger *slog.Logger,
) *Executor {
	if dedupTTL <= 0 {
		dedupTTL = 2 * time.Minute
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &Executor{
		positions:       positions,
		risk:            risk,
		locks:           locks,
		dedup:           NewDedup(dedupTTL),
		lockTTL:         lockTTL,
		logger:          logger.With(slog.String("component", "executor")),
		cleanupInterval: 30 * time.Second,
	}
}

// Run garbage-collects the dedup window until the context is cancelled.
func (e *Executor) Run(ctx context.Context) error {
	e.logger.Info("executor started")
	defer e.logger.Info("executor stopped")

	cleanupTicker := time.NewTicker(e.cleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-cleanupTicker.C:
			e.dedup.Cleanup()
		}
	}
}

// Execute opens a position for in. Non-actionable decisions are ignored.
// A successful open keeps its dedup entry; any failure releases it so the
// next scan cycle may retry.
func (e *Executor) Execute(ctx context.Context, in Intent) (domain.TrailingState, error) {
	d := in.Decision
	if !d.Actionable() {
		return domain.TrailingState{}, nil
	}
	log := e.logger.With(
		slog.String("symbol", d.Symbol),
		slog.String("signal", string(d.Signal)),
		slog.Float64("score", d.Score),
	)

	// 1. Deduplication.
	key := d.Symbol + ":" + string(d.Signal)
	if e.dedup.IsDuplicate(key) {
		log.Debug("executor: intent deduplicated, skipping")
		return domain.TrailingState{}, ErrDuplicate
	}

	st, err := e.execute(ctx, in, log)
	if err != nil {
		e.dedup.Forget(key)
	}
	return st, err
}

func (e *Executor) execute(ctx context.Context, in Intent, log *slog.Logger) (domain.TrailingState, error) {
	d := in.Decision

	// 2. Distributed lock across bot instances.
	if e.locks != nil {
		unlock, err := e.locks.Acquire(ctx, "open:"+d.Symbol, e.lockTTL)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			log.Debug("executor: open lock held elsewhere, skipping")
			return domain.TrailingState{}, fmt.Errorf("executor: %s: %w", d.Symbol, err)
		case err != nil:
			log.Warn("executor: open lock unavailable, continuing with local guards",
				slog.String("error", err.Error()),
			)
		default:
			defer unlock()
		}
	}

	// 3. Open-position check.
	if e.positions.HasOpen(d.Symbol) {
		return domain.TrailingState{}, fmt.Errorf("executor: %s: %w", d.Symbol, domain.ErrPositionOpen)
	}

	// 4. Funding cap.
	if e.risk != nil {
		if err := e.risk.CheckFunding(ctx, d.Symbol, in.Settings.FundingMax); err != nil {
			log.Info("executor: funding check failed, skipping", slog.String("error", err.Error()))
			return domain.TrailingState{}, err
		}
	}

	// 5. Open.
	st, err := e.positions.Open(ctx, service.OpenRequest{
		Symbol:    d.Symbol,
		Direction: d.Signal,
		Leverage:  in.Leverage,
		Candles:   in.Candles,
		Settings:  in.Settings,
	})
	if err != nil {
		if service.IsCapitalRejection(err) {
			log.Info("executor: investment below minimum, skipping")
		} else {
			log.Error("executor: open failed", slog.String("error", err.Error()))
		}
		return domain.TrailingState{}, err
	}

	log.Info("executor: position opened",
		slog.Int("leverage", in.Leverage),
		slog.Float64("entry", st.EntryPrice),
		slog.Float64("stop", st.InitialStop),
	)
	return st, nil
}

// SetDedupTTL replaces the dedup instance with a new one using the given TTL.
func (e *Executor) SetDedupTTL(ttl time.Duration) {
	e.dedup = NewDedup(ttl)
}

// SetCleanupInterval changes how often the dedup map is garbage-collected.
// Must be called before Run.
func (e *Executor) SetCleanupInterval(d time.Duration) {
	e.cleanupInterval = d
}

var _ fmt.Stringer = (*Executor)(nil)

// String returns a human-readable description of the executor.
func (e *Executor) String() string {
	return fmt.Sprintf("Executor(lock_ttl=%s, distributed=%t)", e.lockTTL, e.locks != nil)
}
