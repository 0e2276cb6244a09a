package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/futuresbot/internal/config"
	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/pattern"
)

// Alert event names.
const (
	EventPositionOpened = "position_opened"
	EventPositionClosed = "position_closed"
	EventEmergencyStop  = "emergency_stop"
	EventError          = "error"
)

// Alerter delivers operator alerts. notify.Notifier satisfies it.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// PositionConfig tunes exit evaluation and bulk close pacing.
type PositionConfig struct {
	CloseBatch   int
	ClosePause   time.Duration
	ExitInterval string
	ExitLimit    int
}

// DefaultPositionConfig closes in batches of 5 with a 1s pause and reads
// exit levels from 100 bars of 15m data.
func DefaultPositionConfig() PositionConfig {
	return PositionConfig{
		CloseBatch:   5,
		ClosePause:   time.Second,
		ExitInterval: "15m",
		ExitLimit:    100,
	}
}

// OpenRequest asks the service to open a position for an actionable
// decision.
type OpenRequest struct {
	Symbol    string
	Direction domain.Direction
	Leverage  int
	Candles   []domain.Candle
	Settings  config.TradingSettings
}

// PositionView is a live position annotated with its trailing state.
type PositionView struct {
	domain.PositionSnapshot
	Direction domain.Direction      `json:"direction"`
	Trailing  *domain.TrailingState `json:"trailing,omitempty"`
	StopPrice float64               `json:"trail_stop,omitempty"`
}

// PositionService owns the position lifecycle: sizing and opening, exit
// evaluation, closing, and reconciliation of positions closed outside the
// bot. Work on one symbol is serialized.
type PositionService struct {
	exchange domain.Exchange
	market   *MarketService
	trails   *TrailingBook
	stats    *StatsTracker
	journal  *Journal
	audit    domain.AuditStore
	alerts   Alerter
	bus      domain.SignalBus
	cfg      PositionConfig
	logger   *slog.Logger

	locks *keyedMutex

	liveMu sync.Mutex
	live   map[string]domain.PositionSnapshot
	// closedAt records bot-initiated closes so a position list fetched
	// before the close cannot resurrect the symbol.
	closedAt map[string]time.Time
	// openedAt records bot-initiated opens so a position list fetched
	// before the entry filled cannot report the symbol as gone.
	openedAt map[string]time.Time

	now func() time.Time
}

// NewPositionService creates a PositionService. audit, alerts and bus may
// be nil.
func NewPositionService(
	exchange domain.Exchange,
	market *MarketService,
	trails *TrailingBook,
	stats *StatsTracker,
	journal *Journal,
	audit domain.AuditStore,
	alerts Alerter,
	bus domain.SignalBus,
	cfg PositionConfig,
	logger *slog.Logger,
) *PositionService {
	def := DefaultPositionConfig()
	if cfg.CloseBatch <= 0 {
		cfg.CloseBatch = def.CloseBatch
	}
	if cfg.ExitInterval == "" {
		cfg.ExitInterval = def.ExitInterval
	}
	if cfg.ExitLimit <= 0 {
		cfg.ExitLimit = def.ExitLimit
	}
	return &PositionService{
		exchange: exchange,
		market:   market,
		trails:   trails,
		stats:    stats,
		journal:  journal,
		audit:    audit,
		alerts:   alerts,
		bus:      bus,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "position_service")),
		locks:    newKeyedMutex(),
		live:     make(map[string]domain.PositionSnapshot),
		closedAt: make(map[string]time.Time),
		openedAt: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Trails exposes the trailing book.
func (s *PositionService) Trails() *TrailingBook { return s.trails }

// Stats exposes the running counters.
func (s *PositionService) Stats() *StatsTracker { return s.stats }

// HasOpen reports whether the bot tracks symbol as open.
func (s *PositionService) HasOpen(symbol string) bool {
	if s.trails.Has(symbol) {
		return true
	}
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	_, ok := s.live[symbol]
	return ok
}

// Open sizes and places a market entry with a protective stop, then starts
// trailing the position.
func (s *PositionService) Open(ctx context.Context, req OpenRequest) (domain.TrailingState, error) {
	if req.Direction != domain.DirectionLong && req.Direction != domain.DirectionShort {
		return domain.TrailingState{}, fmt.Errorf("position_service: open %s: %w: direction %q", req.Symbol, domain.ErrInvalidOrder, req.Direction)
	}

	unlock := s.locks.Lock(req.Symbol)
	defer unlock()

	if s.HasOpen(req.Symbol) {
		return domain.TrailingState{}, fmt.Errorf("position_service: open %s: %w", req.Symbol, domain.ErrPositionOpen)
	}

	balance, err := s.exchange.Balance(ctx)
	if err != nil {
		balance = s.stats.Balance()
		s.logger.WarnContext(ctx, "position_service: balance unavailable, using last known",
			slog.String("symbol", req.Symbol),
			slog.Float64("balance", balance),
			slog.String("error", err.Error()),
		)
	} else {
		s.stats.SetBalance(balance)
	}

	set := req.Settings
	if inv := Investment(balance, set.BudgetPct); inv < MinInvestment {
		s.journal.Warn(ctx, true, "%s: insufficient balance (investment %.2f)", req.Symbol, inv)
		return domain.TrailingState{}, fmt.Errorf("position_service: open %s: %w", req.Symbol, domain.ErrBelowMinNotional)
	}

	margin := domain.MarginCrossed
	if set.Isolated {
		margin = domain.MarginIsolated
	}
	if err := s.exchange.SetMarginType(ctx, req.Symbol, margin); err != nil {
		s.logger.WarnContext(ctx, "position_service: set margin type failed",
			slog.String("symbol", req.Symbol),
			slog.String("error", err.Error()),
		)
	}
	if err := s.exchange.SetLeverage(ctx, req.Symbol, req.Leverage); err != nil {
		s.journal.Warn(ctx, true, "%s: leverage change failed: %v", req.Symbol, err)
	}

	price, err := s.market.Price(ctx, req.Symbol)
	if err != nil {
		s.journal.Error(ctx, "%s: price unavailable: %v", req.Symbol, err)
		return domain.TrailingState{}, fmt.Errorf("position_service: open %s: price: %w", req.Symbol, err)
	}

	plan, err := PlanEntry(EntryInput{
		Direction:   req.Direction,
		Balance:     balance,
		BudgetPct:   set.BudgetPct,
		StopLossPct: set.StopLossPct,
		Leverage:    req.Leverage,
		Price:       price,
		Filters:     s.market.Filters(ctx, req.Symbol),
		Candles:     req.Candles,
	})
	if err != nil {
		return domain.TrailingState{}, fmt.Errorf("position_service: open %s: %w", req.Symbol, err)
	}

	if _, err := s.exchange.PlaceOrder(ctx, domain.MarketOrder(req.Symbol, req.Direction.EntrySide(), plan.Quantity, plan.QtyPrecision)); err != nil {
		s.journal.Error(ctx, "%s: entry order failed: %v", req.Symbol, err)
		s.alert(ctx, EventError, "Entry failed", fmt.Sprintf("%s %s: %v", req.Symbol, req.Direction, err))
		return domain.TrailingState{}, fmt.Errorf("position_service: open %s: entry: %w", req.Symbol, err)
	}
	s.journal.Info(ctx, true, "%s %s opened: %s @ %s | ATR %.6f",
		req.Symbol, req.Direction, formatQty(plan.Quantity, plan.QtyPrecision), formatQty(price, plan.PricePrecision), plan.ATR)

	amount := plan.Quantity
	if req.Direction == domain.DirectionShort {
		amount = -amount
	}
	s.trackLive(domain.PositionSnapshot{
		Symbol:     req.Symbol,
		Amount:     amount,
		MarkPrice:  price,
		EntryPrice: price,
		Leverage:   req.Leverage,
	})
	s.stats.RecordOpen()

	if _, err := s.exchange.PlaceOrder(ctx, domain.StopMarketClose(req.Symbol, req.Direction.CloseSide(), plan.StopPrice, plan.PricePrecision)); err != nil {
		s.journal.Error(ctx, "%s: stop loss order failed: %v", req.Symbol, err)
		s.alert(ctx, EventError, "Stop loss failed", fmt.Sprintf("%s: %v", req.Symbol, err))
		s.auditLog(ctx, "stop_order_failed", map[string]any{"symbol": req.Symbol, "error": err.Error()})
		return domain.TrailingState{}, fmt.Errorf("position_service: open %s: stop: %w", req.Symbol, err)
	}
	s.journal.Info(ctx, true, "%s stop loss at %s", req.Symbol, formatQty(plan.StopPrice, plan.PricePrecision))

	mult := set.TrailMultiplier
	if !(mult > 0) {
		mult = config.DefaultTradingSettings().TrailMultiplier
	}
	st := domain.TrailingState{
		Symbol:      req.Symbol,
		ATR:         plan.ATR,
		Direction:   req.Direction,
		EntryPrice:  price,
		PeakPrice:   price,
		InitialStop: plan.StopPrice,
		Multiplier:  mult,
		OpenedAt:    s.now().UTC(),
	}
	s.trails.Put(ctx, st)

	s.auditLog(ctx, EventPositionOpened, map[string]any{
		"symbol":     req.Symbol,
		"direction":  string(req.Direction),
		"quantity":   plan.Quantity,
		"price":      price,
		"stop":       plan.StopPrice,
		"atr":        plan.ATR,
		"leverage":   req.Leverage,
		"investment": plan.Investment,
	})
	s.alert(ctx, EventPositionOpened, "Position opened",
		fmt.Sprintf("%s %s %s @ %s, %dx, stop %s", req.Symbol, req.Direction,
			formatQty(plan.Quantity, plan.QtyPrecision), formatQty(price, plan.PricePrecision), req.Leverage,
			formatQty(plan.StopPrice, plan.PricePrecision)))
	s.publishTrade(ctx, EventPositionOpened, st)

	return st, nil
}

// Evaluate runs the exit rules for one live position and closes it when a
// rule fires. The first matching rule wins.
func (s *PositionService) Evaluate(ctx context.Context, pos domain.PositionSnapshot, balance float64, set config.TradingSettings) (bool, error) {
	if pos.Amount == 0 {
		s.trails.Delete(ctx, pos.Symbol)
		return false, nil
	}
	price := pos.MarkPrice

	if trail, ok := s.trails.Get(pos.Symbol); ok {
		if !(trail.ATR > 0) {
			trail.ATR = price * atrFallbackPct
			s.trails.SetATR(ctx, pos.Symbol, trail.ATR)
		}

		if trail.ProfitPct(price) >= set.TakeProfitPct {
			trail, _ = s.trails.Ratchet(ctx, pos.Symbol, price)
			if trail.Breached(price) {
				s.journal.Info(ctx, true, "%s ATR exit: profit %.2f%% | peak %.6f -> %.6f",
					pos.Symbol, trail.ProfitPct(price), trail.PeakPrice, price)
				return s.closeFor(ctx, pos.Symbol, domain.ExitATRTrailing)
			}
			if reason, hit := s.structuralExit(ctx, trail, price); hit {
				return s.closeFor(ctx, pos.Symbol, reason)
			}
		}
	}

	if EmergencyTriggered(pos.UnrealizedPnL, balance) {
		s.journal.Warn(ctx, true, "%s emergency cut: unrealized %.2f USDT", pos.Symbol, pos.UnrealizedPnL)
		s.alert(ctx, EventEmergencyStop, "Emergency drawdown",
			fmt.Sprintf("%s unrealized %.2f USDT exceeds 10%% of balance %.2f", pos.Symbol, pos.UnrealizedPnL, balance))
		return s.closeFor(ctx, pos.Symbol, domain.ExitEmergency)
	}
	return false, nil
}

// structuralExit checks chandelier, swing and structure-break levels on a
// fresh series.
func (s *PositionService) structuralExit(ctx context.Context, trail domain.TrailingState, price float64) (domain.ExitReason, bool) {
	candles, err := s.market.FreshKlines(ctx, trail.Symbol, s.cfg.ExitInterval, s.cfg.ExitLimit)
	if err != nil {
		s.logger.DebugContext(ctx, "position_service: exit klines unavailable",
			slog.String("symbol", trail.Symbol),
			slog.String("error", err.Error()),
		)
		return "", false
	}
	long := trail.Direction != domain.DirectionShort

	if ce, ok := pattern.Chandelier(candles, trail.Direction, trail.ATR, pattern.ChandelierPeriod, pattern.ChandelierMult); ok {
		if (long && price <= ce) || (!long && price >= ce) {
			s.journal.Info(ctx, true, "%s chandelier exit: %.6f (level %.6f)", trail.Symbol, price, ce)
			return domain.ExitChandelier, true
		}
	}
	if lvl, ok := pattern.SwingLevel(candles, trail.Direction, pattern.SwingExitLookback); ok {
		if (long && price < lvl) || (!long && price > lvl) {
			s.journal.Info(ctx, true, "%s swing exit: %.6f (level %.6f)", trail.Symbol, price, lvl)
			return domain.ExitSwing, true
		}
	}
	if lvl, ok := pattern.StructureBreakLevel(candles, trail.Direction, pattern.StructureLookback); ok {
		if (long && price < lvl) || (!long && price > lvl) {
			s.journal.Info(ctx, true, "%s structure break exit: %.6f (level %.6f)", trail.Symbol, price, lvl)
			return domain.ExitStructureBreak, true
		}
	}
	return "", false
}

func (s *PositionService) closeFor(ctx context.Context, symbol string, reason domain.ExitReason) (bool, error) {
	if _, err := s.Close(ctx, symbol, reason); err != nil {
		if errors.Is(err, domain.ErrNoPosition) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Close flattens symbol with a reduce-only market order, books the PnL and
// clears its orders and trailing state.
func (s *PositionService) Close(ctx context.Context, symbol string, reason domain.ExitReason) (domain.ClosedTrade, error) {
	unlock := s.locks.Lock(symbol)
	defer unlock()

	positions, err := s.exchange.Positions(ctx, symbol)
	if err != nil {
		s.journal.Error(ctx, "%s close failed: %v", symbol, err)
		return domain.ClosedTrade{}, fmt.Errorf("position_service: close %s: positions: %w", symbol, err)
	}
	var pos domain.PositionSnapshot
	for _, p := range positions {
		if p.Symbol == symbol && p.Amount != 0 {
			pos = p
			break
		}
	}
	if pos.Amount == 0 {
		s.trails.Delete(ctx, symbol)
		s.untrackLive(symbol)
		return domain.ClosedTrade{}, fmt.Errorf("position_service: close %s: %w", symbol, domain.ErrNoPosition)
	}

	dir := pos.Direction()
	qty := pos.Quantity()
	res, err := s.exchange.PlaceOrder(ctx, domain.ReduceOnlyMarket(symbol, dir.CloseSide(), qty))
	if err != nil {
		s.journal.Error(ctx, "%s close order failed: %v", symbol, err)
		s.alert(ctx, EventError, "Close failed", fmt.Sprintf("%s: %v", symbol, err))
		return domain.ClosedTrade{}, fmt.Errorf("position_service: close %s: order: %w", symbol, err)
	}
	s.untrackLive(symbol)

	exit := res.AvgPrice
	if !(exit > 0) {
		if p, perr := s.market.Price(ctx, symbol); perr == nil && p > 0 {
			exit = p
		} else {
			exit = pos.EntryPrice
		}
	}
	pnl := (exit - pos.EntryPrice) * qty
	if dir == domain.DirectionShort {
		pnl = (pos.EntryPrice - exit) * qty
	}
	s.stats.RecordClose(pnl)

	s.cancelOrders(ctx, symbol)
	s.trails.Delete(ctx, symbol)

	trade := domain.ClosedTrade{
		Symbol:     symbol,
		Direction:  dir,
		Quantity:   qty,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exit,
		PnL:        pnl,
		Reason:     reason,
		ClosedAt:   s.now().UTC(),
	}
	s.journal.Info(ctx, true, "%s closed (%s): PnL %.2f USDT", symbol, reason, pnl)
	s.recordClosed(ctx, trade)
	return trade, nil
}

// CloseAll closes every live position sequentially, pausing after each
// batch. It returns once every close attempt has finished.
func (s *PositionService) CloseAll(ctx context.Context) (closed, failed int, err error) {
	positions, err := s.exchange.Positions(ctx, "")
	if err != nil {
		s.journal.Error(ctx, "close all failed: %v", err)
		return 0, 0, fmt.Errorf("position_service: close all: %w", err)
	}
	if len(positions) == 0 {
		s.journal.Info(ctx, true, "no open positions to close")
		return 0, 0, nil
	}
	s.journal.Warn(ctx, true, "closing %d positions", len(positions))

	for i, p := range positions {
		if _, cerr := s.Close(ctx, p.Symbol, domain.ExitBulk); cerr != nil {
			if !errors.Is(cerr, domain.ErrNoPosition) {
				failed++
			}
		} else {
			closed++
		}
		if (i+1)%s.cfg.CloseBatch == 0 && i+1 < len(positions) {
			if err := sleepCtx(ctx, s.cfg.ClosePause); err != nil {
				return closed, failed, err
			}
		}
	}
	s.journal.Info(ctx, true, "close all finished: %d closed, %d failed", closed, failed)
	return closed, failed, nil
}

// SyncLive replaces the live set with current, fetched at fetchedAt, and
// returns the positions that disappeared since the previous call. Symbols
// opened after fetchedAt stay live even when current lacks them.
func (s *PositionService) SyncLive(current []domain.PositionSnapshot, fetchedAt time.Time) []domain.PositionSnapshot {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()

	next := make(map[string]domain.PositionSnapshot, len(current))
	for _, p := range current {
		if p.Amount == 0 {
			continue
		}
		if at, ok := s.closedAt[p.Symbol]; ok && at.After(fetchedAt) {
			continue
		}
		next[p.Symbol] = p
	}
	for sym, at := range s.closedAt {
		if !at.After(fetchedAt) {
			delete(s.closedAt, sym)
		}
	}
	for sym, at := range s.openedAt {
		if !at.After(fetchedAt) {
			delete(s.openedAt, sym)
			continue
		}
		if _, ok := next[sym]; !ok {
			if prev, tracked := s.live[sym]; tracked {
				next[sym] = prev
			}
		}
	}

	var gone []domain.PositionSnapshot
	for sym, prev := range s.live {
		if _, ok := next[sym]; !ok {
			gone = append(gone, prev)
		}
	}
	s.live = next
	sort.Slice(gone, func(i, j int) bool { return gone[i].Symbol < gone[j].Symbol })
	return gone
}

// Reconcile books positions closed outside the bot (stop hit, liquidation,
// manual exchange action) using the exchange's last realized PnL, falling
// back to the last known mark.
func (s *PositionService) Reconcile(ctx context.Context, gone []domain.PositionSnapshot) {
	for _, g := range gone {
		s.reconcileOne(ctx, g)
	}
}

func (s *PositionService) reconcileOne(ctx context.Context, g domain.PositionSnapshot) {
	unlock := s.locks.Lock(g.Symbol)
	defer unlock()

	s.journal.Info(ctx, true, "%s position closed, cleaning up", g.Symbol)

	pnl, err := s.exchange.LastRealizedPnL(ctx, g.Symbol)
	if err != nil || pnl == 0 {
		pnl = (g.MarkPrice - g.EntryPrice) * g.Amount
	}
	s.stats.RecordClose(pnl)
	s.cancelOrders(ctx, g.Symbol)
	s.trails.Delete(ctx, g.Symbol)

	s.journal.Info(ctx, true, "%s realized PnL booked: %.2f USDT", g.Symbol, pnl)
	s.recordClosed(ctx, domain.ClosedTrade{
		Symbol:     g.Symbol,
		Direction:  g.Direction(),
		Quantity:   g.Quantity(),
		EntryPrice: g.EntryPrice,
		ExitPrice:  g.MarkPrice,
		PnL:        pnl,
		Reason:     domain.ExitExternal,
		ClosedAt:   s.now().UTC(),
	})
}

// Restore seeds the live set from current and resumes trailing for any
// mirrored state whose position is still open.
func (s *PositionService) Restore(ctx context.Context, current []domain.PositionSnapshot) (int, error) {
	s.SyncLive(current, s.now())
	live := make(map[string]bool, len(current))
	for _, p := range current {
		live[p.Symbol] = true
	}
	n, err := s.trails.Restore(ctx, live)
	if err != nil {
		return 0, fmt.Errorf("position_service: restore trailing: %w", err)
	}
	if n > 0 {
		s.journal.Info(ctx, true, "resumed trailing for %d positions", n)
	}
	return n, nil
}

// Views annotates positions with trailing state, ordered by symbol.
func (s *PositionService) Views(positions []domain.PositionSnapshot) []PositionView {
	out := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		v := PositionView{PositionSnapshot: p, Direction: p.Direction()}
		if st, ok := s.trails.Get(p.Symbol); ok {
			v.Trailing = &st
			v.StopPrice = st.StopPrice()
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// LiveSnapshot returns the positions seen on the last sync.
func (s *PositionService) LiveSnapshot() []domain.PositionSnapshot {
	s.liveMu.Lock()
	out := make([]domain.PositionSnapshot, 0, len(s.live))
	for _, p := range s.live {
		out = append(out, p)
	}
	s.liveMu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (s *PositionService) trackLive(p domain.PositionSnapshot) {
	s.liveMu.Lock()
	s.live[p.Symbol] = p
	s.openedAt[p.Symbol] = s.now()
	delete(s.closedAt, p.Symbol)
	s.liveMu.Unlock()
}

func (s *PositionService) untrackLive(symbol string) {
	s.liveMu.Lock()
	delete(s.live, symbol)
	delete(s.openedAt, symbol)
	s.closedAt[symbol] = s.now()
	s.liveMu.Unlock()
}

func (s *PositionService) cancelOrders(ctx context.Context, symbol string) {
	if err := s.exchange.CancelAllOrders(ctx, symbol); err != nil {
		s.logger.WarnContext(ctx, "position_service: cancel orders failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
	}
}

func (s *PositionService) recordClosed(ctx context.Context, trade domain.ClosedTrade) {
	s.auditLog(ctx, EventPositionClosed, map[string]any{
		"symbol":      trade.Symbol,
		"direction":   string(trade.Direction),
		"quantity":    trade.Quantity,
		"entry_price": trade.EntryPrice,
		"exit_price":  trade.ExitPrice,
		"pnl":         trade.PnL,
		"reason":      string(trade.Reason),
	})
	s.alert(ctx, EventPositionClosed, "Position closed",
		fmt.Sprintf("%s %s (%s) PnL %.2f USDT", trade.Symbol, trade.Direction, trade.Reason, trade.PnL))
	s.publishTrade(ctx, EventPositionClosed, trade)
}

func (s *PositionService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "position_service: audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (s *PositionService) alert(ctx context.Context, event, title, msg string) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Notify(ctx, event, title, msg); err != nil {
		s.logger.WarnContext(ctx, "position_service: alert failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

type tradeEvent struct {
	Event string    `json:"event"`
	Data  any       `json:"data"`
	Time  time.Time `json:"time"`
}

func (s *PositionService) publishTrade(ctx context.Context, event string, data any) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(tradeEvent{Event: event, Data: data, Time: s.now().UTC()})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelTrades, payload); err != nil {
		s.logger.WarnContext(ctx, "position_service: publish event failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.StreamAppend(ctx, domain.StreamTrades, payload); err != nil {
		s.logger.WarnContext(ctx, "position_service: stream append failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// formatQty renders v with prec decimals for operator messages.
func formatQty(v float64, prec int) string {
	if prec < 0 || math.IsNaN(v) {
		return fmt.Sprint(v)
	}
	return fmt.Sprintf("%.*f", prec, v)
}
