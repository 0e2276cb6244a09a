package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

func testLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

// fakeExchange implements domain.Exchange with overridable behaviour and
// records every order it receives.
type fakeExchange struct {
	mu sync.Mutex

	tickers   []domain.Ticker
	klines    func(symbol string, call int) ([]domain.Candle, error)
	klineCall int
	price     float64
	priceErr  error
	filters   domain.SymbolFilters
	funding   float64
	fundErr   error

	positions   []domain.PositionSnapshot
	positionErr error
	balance     float64
	balanceErr  error
	placeOrder  func(req domain.OrderRequest) (domain.OrderResult, error)
	realized    float64
	realizedErr error

	orders    []domain.OrderRequest
	cancelled []string
	leverage  map[string]int
	margin    map[string]domain.MarginType
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		price:    100,
		balance:  1000,
		filters:  domain.SymbolFilters{StepSize: 0.1, TickSize: 0.01},
		leverage: make(map[string]int),
		margin:   make(map[string]domain.MarginType),
	}
}

func (f *fakeExchange) Tickers24h(context.Context) ([]domain.Ticker, error) {
	return f.tickers, nil
}

func (f *fakeExchange) Klines(_ context.Context, symbol, _ string, _ int) ([]domain.Candle, error) {
	f.mu.Lock()
	f.klineCall++
	call := f.klineCall
	fn := f.klines
	f.mu.Unlock()
	if fn == nil {
		return nil, domain.ErrNotFound
	}
	return fn(symbol, call)
}

func (f *fakeExchange) Price(context.Context, string) (float64, error) {
	return f.price, f.priceErr
}

func (f *fakeExchange) SymbolFilters(context.Context, string) (domain.SymbolFilters, error) {
	return f.filters, nil
}

func (f *fakeExchange) FundingRate(context.Context, string) (float64, error) {
	return f.funding, f.fundErr
}

func (f *fakeExchange) Positions(_ context.Context, symbol string) ([]domain.PositionSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.positionErr != nil {
		return nil, f.positionErr
	}
	var out []domain.PositionSnapshot
	for _, p := range f.positions {
		if symbol == "" || p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeExchange) Balance(context.Context) (float64, error) {
	return f.balance, f.balanceErr
}

func (f *fakeExchange) PlaceOrder(_ context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	f.mu.Lock()
	f.orders = append(f.orders, req)
	fn := f.placeOrder
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return domain.OrderResult{Symbol: req.Symbol, Status: "FILLED"}, nil
}

func (f *fakeExchange) SetLeverage(_ context.Context, symbol string, lev int) error {
	f.mu.Lock()
	f.leverage[symbol] = lev
	f.mu.Unlock()
	return nil
}

func (f *fakeExchange) SetMarginType(_ context.Context, symbol string, mt domain.MarginType) error {
	f.mu.Lock()
	f.margin[symbol] = mt
	f.mu.Unlock()
	return nil
}

func (f *fakeExchange) CancelAllOrders(_ context.Context, symbol string) error {
	f.mu.Lock()
	f.cancelled = append(f.cancelled, symbol)
	f.mu.Unlock()
	return nil
}

func (f *fakeExchange) LastRealizedPnL(context.Context, string) (float64, error) {
	return f.realized, f.realizedErr
}

func (f *fakeExchange) setPositions(p ...domain.PositionSnapshot) {
	f.mu.Lock()
	f.positions = p
	f.mu.Unlock()
}

func (f *fakeExchange) placed() []domain.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.OrderRequest(nil), f.orders...)
}

// memTrailingStore is an in-memory domain.TrailingStore.
type memTrailingStore struct {
	mu     sync.Mutex
	states map[string]domain.TrailingState
}

func newMemTrailingStore() *memTrailingStore {
	return &memTrailingStore{states: make(map[string]domain.TrailingState)}
}

func (m *memTrailingStore) Save(_ context.Context, st domain.TrailingState) error {
	m.mu.Lock()
	m.states[st.Symbol] = st
	m.mu.Unlock()
	return nil
}

func (m *memTrailingStore) Delete(_ context.Context, symbol string) error {
	m.mu.Lock()
	delete(m.states, symbol)
	m.mu.Unlock()
	return nil
}

func (m *memTrailingStore) LoadAll(context.Context) ([]domain.TrailingState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TrailingState, 0, len(m.states))
	for _, st := range m.states {
		out = append(out, st)
	}
	return out, nil
}

// recordingAudit captures audit events.
type recordingAudit struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingAudit) Log(_ context.Context, event string, _ map[string]any) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *recordingAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (r *recordingAudit) ListBefore(context.Context, time.Time) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (r *recordingAudit) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }

func (r *recordingAudit) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// recordingAlerter captures alert events.
type recordingAlerter struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingAlerter) Notify(_ context.Context, event, _, _ string) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *recordingAlerter) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// trendCandles returns n bars rising by step from start with a 0.5 range.
func trendCandles(n int, start, step float64) []domain.Candle {
	out := make([]domain.Candle, n)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		c := start + float64(i)*step
		out[i] = domain.Candle{
			OpenTime: base.Add(time.Duration(i) * 15 * time.Minute),
			Open:     c - step/2,
			High:     c + 0.25,
			Low:      c - 0.25,
			Close:    c,
			Volume:   1000,
		}
	}
	return out
}

// swingCandles returns n bars whose closes alternate by pct percent.
func swingCandles(n int, pct float64) []domain.Candle {
	out := make([]domain.Candle, n)
	price := 100.0
	for i := range out {
		if i%2 == 0 {
			price *= 1 + pct/100
		} else {
			price /= 1 + pct/100
		}
		out[i] = domain.Candle{Open: price, High: price * 1.001, Low: price * 0.999, Close: price, Volume: 1}
	}
	return out
}
