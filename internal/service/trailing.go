package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

// TrailingBook holds at most one TrailingState per symbol. Every mutation
// is mirrored to the optional store so a restart can resume trailing.
type TrailingBook struct {
	mu     sync.Mutex
	states map[string]domain.TrailingState
	store  domain.TrailingStore
	logger *slog.Logger
}

// NewTrailingBook creates an empty book. store may be nil.
func NewTrailingBook(store domain.TrailingStore, logger *slog.Logger) *TrailingBook {
	return &TrailingBook{
		states: make(map[string]domain.TrailingState),
		store:  store,
		logger: logger.With(slog.String("component", "trailing_book")),
	}
}

// Put stores st, replacing any previous state for the symbol.
func (b *TrailingBook) Put(ctx context.Context, st domain.TrailingState) {
	b.mu.Lock()
	b.states[st.Symbol] = st
	b.mu.Unlock()
	b.mirror(ctx, st)
}

// Get returns the state for symbol.
func (b *TrailingBook) Get(symbol string) (domain.TrailingState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.states[symbol]
	return st, ok
}

// Has reports whether symbol is being trailed.
func (b *TrailingBook) Has(symbol string) bool {
	_, ok := b.Get(symbol)
	return ok
}

// Ratchet moves the peak for symbol toward price and returns the updated
// state. Peaks never move against the position.
func (b *TrailingBook) Ratchet(ctx context.Context, symbol string, price float64) (domain.TrailingState, bool) {
	b.mu.Lock()
	st, ok := b.states[symbol]
	if !ok {
		b.mu.Unlock()
		return domain.TrailingState{}, false
	}
	before := st.PeakPrice
	st.Ratchet(price)
	b.states[symbol] = st
	b.mu.Unlock()

	if st.PeakPrice != before {
		b.mirror(ctx, st)
	}
	return st, true
}

// SetATR replaces the ATR for symbol.
func (b *TrailingBook) SetATR(ctx context.Context, symbol string, atr float64) {
	b.mu.Lock()
	st, ok := b.states[symbol]
	if ok {
		st.ATR = atr
		b.states[symbol] = st
	}
	b.mu.Unlock()
	if ok {
		b.mirror(ctx, st)
	}
}

// Delete removes the state for symbol. It reports whether one existed.
func (b *TrailingBook) Delete(ctx context.Context, symbol string) bool {
	b.mu.Lock()
	_, ok := b.states[symbol]
	delete(b.states, symbol)
	b.mu.Unlock()

	if b.store != nil {
		if err := b.store.Delete(ctx, symbol); err != nil {
			b.logger.WarnContext(ctx, "trailing_book: store delete failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}
	return ok
}

// Snapshot returns every state ordered by symbol.
func (b *TrailingBook) Snapshot() []domain.TrailingState {
	b.mu.Lock()
	out := make([]domain.TrailingState, 0, len(b.states))
	for _, st := range b.states {
		out = append(out, st)
	}
	b.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Len returns the number of trailed symbols.
func (b *TrailingBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.states)
}

// Restore loads mirrored states for symbols that are still live and drops
// the rest from the store. It returns how many were restored.
func (b *TrailingBook) Restore(ctx context.Context, live map[string]bool) (int, error) {
	if b.store == nil {
		return 0, nil
	}
	states, err := b.store.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, st := range states {
		if !live[st.Symbol] {
			_ = b.store.Delete(ctx, st.Symbol)
			continue
		}
		b.mu.Lock()
		b.states[st.Symbol] = st
		b.mu.Unlock()
		restored++
	}
	return restored, nil
}

func (b *TrailingBook) mirror(ctx context.Context, st domain.TrailingState) {
	if b.store == nil {
		return
	}
	if err := b.store.Save(ctx, st); err != nil {
		b.logger.WarnContext(ctx, "trailing_book: store save failed",
			slog.String("symbol", st.Symbol),
			slog.String("error", err.Error()),
		)
	}
}
