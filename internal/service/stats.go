package service

import (
	"sync"
	"time"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

// StatsTracker keeps the in-memory running counters. They reset on restart.
type StatsTracker struct {
	mu sync.Mutex
	s  domain.Stats
}

// NewStatsTracker starts the counters at now.
func NewStatsTracker(now time.Time) *StatsTracker {
	return &StatsTracker{s: domain.Stats{StartedAt: now}}
}

// SetBalance records the latest wallet balance. The first positive value
// becomes the start balance.
func (t *StatsTracker) SetBalance(balance float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Balance = balance
	if t.s.StartBalance == 0 && balance > 0 {
		t.s.StartBalance = balance
	}
}

// Balance returns the last recorded balance.
func (t *StatsTracker) Balance() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s.Balance
}

// RecordOpen counts a newly opened trade.
func (t *StatsTracker) RecordOpen() {
	t.mu.Lock()
	t.s.Trades++
	t.mu.Unlock()
}

// RecordClose adds pnl to realized PnL. Positive pnl counts as a win,
// anything else as a loss.
func (t *StatsTracker) RecordClose(pnl float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.RealizedPnL += pnl
	if pnl > 0 {
		t.s.Wins++
	} else {
		t.s.Losses++
	}
}

// SetExposure records the open position count and total notional.
func (t *StatsTracker) SetExposure(positions []domain.PositionSnapshot) {
	var notional float64
	for _, p := range positions {
		notional += p.Notional()
	}
	t.mu.Lock()
	t.s.OpenPositions = len(positions)
	t.s.OpenNotional = notional
	t.mu.Unlock()
}

// Snapshot returns a copy of the counters.
func (t *StatsTracker) Snapshot() domain.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}
