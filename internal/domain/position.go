package domain

import (
	"math"
	"time"
)

// PositionSnapshot is the exchange's view of one open position. Amount is
// signed: positive for long, negative for short.
type PositionSnapshot struct {
	Symbol        string  `json:"symbol"`
	Amount        float64 `json:"amount"`
	MarkPrice     float64 `json:"mark_price"`
	EntryPrice    float64 `json:"entry_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	Leverage      int     `json:"leverage"`
}

// Direction derives the position side from the signed amount.
func (p PositionSnapshot) Direction() Direction {
	switch {
	case p.Amount > 0:
		return DirectionLong
	case p.Amount < 0:
		return DirectionShort
	default:
		return DirectionHold
	}
}

// Quantity returns the absolute position size.
func (p PositionSnapshot) Quantity() float64 { return math.Abs(p.Amount) }

// Notional returns the absolute position value at mark price.
func (p PositionSnapshot) Notional() float64 { return p.Quantity() * p.MarkPrice }

// TrailingState tracks the favorable extreme of an open position and the
// parameters of its ATR trailing stop.
type TrailingState struct {
	Symbol      string    `json:"symbol"`
	ATR         float64   `json:"atr"`
	Direction   Direction `json:"direction"`
	EntryPrice  float64   `json:"entry_price"`
	PeakPrice   float64   `json:"peak_price"`
	InitialStop float64   `json:"initial_stop"`
	Multiplier  float64   `json:"multiplier"`
	OpenedAt    time.Time `json:"opened_at"`
}

// ProfitPct returns the unrealized profit percentage at price.
func (t TrailingState) ProfitPct(price float64) float64 {
	if t.EntryPrice == 0 {
		return 0
	}
	if t.Direction == DirectionShort {
		return (t.EntryPrice - price) / t.EntryPrice * 100
	}
	return (price - t.EntryPrice) / t.EntryPrice * 100
}

// Ratchet moves the peak in the favorable direction only.
func (t *TrailingState) Ratchet(price float64) {
	if t.Direction == DirectionShort {
		if price < t.PeakPrice {
			t.PeakPrice = price
		}
		return
	}
	if price > t.PeakPrice {
		t.PeakPrice = price
	}
}

// StopPrice returns the current ATR trailing exit level.
func (t TrailingState) StopPrice() float64 {
	if t.Direction == DirectionShort {
		return t.PeakPrice + t.ATR*t.Multiplier
	}
	return t.PeakPrice - t.ATR*t.Multiplier
}

// Breached reports whether price has retraced past the trailing stop.
func (t TrailingState) Breached(price float64) bool {
	if t.Direction == DirectionShort {
		return price >= t.StopPrice()
	}
	return price <= t.StopPrice()
}

// ExitReason labels why a position was closed.
type ExitReason string

const (
	ExitATRTrailing    ExitReason = "atr_trailing"
	ExitChandelier     ExitReason = "chandelier"
	ExitSwing          ExitReason = "swing"
	ExitStructureBreak ExitReason = "structure_break"
	ExitEmergency      ExitReason = "emergency_drawdown"
	ExitManual         ExitReason = "manual"
	ExitBulk           ExitReason = "close_all"
	ExitExternal       ExitReason = "external"
)

// ClosedTrade is the reconciled result of a closed position.
type ClosedTrade struct {
	Symbol     string     `json:"symbol"`
	Direction  Direction  `json:"direction"`
	Quantity   float64    `json:"quantity"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	PnL        float64    `json:"pnl"`
	Reason     ExitReason `json:"reason"`
	ClosedAt   time.Time  `json:"closed_at"`
}
