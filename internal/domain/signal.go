package domain

import "time"

// Direction is the side of a composite decision or an open position.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionHold  Direction = "HOLD"
)

// CloseSide returns the order side that closes a position in this direction.
func (d Direction) CloseSide() OrderSide {
	if d == DirectionShort {
		return OrderSideBuy
	}
	return OrderSideSell
}

// EntrySide returns the order side that opens a position in this direction.
func (d Direction) EntrySide() OrderSide {
	if d == DirectionShort {
		return OrderSideSell
	}
	return OrderSideBuy
}

// ModuleScore is the result of one scoring module. Skipped modules carry a
// reason but never points.
type ModuleScore struct {
	Module  string  `json:"module"`
	Long    float64 `json:"long"`
	Short   float64 `json:"short"`
	Reason  string  `json:"reason,omitempty"`
	Skipped bool    `json:"skipped,omitempty"`
}

// Decision is the composite output of the signal engine.
type Decision struct {
	Symbol    string        `json:"symbol,omitempty"`
	Signal    Direction     `json:"signal"`
	Score     float64       `json:"score"`
	Long      float64       `json:"long"`
	Short     float64       `json:"short"`
	Reason    string        `json:"reason"`
	Modules   []ModuleScore `json:"modules,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Actionable reports whether the decision asks for a position.
func (d Decision) Actionable() bool {
	return d.Signal == DirectionLong || d.Signal == DirectionShort
}
