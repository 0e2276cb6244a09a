package domain

// Ticker is a 24h rolling statistics entry for one symbol.
type Ticker struct {
	Symbol      string  `json:"symbol"`
	LastPrice   float64 `json:"last_price"`
	QuoteVolume float64 `json:"quote_volume"`
}

// SymbolFilters holds the rounding increments for an instrument.
type SymbolFilters struct {
	StepSize float64 `json:"step_size"`
	TickSize float64 `json:"tick_size"`
}

// Default increments used when the exchange reports nothing usable.
const (
	DefaultStepSize = 0.001
	DefaultTickSize = 0.01
)

// Normalize replaces missing or non-positive increments with defaults.
func (f SymbolFilters) Normalize() SymbolFilters {
	if !(f.StepSize > 0) {
		f.StepSize = DefaultStepSize
	}
	if !(f.TickSize > 0) {
		f.TickSize = DefaultTickSize
	}
	return f
}
