package config

import (
	"fmt"
	"strings"
)

// TradingSettings is the operator-tunable part of the configuration. Values
// are copied, never shared: the scheduler reads an immutable snapshot per
// cycle and the control surface swaps in a new one.
type TradingSettings struct {
	MinVolume       float64  `toml:"min_volume" json:"min_volume"`
	BudgetPct       float64  `toml:"budget_pct" json:"budget_pct"`
	StopLossPct     float64  `toml:"stop_loss_pct" json:"stop_loss_pct"`
	TakeProfitPct   float64  `toml:"take_profit_pct" json:"take_profit_pct"`
	MinRSI          float64  `toml:"min_rsi" json:"min_rsi"`
	MaxRSI          float64  `toml:"max_rsi" json:"max_rsi"`
	FundingMax      float64  `toml:"funding_max" json:"funding_max"`
	ScoreThreshold  float64  `toml:"score_threshold" json:"score_threshold"`
	Isolated        bool     `toml:"isolated" json:"isolated"`
	TrailMultiplier float64  `toml:"trail_multiplier" json:"trail_multiplier"`
	Interval        string   `toml:"interval" json:"interval"`
	KlineLimit      int      `toml:"kline_limit" json:"kline_limit"`
	DisabledModules []string `toml:"disabled_modules" json:"disabled_modules,omitempty"`
}

// DefaultTradingSettings returns the stock trading parameters.
func DefaultTradingSettings() TradingSettings {
	return TradingSettings{
		MinVolume:       400,
		BudgetPct:       1,
		StopLossPct:     4,
		TakeProfitPct:   1,
		MinRSI:          35,
		MaxRSI:          70,
		FundingMax:      0.1,
		ScoreThreshold:  14,
		Isolated:        true,
		TrailMultiplier: 1.8,
		Interval:        "15m",
		KlineLimit:      100,
	}
}

var validIntervals = map[string]bool{
	"1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true,
}

// Validate reports every out-of-range field.
func (s TradingSettings) Validate() error {
	var errs []string
	if s.MinVolume < 0 {
		errs = append(errs, "min_volume must be >= 0")
	}
	if s.BudgetPct <= 0 || s.BudgetPct > 100 {
		errs = append(errs, "budget_pct must be in (0, 100]")
	}
	if s.StopLossPct <= 0 || s.StopLossPct >= 100 {
		errs = append(errs, "stop_loss_pct must be in (0, 100)")
	}
	if s.TakeProfitPct < 0 {
		errs = append(errs, "take_profit_pct must be >= 0")
	}
	if s.MinRSI < 0 || s.MaxRSI > 100 || s.MinRSI >= s.MaxRSI {
		errs = append(errs, "min_rsi and max_rsi must satisfy 0 <= min_rsi < max_rsi <= 100")
	}
	if s.FundingMax < 0 {
		errs = append(errs, "funding_max must be >= 0")
	}
	if s.ScoreThreshold <= 0 {
		errs = append(errs, "score_threshold must be > 0")
	}
	if s.TrailMultiplier <= 0 {
		errs = append(errs, "trail_multiplier must be > 0")
	}
	if !validIntervals[s.Interval] {
		errs = append(errs, fmt.Sprintf("interval %q is not supported", s.Interval))
	}
	if s.KlineLimit < 50 || s.KlineLimit > 1500 {
		errs = append(errs, "kline_limit must be in [50, 1500]")
	}
	if len(errs) > 0 {
		return fmt.Errorf("trading: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Clone returns a deep copy.
func (s TradingSettings) Clone() TradingSettings {
	out := s
	if s.DisabledModules != nil {
		out.DisabledModules = append([]string(nil), s.DisabledModules...)
	}
	return out
}
