package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/indicator"
)

const (
	// volatilityWindow is the number of close-to-close changes averaged.
	volatilityWindow = 40
	// maxRiskFraction caps any single investment at 2% of the balance.
	maxRiskFraction = 0.02
	// MinInvestment is the smallest margin the bot commits to one trade.
	MinInvestment = 6.0
	// emergencyDrawdown closes a position losing more than 10% of balance.
	emergencyDrawdown = 0.10
	// atrFallbackPct replaces a missing ATR; atrFloorPct bounds it below.
	atrFallbackPct = 0.01
	atrFloorPct    = 0.005
)

// ClassifyVolatility maps the mean absolute close-to-close percentage change
// over the last 40 bars to a leverage tier. A series of exactly 40 bars
// averages its 39 changes. It never fails: fewer than 40 bars or
// non-finite input yields (1, 0).
func ClassifyVolatility(candles []domain.Candle) (int, float64) {
	if len(candles) < volatilityWindow {
		return 1, 0
	}
	changes := min(volatilityWindow, len(candles)-1)
	tail := candles[len(candles)-(changes+1):]
	var sum float64
	for i := 1; i < len(tail); i++ {
		prev := tail[i-1].Close
		if prev == 0 {
			return 1, 0
		}
		sum += math.Abs((tail[i].Close - prev) / prev * 100)
	}
	vol := sum / float64(changes)
	if math.IsNaN(vol) || math.IsInf(vol, 0) {
		return 1, 0
	}

	switch {
	case vol >= 1.0:
		return 1, vol
	case vol > 0.4:
		return 2, vol
	case vol > 0.2:
		return 3, vol
	default:
		return 5, vol
	}
}

// Investment returns the margin to commit for balance and budgetPct, capped
// at 2% of the balance.
func Investment(balance, budgetPct float64) float64 {
	return math.Min(balance*budgetPct/100, balance*maxRiskFraction)
}

// Precision converts an exchange increment to a decimal count clamped to
// [lo, hi].
func Precision(increment float64, lo, hi int) int {
	if !(increment > 0) {
		return lo
	}
	p := int(math.Round(-math.Log10(increment)))
	return max(lo, min(hi, p))
}

// RoundTo rounds v to prec decimals.
func RoundTo(v float64, prec int) float64 {
	pow := math.Pow(10, float64(prec))
	return math.Round(v*pow) / pow
}

// EntryInput carries everything PlanEntry needs.
type EntryInput struct {
	Direction   domain.Direction
	Balance     float64
	BudgetPct   float64
	StopLossPct float64
	Leverage    int
	Price       float64
	Filters     domain.SymbolFilters
	Candles     []domain.Candle
}

// EntryPlan is a sized, rounded order set for one new position.
type EntryPlan struct {
	Investment     float64
	Quantity       float64
	QtyPrecision   int
	PricePrecision int
	StopPrice      float64
	ATR            float64
}

// PlanEntry sizes a position and its protective stop. It returns
// domain.ErrBelowMinNotional when the investment is under MinInvestment and
// domain.ErrInvalidOrder when the rounded quantity is zero.
func PlanEntry(in EntryInput) (EntryPlan, error) {
	inv := Investment(in.Balance, in.BudgetPct)
	if inv < MinInvestment {
		return EntryPlan{Investment: inv}, fmt.Errorf("%w: %.2f < %.2f", domain.ErrBelowMinNotional, inv, MinInvestment)
	}
	if !(in.Price > 0) {
		return EntryPlan{}, fmt.Errorf("%w: non-positive price", domain.ErrInvalidOrder)
	}
	lev := max(in.Leverage, 1)
	f := in.Filters.Normalize()

	plan := EntryPlan{
		Investment:     inv,
		QtyPrecision:   Precision(f.StepSize, 0, 6),
		PricePrecision: Precision(f.TickSize, 2, 8),
	}
	plan.Quantity = RoundTo(inv*float64(lev)/in.Price, plan.QtyPrecision)
	if plan.Quantity <= 0 {
		return plan, fmt.Errorf("%w: quantity rounds to zero", domain.ErrInvalidOrder)
	}

	plan.ATR = EntryATR(in.Candles, in.Price)

	sl := in.StopLossPct / 100
	if in.Direction == domain.DirectionShort {
		plan.StopPrice = in.Price * (1 + sl)
	} else {
		plan.StopPrice = in.Price * (1 - sl)
	}
	plan.StopPrice = RoundTo(plan.StopPrice, plan.PricePrecision)
	return plan, nil
}

// EntryATR returns ATR-14 of candles, replaced by 1% of price when missing
// and floored at 0.5% of price.
func EntryATR(candles []domain.Candle, price float64) float64 {
	atr := indicator.ATR(candles, indicator.ATRPeriod)
	if math.IsNaN(atr) || math.IsInf(atr, 0) || atr <= 0 {
		atr = price * atrFallbackPct
	}
	return math.Max(atr, price*atrFloorPct)
}

// EmergencyTriggered reports whether unrealized loss exceeds 10% of balance.
func EmergencyTriggered(unrealized, balance float64) bool {
	return balance > 0 && unrealized < -(balance*emergencyDrawdown)
}

// RiskService runs the exchange-backed pre-trade checks.
type RiskService struct {
	market domain.MarketData
	logger *slog.Logger
}

// NewRiskService creates a RiskService.
func NewRiskService(market domain.MarketData, logger *slog.Logger) *RiskService {
	return &RiskService{
		market: market,
		logger: logger.With(slog.String("component", "risk_service")),
	}
}

// CheckFunding rejects symbols whose absolute funding rate, in percent,
// exceeds maxPct. A lookup failure does not block the trade.
func (s *RiskService) CheckFunding(ctx context.Context, symbol string, maxPct float64) error {
	rate, err := s.market.FundingRate(ctx, symbol)
	if err != nil {
		s.logger.WarnContext(ctx, "risk_service: funding rate unavailable",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return nil
	}
	pct := math.Abs(rate * 100)
	if pct > maxPct {
		s.logger.InfoContext(ctx, "risk_service: funding rate above cap",
			slog.String("symbol", symbol),
			slog.Float64("funding_pct", pct),
			slog.Float64("max_pct", maxPct),
		)
		return fmt.Errorf("risk_service: %s funding %.4f%% > %.4f%%: %w", symbol, pct, maxPct, domain.ErrFundingRateTooHigh)
	}
	return nil
}
