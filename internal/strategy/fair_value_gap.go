package strategy

import (
	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/indicator"
	"github.com/alanyoungcy/futuresbot/internal/pattern"
)

// FairValueGap follows the latest unfilled gap that price is retesting.
type FairValueGap struct{}

func (FairValueGap) Name() string { return "fvg" }

func (m FairValueGap) Evaluate(s *indicator.Series, _ Params) domain.ModuleScore {
	switch sig := pattern.FVGSignal(s.Candles); {
	case sig > 0:
		return points(m.Name(), 4, 0, "bullish FVG")
	case sig < 0:
		return points(m.Name(), 0, 4, "bearish FVG")
	}
	return neutral(m.Name())
}
