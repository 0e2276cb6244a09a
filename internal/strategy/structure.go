package strategy

import (
	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/indicator"
	"github.com/alanyoungcy/futuresbot/internal/pattern"
)

// Structure awards the swing-structure trend side, with a bonus point for
// a confirmed break of structure.
type Structure struct{}

func (Structure) Name() string { return "structure" }

func (m Structure) Evaluate(s *indicator.Series, _ Params) domain.ModuleScore {
	res := pattern.Structure(s.Candles, pattern.StructureLookback)
	switch res.Trend {
	case pattern.TrendBullish:
		if res.BOS {
			return points(m.Name(), 4, 0, "bullish trend + BOS")
		}
		return points(m.Name(), 3, 0, "bullish trend")
	case pattern.TrendBearish:
		if res.BOS {
			return points(m.Name(), 0, 4, "bearish trend + BOS")
		}
		return points(m.Name(), 0, 3, "bearish trend")
	}
	return neutral(m.Name())
}
