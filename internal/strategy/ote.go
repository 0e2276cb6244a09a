package strategy

import (
	"math"

	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/indicator"
	"github.com/alanyoungcy/futuresbot/internal/pattern"
)

const (
	oteMinBars   = 35
	oteSwingBars = 30
	oteGapProx   = 0.005
)

// OTE scores a long when price retraces into the 0.618-0.786 band of the
// recent swing and an unfilled bullish gap sits at price. There is no
// short-side counterpart.
type OTE struct{}

func (OTE) Name() string { return "ote" }

func (m OTE) Evaluate(s *indicator.Series, _ Params) domain.ModuleScore {
	if s.Len() < oteMinBars {
		return skip(m.Name(), "not enough bars")
	}
	window := domain.Tail(s.Candles, oteSwingBars)
	lo, hi := window[0].Low, window[0].High
	for _, c := range window[1:] {
		lo = min(lo, c.Low)
		hi = max(hi, c.High)
	}
	rng := hi - lo
	if rng <= 0 {
		return neutral(m.Name())
	}
	fib618 := hi - rng*0.618
	fib786 := hi - rng*0.786
	price := s.Last().Close
	if price < fib786 || price > fib618 {
		return neutral(m.Name())
	}

	gaps := pattern.BullishGaps(pattern.DetectFVGs(s.Candles))
	for _, g := range gaps[max(0, len(gaps)-3):] {
		if !g.Filled && math.Abs(price-g.Mid())/price < oteGapProx {
			return points(m.Name(), 3, 0, "OTE with bullish FVG")
		}
	}
	return neutral(m.Name())
}
