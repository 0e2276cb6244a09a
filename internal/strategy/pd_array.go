package strategy

import (
	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/indicator"
)

const pdBars = 100

// PDArray favors longs in the discount quarter of the range and shorts in
// the premium quarter.
type PDArray struct{}

func (PDArray) Name() string { return "pd_array" }

func (m PDArray) Evaluate(s *indicator.Series, _ Params) domain.ModuleScore {
	if s.Len() < 20 {
		return skip(m.Name(), "not enough bars")
	}
	window := domain.Tail(s.Candles, pdBars)
	lo, hi := window[0].Low, window[0].High
	for _, c := range window[1:] {
		lo = min(lo, c.Low)
		hi = max(hi, c.High)
	}
	eq := (hi + lo) / 2
	discount := lo + (eq-lo)*0.25
	premium := hi - (hi-eq)*0.25
	price := s.Last().Close

	switch {
	case price < discount:
		return points(m.Name(), 2, 0, "discount zone")
	case price > premium:
		return points(m.Name(), 0, 2, "premium zone")
	}
	return neutral(m.Name())
}
