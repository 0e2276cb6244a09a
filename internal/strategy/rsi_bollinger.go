package strategy

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/indicator"
)

// RSIBollinger requires an RSI extreme and a close outside the band on the
// same side. Either condition alone scores nothing.
type RSIBollinger struct{}

func (RSIBollinger) Name() string { return "rsi_bollinger" }

func (m RSIBollinger) Evaluate(s *indicator.Series, p Params) domain.ModuleScore {
	i := s.Len() - 1
	if i < 0 {
		return skip(m.Name(), "no data")
	}
	rsi, lower, upper := s.RSI[i], s.Lower[i], s.Upper[i]
	if math.IsNaN(rsi) || math.IsNaN(lower) || math.IsNaN(upper) {
		return skip(m.Name(), "indicators warming up")
	}
	price := s.Candles[i].Close

	switch {
	case rsi < p.MinRSI && price < lower:
		return points(m.Name(), 2, 0, fmt.Sprintf("RSI %.1f below band", rsi))
	case rsi > p.MaxRSI && price > upper:
		return points(m.Name(), 0, 2, fmt.Sprintf("RSI %.1f above band", rsi))
	}
	return neutral(m.Name())
}
