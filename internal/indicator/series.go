// Package indicator derives the oscillator and band series the scoring
// modules read.
package indicator

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

const (
	RSIPeriod       = 14
	BollingerPeriod = 20
	BollingerMult   = 2.0
	ATRPeriod       = 14
)

// Series is a candle series enriched with index-aligned indicators.
type Series struct {
	Candles []domain.Candle
	RSI     []float64
	Upper   []float64
	Middle  []float64
	Lower   []float64
}

// Enrich validates candles and computes RSI-14 and Bollinger 20/2. Series
// shorter than a window carry NaN in the affected fields.
func Enrich(candles []domain.Candle) (*Series, error) {
	for i, c := range candles {
		if !finite(c.Open, c.High, c.Low, c.Close, c.Volume) {
			return nil, fmt.Errorf("indicator: bar %d: %w", i, domain.ErrInvalidData)
		}
	}

	closes := domain.Closes(candles)
	bands := Bollinger(closes, BollingerPeriod, BollingerMult)
	return &Series{
		Candles: candles,
		RSI:     RSI(closes, RSIPeriod),
		Upper:   bands.Upper,
		Middle:  bands.Middle,
		Lower:   bands.Lower,
	}, nil
}

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.Candles) }

// Last returns the most recent bar.
func (s *Series) Last() domain.Candle { return s.Candles[len(s.Candles)-1] }

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
