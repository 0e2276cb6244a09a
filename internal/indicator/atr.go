package indicator

import (
	"math"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

// ATR returns the latest Wilder average true range over period bars,
// seeded with the simple mean of the first period true ranges. It returns
// NaN when fewer than period+1 candles are available.
func ATR(candles []domain.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return math.NaN()
	}

	tr := make([]float64, len(candles))
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		c, prev := candles[i], candles[i-1].Close
		tr[i] = math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prev), math.Abs(c.Low-prev)))
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += tr[i]
	}
	atr := sum / float64(period)
	p := float64(period)
	for i := period; i < len(tr); i++ {
		atr = (atr*(p-1) + tr[i]) / p
	}
	return atr
}
