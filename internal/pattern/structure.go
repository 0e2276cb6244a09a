// Package pattern holds price-action primitives used by the scoring
// modules and the exit chain. Every function is pure.
package pattern

import "github.com/alanyoungcy/futuresbot/internal/domain"

// Trend is the market structure bias.
type Trend string

const (
	TrendBullish Trend = "BULLISH"
	TrendBearish Trend = "BEARISH"
	TrendNeutral Trend = "NEUTRAL"
)

// StructureResult describes the swing structure of a series.
type StructureResult struct {
	Trend         Trend
	BOS           bool
	LastSwingHigh float64
	LastSwingLow  float64
}

// SwingHighs returns indices whose high is strictly above every other high
// within lookback bars on either side. Bars without a full right-hand
// window are never confirmed.
func SwingHighs(candles []domain.Candle, lookback int) []int {
	return pivots(candles, lookback, func(a, b domain.Candle) bool { return a.High > b.High })
}

// SwingLows is the mirror of SwingHighs.
func SwingLows(candles []domain.Candle, lookback int) []int {
	return pivots(candles, lookback, func(a, b domain.Candle) bool { return a.Low < b.Low })
}

func pivots(candles []domain.Candle, lookback int, beats func(a, b domain.Candle) bool) []int {
	var out []int
	for i := lookback; i+lookback < len(candles); i++ {
		pivot := true
		for j := i - lookback; j <= i+lookback && pivot; j++ {
			if j != i && !beats(candles[i], candles[j]) {
				pivot = false
			}
		}
		if pivot {
			out = append(out, i)
		}
	}
	return out
}

// Structure classifies the trend from the last two swing highs and lows and
// flags a break of structure when the latest close clears the last swing in
// the trend direction.
func Structure(candles []domain.Candle, lookback int) StructureResult {
	res := StructureResult{Trend: TrendNeutral}
	highs := SwingHighs(candles, lookback)
	lows := SwingLows(candles, lookback)
	if len(highs) > 0 {
		res.LastSwingHigh = candles[highs[len(highs)-1]].High
	}
	if len(lows) > 0 {
		res.LastSwingLow = candles[lows[len(lows)-1]].Low
	}
	if len(highs) < 2 || len(lows) < 2 {
		return res
	}

	h1, h2 := candles[highs[len(highs)-2]].High, res.LastSwingHigh
	l1, l2 := candles[lows[len(lows)-2]].Low, res.LastSwingLow
	last := candles[len(candles)-1].Close

	switch {
	case h2 > h1 && l2 > l1:
		res.Trend = TrendBullish
		res.BOS = last > h2
	case h2 < h1 && l2 < l1:
		res.Trend = TrendBearish
		res.BOS = last < l2
	}
	return res
}
