package pattern

import "github.com/alanyoungcy/futuresbot/internal/domain"

// GapKind is the direction of a fair-value gap.
type GapKind string

const (
	GapBullish GapKind = "bullish"
	GapBearish GapKind = "bearish"
)

// FVG is a three-bar imbalance zone created at Index.
type FVG struct {
	Kind   GapKind
	Index  int
	Top    float64
	Bottom float64
	Filled bool
}

// Mid returns the zone midpoint.
func (g FVG) Mid() float64 { return (g.Top + g.Bottom) / 2 }

// Contains reports whether price sits inside the zone.
func (g FVG) Contains(price float64) bool { return price >= g.Bottom && price <= g.Top }

// DetectFVGs finds every gap in chronological order and marks those a later
// bar has traded through.
func DetectFVGs(candles []domain.Candle) []FVG {
	var gaps []FVG
	for i := 2; i < len(candles); i++ {
		left, cur := candles[i-2], candles[i]
		switch {
		case cur.Low > left.High:
			gaps = append(gaps, FVG{Kind: GapBullish, Index: i, Top: cur.Low, Bottom: left.High})
		case cur.High < left.Low:
			gaps = append(gaps, FVG{Kind: GapBearish, Index: i, Top: left.Low, Bottom: cur.High})
		}
	}
	for k := range gaps {
		gaps[k].Filled = filled(candles, gaps[k])
	}
	return gaps
}

func filled(candles []domain.Candle, g FVG) bool {
	for j := g.Index + 1; j < len(candles); j++ {
		if g.Kind == GapBullish && candles[j].Low <= g.Bottom {
			return true
		}
		if g.Kind == GapBearish && candles[j].High >= g.Top {
			return true
		}
	}
	return false
}

// BullishGaps filters gaps to bullish ones, preserving order.
func BullishGaps(gaps []FVG) []FVG {
	var out []FVG
	for _, g := range gaps {
		if g.Kind == GapBullish {
			out = append(out, g)
		}
	}
	return out
}

// FVGSignal returns +1 when the last close sits inside the most recent
// unfilled bullish gap, -1 for a bearish one, and 0 otherwise.
func FVGSignal(candles []domain.Candle) int {
	if len(candles) == 0 {
		return 0
	}
	price := candles[len(candles)-1].Close
	gaps := DetectFVGs(candles)
	for k := len(gaps) - 1; k >= 0; k-- {
		g := gaps[k]
		if g.Filled || !g.Contains(price) {
			continue
		}
		if g.Kind == GapBullish {
			return 1
		}
		return -1
	}
	return 0
}
