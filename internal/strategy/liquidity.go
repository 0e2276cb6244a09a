package strategy

import (
	"math"

	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/indicator"
)

const (
	wickRatioMin     = 0.6
	volumeSpikeMult  = 1.8
	volumeAvgBars    = 5
	equalLevelBars   = 50
	equalLevelTol    = 0.001
	equalZoneProxPct = 0.002
)

// Liquidity scores stop hunts: a long wick on a volume spike, and price
// returning to a cluster of equal lows or highs.
type Liquidity struct{}

func (Liquidity) Name() string { return "liquidity" }

func (m Liquidity) Evaluate(s *indicator.Series, _ Params) domain.ModuleScore {
	n := s.Len()
	if n < volumeAvgBars {
		return skip(m.Name(), "not enough bars")
	}
	cur := s.Last()
	res := neutral(m.Name())

	rng := cur.Range() + 1e-8
	lowerWick := (cur.Open - cur.Low) / rng
	upperWick := (cur.High - cur.Open) / rng

	var vol float64
	for _, c := range s.Candles[n-volumeAvgBars:] {
		vol += c.Volume
	}
	spike := cur.Volume > vol/volumeAvgBars*volumeSpikeMult

	if lowerWick > wickRatioMin && spike {
		res.Long += 3
		res.Reason = "lower wick sweep"
	}
	if upperWick > wickRatioMin && spike {
		res.Short += 3
		res.Reason = join(res.Reason, "upper wick sweep")
	}

	tail := domain.Tail(s.Candles, equalLevelBars)

	if lows := equalLevels(domain.Lows(tail)); len(lows) >= 2 {
		zone := lows[0]
		for _, v := range lows[1:] {
			zone = math.Min(zone, v)
		}
		if zone > 0 && math.Abs(cur.Low-zone)/zone < equalZoneProxPct {
			res.Long += 2
			res.Reason = join(res.Reason, "equal lows")
		}
		return res
	}

	if highs := equalLevels(domain.Highs(tail)); len(highs) >= 2 {
		zone := highs[0]
		for _, v := range highs[1:] {
			zone = math.Max(zone, v)
		}
		if zone > 0 && math.Abs(cur.High-zone)/zone < equalZoneProxPct {
			res.Short += 2
			res.Reason = join(res.Reason, "equal highs")
		}
	}
	return res
}

// equalLevels keeps values within tolerance of their predecessor.
func equalLevels(vals []float64) []float64 {
	var out []float64
	for i := 1; i < len(vals); i++ {
		if math.Abs(vals[i]-vals[i-1]) < vals[i]*equalLevelTol {
			out = append(out, vals[i])
		}
	}
	return out
}

func join(a, b string) string {
	if a == "" {
		return b
	}
	return a + ", " + b
}
