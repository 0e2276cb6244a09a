package strategy

import (
	"fmt"

	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/indicator"
)

const (
	profileBars  = 50
	profileEdges = 20
)

// VolumeProfile compares price with the point of control of the last 50
// bars, bucketed by close.
type VolumeProfile struct{}

func (VolumeProfile) Name() string { return "volume_profile" }

func (m VolumeProfile) Evaluate(s *indicator.Series, _ Params) domain.ModuleScore {
	if s.Len() < profileBars {
		return skip(m.Name(), "not enough bars")
	}
	window := domain.Tail(s.Candles, profileBars)

	lo, hi := window[0].Low, window[0].High
	for _, c := range window[1:] {
		lo = min(lo, c.Low)
		hi = max(hi, c.High)
	}
	edges := make([]float64, profileEdges)
	for k := range edges {
		edges[k] = lo + (hi-lo)*float64(k)/float64(profileEdges-1)
	}

	volume := make([]float64, profileEdges-1)
	for _, c := range window {
		if b := bucket(edges, c.Close); b >= 0 && b < len(volume) {
			volume[b] += c.Volume
		}
	}
	best := 0
	for k, v := range volume {
		if v > volume[best] {
			best = k
		}
	}
	poc := edges[best]
	price := s.Last().Close

	switch {
	case price < poc*0.99:
		return points(m.Name(), 2, 0, fmt.Sprintf("below POC %.4f", poc))
	case price > poc*1.01:
		return points(m.Name(), 0, 2, fmt.Sprintf("above POC %.4f", poc))
	}
	return neutral(m.Name())
}

// bucket counts the edges not above v, minus one. Values below the first
// edge yield -1 and values on the last edge fall outside every bucket.
func bucket(edges []float64, v float64) int {
	n := 0
	for _, e := range edges {
		if e <= v {
			n++
		}
	}
	return n - 1
}
