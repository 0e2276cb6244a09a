package strategy

import (
	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/indicator"
)

type session struct {
	name       string
	start, end float64 // UTC hours, end exclusive
}

var killZones = []session{
	{name: "london", start: 8, end: 10},
	{name: "new york", start: 13.5, end: 16},
}

// KillZone adds one point to both sides during high-liquidity sessions. It
// confirms, it never picks a direction.
type KillZone struct{}

func (KillZone) Name() string { return "killzone" }

func (m KillZone) Evaluate(_ *indicator.Series, p Params) domain.ModuleScore {
	t := p.Now.UTC()
	h := float64(t.Hour()) + float64(t.Minute())/60
	for _, w := range killZones {
		if h >= w.start && h < w.end {
			return points(m.Name(), 1, 1, w.name+" session")
		}
	}
	return neutral(m.Name())
}
