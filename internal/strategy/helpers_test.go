package strategy

import (
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/indicator"
)

var (
	quietHour = time.Date(2024, 3, 4, 3, 0, 0, 0, time.UTC)
	defParams = Params{MinRSI: 35, MaxRSI: 70, Now: quietHour}
)

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

// ohlc builds a candle; volume defaults to 100.
func ohlc(o, h, l, c float64) domain.Candle {
	return domain.Candle{Open: o, High: h, Low: l, Close: c, Volume: 100}
}

func stamp(cs []domain.Candle) []domain.Candle {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range cs {
		cs[i].OpenTime = start.Add(time.Duration(i) * 15 * time.Minute)
	}
	return cs
}

func enrich(t *testing.T, cs []domain.Candle) *indicator.Series {
	t.Helper()
	s, err := indicator.Enrich(stamp(cs))
	require.NoError(t, err)
	return s
}

// rising returns n dojis whose prices climb by pct per bar, so no two
// consecutive lows or highs are within 0.1% of each other.
func rising(n int, start, pct float64) []domain.Candle {
	out := make([]domain.Candle, n)
	p := start
	for i := range out {
		out[i] = ohlc(p, p*1.001, p*0.999, p)
		p *= 1 + pct
	}
	return out
}

// randomWalk produces a plausible OHLCV series from a seeded source.
func randomWalk(r *rand.Rand, n int) []domain.Candle {
	out := make([]domain.Candle, n)
	p := 100.0
	for i := range out {
		o := p
		c := o * (1 + (r.Float64()-0.5)*0.04)
		h := max(o, c) * (1 + r.Float64()*0.01)
		l := min(o, c) * (1 - r.Float64()*0.01)
		out[i] = domain.Candle{Open: o, High: h, Low: l, Close: c, Volume: 50 + r.Float64()*200}
		p = c
	}
	return stamp(out)
}

// stub is a fixed-score module.
type stub struct {
	name        string
	long, short float64
	reason      string
	panics      bool
}

func (s stub) Name() string { return s.name }

func (s stub) Evaluate(*indicator.Series, Params) domain.ModuleScore {
	if s.panics {
		panic("boom")
	}
	return points(s.name, s.long, s.short, s.reason)
}
