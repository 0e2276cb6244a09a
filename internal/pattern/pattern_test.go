package pattern

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

// bars builds candles from (high, low) pairs with close at the midpoint.
func bars(hl ...[2]float64) []domain.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.Candle, len(hl))
	for i, p := range hl {
		mid := (p[0] + p[1]) / 2
		out[i] = domain.Candle{
			OpenTime: start.Add(time.Duration(i) * time.Minute),
			Open:     mid, High: p[0], Low: p[1], Close: mid, Volume: 1,
		}
	}
	return out
}

// zigzag produces a wave with rising (step > 0) or falling swings.
func zigzag(waves int, step float64) []domain.Candle {
	var hl [][2]float64
	base := 100.0
	for w := 0; w < waves; w++ {
		for k := 0; k < 4; k++ {
			v := base + float64(k)
			hl = append(hl, [2]float64{v + 0.5, v - 0.5})
		}
		for k := 3; k >= 0; k-- {
			v := base + float64(k) - 0.5
			hl = append(hl, [2]float64{v + 0.5, v - 0.5})
		}
		base += step
	}
	return bars(hl...)
}

func TestStructure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []domain.Candle
		trend Trend
	}{
		{name: "rising swings", input: zigzag(5, 2), trend: TrendBullish},
		{name: "falling swings", input: zigzag(5, -2), trend: TrendBearish},
		{name: "too short", input: zigzag(1, 2), trend: TrendNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := Structure(tt.input, 2)
			assert.Equal(t, tt.trend, res.Trend)
		})
	}

	t.Run("break of structure", func(t *testing.T) {
		t.Parallel()
		cs := zigzag(5, 2)
		res := Structure(cs, 2)
		require.Equal(t, TrendBullish, res.Trend)
		cs[len(cs)-1].Close = res.LastSwingHigh + 1
		assert.True(t, Structure(cs, 2).BOS)
	})
}

func TestDetectFVGs(t *testing.T) {
	t.Parallel()

	t.Run("bullish gap stays open", func(t *testing.T) {
		t.Parallel()
		cs := bars([2]float64{101, 99}, [2]float64{106, 100}, [2]float64{108, 103}, [2]float64{107, 104})
		gaps := DetectFVGs(cs)
		require.Len(t, gaps, 1)
		assert.Equal(t, GapBullish, gaps[0].Kind)
		assert.Equal(t, 101.0, gaps[0].Bottom)
		assert.Equal(t, 103.0, gaps[0].Top)
		assert.False(t, gaps[0].Filled)
		assert.Equal(t, 102.0, gaps[0].Mid())
	})

	t.Run("bullish gap filled", func(t *testing.T) {
		t.Parallel()
		cs := bars([2]float64{101, 99}, [2]float64{106, 100}, [2]float64{108, 103}, [2]float64{104, 100.5})
		gaps := DetectFVGs(cs)
		require.Len(t, gaps, 1)
		assert.True(t, gaps[0].Filled)
	})

	t.Run("bearish gap", func(t *testing.T) {
		t.Parallel()
		cs := bars([2]float64{101, 99}, [2]float64{100, 94}, [2]float64{97, 93})
		gaps := DetectFVGs(cs)
		require.Len(t, gaps, 1)
		assert.Equal(t, GapBearish, gaps[0].Kind)
		assert.Equal(t, 99.0, gaps[0].Top)
		assert.Equal(t, 97.0, gaps[0].Bottom)
	})
}

func TestFVGSignal(t *testing.T) {
	t.Parallel()

	cs := bars([2]float64{101, 99}, [2]float64{106, 100}, [2]float64{108, 103}, [2]float64{109, 102.5})
	cs[3].Close = 102.8
	assert.Equal(t, 1, FVGSignal(cs))

	cs[3].Close = 105
	assert.Equal(t, 0, FVGSignal(cs))

	bear := bars([2]float64{101, 99}, [2]float64{100, 94}, [2]float64{97, 93}, [2]float64{98.5, 96})
	bear[3].Close = 98
	assert.Equal(t, -1, FVGSignal(bear))

	assert.Equal(t, 0, FVGSignal(nil))
}

func TestChandelier(t *testing.T) {
	t.Parallel()

	cs := bars([2]float64{110, 100}, [2]float64{115, 105}, [2]float64{112, 104})

	level, ok := Chandelier(cs, domain.DirectionLong, 1, 3, 3)
	require.True(t, ok)
	assert.Equal(t, 112.0, level)

	level, ok = Chandelier(cs, domain.DirectionShort, 1, 3, 3)
	require.True(t, ok)
	assert.Equal(t, 103.0, level)

	_, ok = Chandelier(cs, domain.DirectionLong, 0, 3, 3)
	assert.False(t, ok)
	_, ok = Chandelier(cs, domain.DirectionLong, 1, 22, 3)
	assert.False(t, ok)
}

func TestSwingLevel(t *testing.T) {
	t.Parallel()

	cs := bars([2]float64{105, 95}, [2]float64{106, 97}, [2]float64{108, 98}, [2]float64{120, 90})

	level, ok := SwingLevel(cs, domain.DirectionLong, 3)
	require.True(t, ok)
	assert.Equal(t, 95.0, level, "current bar excluded")

	level, ok = SwingLevel(cs, domain.DirectionShort, 3)
	require.True(t, ok)
	assert.Equal(t, 108.0, level)

	_, ok = SwingLevel(cs, domain.DirectionLong, 4)
	assert.False(t, ok)
}

func TestStructureBreakLevel(t *testing.T) {
	t.Parallel()

	cs := zigzag(4, 2)
	lows := SwingLows(cs, 2)
	highs := SwingHighs(cs, 2)
	require.NotEmpty(t, lows)
	require.NotEmpty(t, highs)

	level, ok := StructureBreakLevel(cs, domain.DirectionLong, 2)
	require.True(t, ok)

	lastHigh := highs[len(highs)-1]
	var want float64
	for _, i := range lows {
		if i < lastHigh {
			want = cs[i].Low
		}
	}
	assert.Equal(t, want, level)

	_, ok = StructureBreakLevel(bars([2]float64{1, 0}), domain.DirectionLong, 2)
	assert.False(t, ok)
}
