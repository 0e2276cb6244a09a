package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

func flatCandles(n int, price float64) []domain.Candle {
	out := make([]domain.Candle, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = domain.Candle{
			OpenTime: start.Add(time.Duration(i) * 15 * time.Minute),
			Open:     price, High: price, Low: price, Close: price, Volume: 100,
		}
	}
	return out
}

func TestRSI(t *testing.T) {
	t.Parallel()

	t.Run("warmup is NaN", func(t *testing.T) {
		t.Parallel()
		out := RSI([]float64{1, 2, 3, 4, 5}, 14)
		require.Len(t, out, 5)
		for _, v := range out {
			assert.True(t, math.IsNaN(v))
		}
	})

	t.Run("monotonic rise saturates at 100", func(t *testing.T) {
		t.Parallel()
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = float64(100 + i)
		}
		out := RSI(closes, 14)
		assert.True(t, math.IsNaN(out[13]))
		assert.Equal(t, 100.0, out[14])
		assert.Equal(t, 100.0, out[29])
	})

	t.Run("monotonic fall goes to 0", func(t *testing.T) {
		t.Parallel()
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = float64(200 - i)
		}
		out := RSI(closes, 14)
		assert.InDelta(t, 0.0, out[29], 1e-9)
	})

	t.Run("flat series is neutral", func(t *testing.T) {
		t.Parallel()
		closes := domain.Closes(flatCandles(20, 10))
		assert.Equal(t, 50.0, RSI(closes, 14)[19])
	})

	t.Run("alternating moves stay centered", func(t *testing.T) {
		t.Parallel()
		closes := make([]float64, 40)
		for i := range closes {
			closes[i] = 100
			if i%2 == 1 {
				closes[i] = 101
			}
		}
		v := RSI(closes, 14)[39]
		assert.Greater(t, v, 40.0)
		assert.Less(t, v, 60.0)
	})
}

func TestBollinger(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = float64(i%2) * 2 // 0,2,0,2...
	}
	b := Bollinger(closes, 20, 2)

	assert.True(t, math.IsNaN(b.Middle[18]))
	assert.InDelta(t, 1.0, b.Middle[19], 1e-9)
	// population std of alternating 0/2 is exactly 1
	assert.InDelta(t, 3.0, b.Upper[24], 1e-9)
	assert.InDelta(t, -1.0, b.Lower[24], 1e-9)
}

func TestATR(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		candles []domain.Candle
		period  int
		want    float64
		nan     bool
	}{
		{name: "too short", candles: flatCandles(14, 100), period: 14, nan: true},
		{name: "flat", candles: flatCandles(30, 100), period: 14, want: 0},
		{
			name: "constant range",
			candles: func() []domain.Candle {
				cs := flatCandles(30, 100)
				for i := range cs {
					cs[i].High, cs[i].Low = 101, 99
				}
				return cs
			}(),
			period: 14,
			want:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ATR(tt.candles, tt.period)
			if tt.nan {
				assert.True(t, math.IsNaN(got))
				return
			}
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEnrich(t *testing.T) {
	t.Parallel()

	t.Run("aligned fields", func(t *testing.T) {
		t.Parallel()
		s, err := Enrich(flatCandles(60, 50))
		require.NoError(t, err)
		assert.Equal(t, 60, s.Len())
		assert.Len(t, s.RSI, 60)
		assert.Len(t, s.Upper, 60)
		assert.InDelta(t, 50.0, s.Middle[59], 1e-9)
	})

	t.Run("short series keeps NaN", func(t *testing.T) {
		t.Parallel()
		s, err := Enrich(flatCandles(10, 50))
		require.NoError(t, err)
		assert.True(t, math.IsNaN(s.RSI[9]))
		assert.True(t, math.IsNaN(s.Lower[9]))
	})

	t.Run("non-finite bar rejected", func(t *testing.T) {
		t.Parallel()
		cs := flatCandles(30, 50)
		cs[12].Close = math.NaN()
		_, err := Enrich(cs)
		assert.ErrorIs(t, err, domain.ErrInvalidData)
	})
}
