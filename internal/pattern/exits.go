package pattern

import (
	"math"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

const (
	ChandelierPeriod  = 22
	ChandelierMult    = 3.0
	SwingExitLookback = 10
	StructureLookback = 5
)

// Chandelier returns the chandelier stop: the highest high of period bars
// minus atr×mult for longs, the lowest low plus atr×mult for shorts.
func Chandelier(candles []domain.Candle, dir domain.Direction, atr float64, period int, mult float64) (float64, bool) {
	if len(candles) < period || period <= 0 || !(atr > 0) || math.IsInf(atr, 0) {
		return 0, false
	}
	window := candles[len(candles)-period:]
	if dir == domain.DirectionShort {
		lo := window[0].Low
		for _, c := range window[1:] {
			lo = math.Min(lo, c.Low)
		}
		return lo + atr*mult, true
	}
	hi := window[0].High
	for _, c := range window[1:] {
		hi = math.Max(hi, c.High)
	}
	return hi - atr*mult, true
}

// SwingLevel returns the lowest low (long) or highest high (short) of the
// lookback completed bars before the current one.
func SwingLevel(candles []domain.Candle, dir domain.Direction, lookback int) (float64, bool) {
	n := len(candles)
	if lookback <= 0 || n <= lookback {
		return 0, false
	}
	window := candles[n-1-lookback : n-1]
	level := window[0].Low
	if dir == domain.DirectionShort {
		level = window[0].High
	}
	for _, c := range window[1:] {
		if dir == domain.DirectionShort {
			level = math.Max(level, c.High)
		} else {
			level = math.Min(level, c.Low)
		}
	}
	return level, true
}

// StructureBreakLevel returns the protected swing: for longs, the swing low
// that preceded the most recent swing high; for shorts, the swing high that
// preceded the most recent swing low. Without a prior impulse the latest
// swing is used.
func StructureBreakLevel(candles []domain.Candle, dir domain.Direction, lookback int) (float64, bool) {
	highs := SwingHighs(candles, lookback)
	lows := SwingLows(candles, lookback)

	if dir == domain.DirectionShort {
		idx, ok := protected(highs, lows)
		if !ok {
			return 0, false
		}
		return candles[idx].High, true
	}
	idx, ok := protected(lows, highs)
	if !ok {
		return 0, false
	}
	return candles[idx].Low, true
}

// protected picks the last guard pivot before the last impulse pivot.
func protected(guards, impulses []int) (int, bool) {
	if len(guards) == 0 {
		return 0, false
	}
	if len(impulses) == 0 {
		return guards[len(guards)-1], true
	}
	lastImpulse := impulses[len(impulses)-1]
	for k := len(guards) - 1; k >= 0; k-- {
		if guards[k] < lastImpulse {
			return guards[k], true
		}
	}
	return guards[len(guards)-1], true
}
