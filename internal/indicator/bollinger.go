package indicator

import "math"

// Bands holds Bollinger band series aligned with the input closes.
type Bands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger computes bands of period bars at mult population standard
// deviations. Entries before the first full window are NaN.
func Bollinger(closes []float64, period int, mult float64) Bands {
	b := Bands{
		Upper:  nanSlice(len(closes)),
		Middle: nanSlice(len(closes)),
		Lower:  nanSlice(len(closes)),
	}
	if period <= 0 || len(closes) < period {
		return b
	}

	for i := period - 1; i < len(closes); i++ {
		window := closes[i-period+1 : i+1]
		var sum float64
		for _, v := range window {
			sum += v
		}
		mean := sum / float64(period)

		var variance float64
		for _, v := range window {
			d := v - mean
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))

		b.Middle[i] = mean
		b.Upper[i] = mean + mult*sd
		b.Lower[i] = mean - mult*sd
	}
	return b
}
