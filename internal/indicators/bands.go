package indicators

import "math"

// BollingerResult — параллельные ряды одной длины.
type BollingerResult struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
	Width  []float64 // (upper-lower)/middle, 0 при middle около нуля
}

// Bollinger: middle = SMA, полоса = middle ± stdDev*mult по тому же окну.
func Bollinger(values []float64, period int, mult float64) BollingerResult {
	if period <= 0 || len(values) < period {
		return BollingerResult{
			Middle: []float64{}, Upper: []float64{}, Lower: []float64{}, Width: []float64{},
		}
	}
	n := len(values) - period + 1
	res := BollingerResult{
		Middle: make([]float64, n),
		Upper:  make([]float64, n),
		Lower:  make([]float64, n),
		Width:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		window := values[i : i+period]
		mean := 0.0
		for _, v := range window {
			mean += v
		}
		mean /= float64(period)
		sd := StdDev(window)

		upper := mean + sd*mult
		lower := mean - sd*mult
		res.Middle[i] = mean
		res.Upper[i] = upper
		res.Lower[i] = lower
		if math.Abs(mean) > 1e-12 {
			res.Width[i] = (upper - lower) / mean
		}
	}
	return res
}
