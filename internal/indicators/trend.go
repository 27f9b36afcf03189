package indicators

import "math"

// ADXResult — выровненные и обрезанные ряды одной длины:
// len(input) − 2·(period−1), иначе пусто.
type ADXResult struct {
	ADX     []float64
	PlusDI  []float64
	MinusDI []float64
}

// ADX: directional movement и true range сглаживаются по Уайлдеру,
// из них +DI/−DI и DX, затем DX ещё раз сглаживается в ADX.
// TR и DM сеются с нулевого индекса (TR[0] = high−low, DM[0] = 0),
// поэтому каждый из двух проходов съедает period−1 отсчётов.
func ADX(highs, lows, closes []float64, period int) ADXResult {
	n := len(highs)
	empty := ADXResult{ADX: []float64{}, PlusDI: []float64{}, MinusDI: []float64{}}
	if period <= 1 || n < period+1 || len(lows) != n || len(closes) != n {
		return empty
	}
	outLen := n - 2*(period-1)
	if outLen <= 0 {
		return empty
	}

	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		tr[i] = math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))

		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	smTR := WilderMA(tr, period)
	smPlus := WilderMA(plusDM, period)
	smMinus := WilderMA(minusDM, period)

	plusDI := make([]float64, len(smTR))
	minusDI := make([]float64, len(smTR))
	dx := make([]float64, len(smTR))
	for i := range smTR {
		if smTR[i] != 0 {
			plusDI[i] = 100 * smPlus[i] / smTR[i]
			minusDI[i] = 100 * smMinus[i] / smTR[i]
		}
		if sum := plusDI[i] + minusDI[i]; sum != 0 {
			dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / sum
		}
	}

	adx := WilderMA(dx, period)
	if len(adx) < outLen {
		return empty
	}

	return ADXResult{
		ADX:     adx[len(adx)-outLen:],
		PlusDI:  plusDI[len(plusDI)-outLen:],
		MinusDI: minusDI[len(minusDI)-outLen:],
	}
}

// ATR — true range по свечам, сглаженный по Уайлдеру; несидированный
// префикс отброшен.
func ATR(highs, lows, closes []float64, period int) []float64 {
	n := len(highs)
	if period <= 0 || n < 2 || len(lows) != n || len(closes) != n {
		return []float64{}
	}
	tr := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		tr = append(tr, math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1]))))
	}
	if len(tr) < period {
		return []float64{}
	}
	return WilderMA(tr, period)
}
