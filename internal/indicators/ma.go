package indicators

import "math"

// SMA — простая скользящая средняя. Короче периода — пустой результат,
// вызывающий обязан проверять длину.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return []float64{}
	}
	out := make([]float64, 0, len(values)-period+1)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// EMA сеет первое значение из SMA первых period точек, дальше
// сглаживает с k = 2/(period+1).
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return []float64{}
	}
	k := 2.0 / float64(period+1)

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	seed /= float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)
	prev := seed
	for _, v := range values[period:] {
		prev = v*k + prev*(1-k)
		out = append(out, prev)
	}
	return out
}

// WilderMA — сглаживание Уайлдера: сид как у EMA (SMA первых period),
// дальше (prev*(period-1)+x)/period. На коротком входе отдаёт нули
// длиной входа, чтобы индексация относительно входа не падала.
func WilderMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return make([]float64, len(values))
	}
	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	seed /= float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)
	prev := seed
	for _, v := range values[period:] {
		prev = (prev*float64(period-1) + v) / float64(period)
		out = append(out, prev)
	}
	return out
}

// StdDev — популяционное стандартное отклонение по конечным значениям.
// Пустой (или сплошь не-конечный) вход — 0.
func StdDev(values []float64) float64 {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range finite {
		mean += v
	}
	mean /= float64(len(finite))

	variance := 0.0
	for _, v := range finite {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(finite))

	return math.Sqrt(variance)
}
