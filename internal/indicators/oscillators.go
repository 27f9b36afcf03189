package indicators

import "math"

// RSI требует len > period: сид — средние gain/loss по первым period
// дельтам, дальше сглаживание Уайлдера. Нулевой avgLoss кодируется
// как rs = +Inf и даёт RSI = 100.
func RSI(values []float64, period int) []float64 {
	if period <= 0 || len(values) <= period {
		return []float64{}
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss += -d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]float64, 0, len(values)-period)
	out = append(out, rsiValue(avgGain, avgLoss))

	for i := period + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	rs := math.Inf(1)
	if avgLoss != 0 {
		rs = avgGain / avgLoss
	}
	return 100 - 100/(1+rs)
}

// MACDResult — выровненные по последнему валидному участку ряды.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD = EMA(fast) − EMA(slow); сигнальная линия — EMA разницы.
// Выравнивание: сначала по медленной EMA, потом по сигнальному периоду.
func MACD(values []float64, fast, slow, signalPeriod int) MACDResult {
	if fast <= 0 || slow <= fast || signalPeriod <= 0 {
		return MACDResult{MACD: []float64{}, Signal: []float64{}, Histogram: []float64{}}
	}
	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)
	if len(emaSlow) == 0 {
		return MACDResult{MACD: []float64{}, Signal: []float64{}, Histogram: []float64{}}
	}

	// медленная EMA короче — режем быструю под неё
	offset := len(emaFast) - len(emaSlow)
	line := make([]float64, len(emaSlow))
	for i := range emaSlow {
		line[i] = emaFast[i+offset] - emaSlow[i]
	}

	signal := EMA(line, signalPeriod)
	if len(signal) == 0 {
		return MACDResult{MACD: []float64{}, Signal: []float64{}, Histogram: []float64{}}
	}

	trimmed := line[len(line)-len(signal):]
	hist := make([]float64, len(signal))
	for i := range signal {
		hist[i] = trimmed[i] - signal[i]
	}
	return MACDResult{MACD: trimmed, Signal: signal, Histogram: hist}
}
