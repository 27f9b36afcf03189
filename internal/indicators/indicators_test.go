package indicators

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMA_Known(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	want := []float64{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("sma[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSMA_ShortInput(t *testing.T) {
	if got := SMA([]float64{1, 2}, 3); len(got) != 0 {
		t.Fatalf("short input: len = %d, want 0", len(got))
	}
}

func TestEMA_SeedIsSMA(t *testing.T) {
	vals := []float64{2, 4, 6, 8, 10}
	got := EMA(vals, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if !almostEqual(got[0], 4) { // SMA(2,4,6)
		t.Errorf("seed = %v, want 4", got[0])
	}
	// дальше k = 2/(3+1) = 0.5
	if !almostEqual(got[1], 8*0.5+4*0.5) {
		t.Errorf("ema[1] = %v, want 6", got[1])
	}
}

func TestWilderMA(t *testing.T) {
	got := WilderMA([]float64{3, 3, 3, 6}, 3)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !almostEqual(got[0], 3) {
		t.Errorf("seed = %v, want 3", got[0])
	}
	if !almostEqual(got[1], (3*2+6)/3.0) {
		t.Errorf("wilder[1] = %v, want 4", got[1])
	}
}

func TestWilderMA_ShortInputZeroFilled(t *testing.T) {
	got := WilderMA([]float64{1, 2}, 5)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for i, v := range got {
		if v != 0 {
			t.Errorf("wilder[%d] = %v, want 0", i, v)
		}
	}
}

func TestRSI_AllGainsIs100(t *testing.T) {
	vals := make([]float64, 15)
	for i := range vals {
		vals[i] = float64(i + 1)
	}
	got := RSI(vals, 14)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if !almostEqual(got[0], 100) {
		t.Errorf("rsi = %v, want 100", got[0])
	}
}

func TestRSI_RequiresMoreThanPeriod(t *testing.T) {
	if got := RSI([]float64{1, 2, 3}, 3); len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}

func TestStdDev(t *testing.T) {
	if got := StdDev(nil); got != 0 {
		t.Errorf("empty: %v, want 0", got)
	}
	if got := StdDev([]float64{math.NaN(), math.Inf(1)}); got != 0 {
		t.Errorf("non-finite: %v, want 0", got)
	}
	// население: {2,4,4,4,5,5,7,9} -> 2
	got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if !almostEqual(got, 2) {
		t.Errorf("stddev = %v, want 2", got)
	}
}

func TestADX_OutputLength(t *testing.T) {
	n := 40
	period := 14
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		base := 100 + float64(i)
		highs[i] = base + 1
		lows[i] = base - 1
		closes[i] = base
	}
	res := ADX(highs, lows, closes, period)
	want := n - 2*(period-1)
	if len(res.ADX) != want {
		t.Fatalf("adx len = %d, want %d", len(res.ADX), want)
	}
	if len(res.PlusDI) != want || len(res.MinusDI) != want {
		t.Fatalf("di len = %d/%d, want %d", len(res.PlusDI), len(res.MinusDI), want)
	}
	// монотонный рост: +DI должен доминировать
	last := len(res.PlusDI) - 1
	if res.PlusDI[last] <= res.MinusDI[last] {
		t.Errorf("+DI=%v <= -DI=%v on uptrend", res.PlusDI[last], res.MinusDI[last])
	}
}

func TestADX_TooShort(t *testing.T) {
	res := ADX([]float64{1, 2}, []float64{1, 2}, []float64{1, 2}, 14)
	if len(res.ADX) != 0 {
		t.Fatalf("adx len = %d, want 0", len(res.ADX))
	}
}

func TestBollinger(t *testing.T) {
	res := Bollinger([]float64{1, 1, 1, 1}, 4, 2)
	if len(res.Middle) != 1 {
		t.Fatalf("len = %d, want 1", len(res.Middle))
	}
	if !almostEqual(res.Middle[0], 1) || !almostEqual(res.Upper[0], 1) || !almostEqual(res.Lower[0], 1) {
		t.Errorf("flat series: middle=%v upper=%v lower=%v", res.Middle[0], res.Upper[0], res.Lower[0])
	}
	if res.Width[0] != 0 {
		t.Errorf("flat width = %v, want 0", res.Width[0])
	}

	// середина около нуля — ширина определена как 0, не NaN
	res = Bollinger([]float64{-1, 1, -1, 1}, 4, 2)
	if res.Width[0] != 0 {
		t.Errorf("zero middle width = %v, want 0", res.Width[0])
	}
}

func TestMACD_Alignment(t *testing.T) {
	vals := make([]float64, 60)
	for i := range vals {
		vals[i] = float64(i)
	}
	res := MACD(vals, 12, 26, 9)
	// slow правит выравниванием, затем signal режет хвост
	want := (60 - 26 + 1) - 9 + 1
	if len(res.MACD) != want || len(res.Signal) != want || len(res.Histogram) != want {
		t.Fatalf("lens = %d/%d/%d, want %d", len(res.MACD), len(res.Signal), len(res.Histogram), want)
	}
	for i := range res.MACD {
		if !almostEqual(res.Histogram[i], res.MACD[i]-res.Signal[i]) {
			t.Fatalf("hist[%d] mismatch", i)
		}
	}
}

func TestATR_Length(t *testing.T) {
	n := 20
	period := 5
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i] = 10 + float64(i)
		lows[i] = 9 + float64(i)
		closes[i] = 9.5 + float64(i)
	}
	got := ATR(highs, lows, closes, period)
	if len(got) != n-period {
		t.Fatalf("len = %d, want %d", len(got), n-period)
	}
	for i, v := range got {
		if v <= 0 {
			t.Errorf("atr[%d] = %v, want > 0", i, v)
		}
	}
}
