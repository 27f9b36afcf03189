package impulse

import (
	"testing"

	"heat_engine/internal/models"
	"heat_engine/internal/modules/config"
)

func testConfig() config.DetectorConfig {
	return config.DetectorConfig{
		VolatilityWindow:     300,
		ImpulseWindow:        15,
		AvgVolumeWindow:      60,
		BaseThreshold:        0.5,
		VolatilityMultiplier: 2.0,
		VolumeSpikeFactor:    2.0,
		ConfidenceThreshold:  60,
		Horizon:              "5m",
		BufferCap:            900,
	}
}

func flatCandles(n int, price, volume float64, fromTS int64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{
			Timestamp: fromTS + int64(i)*1000,
			Open:      price, High: price, Low: price, Close: price,
			Volume: volume, Resolution: "1s",
		}
	}
	return out
}

func TestDetector_ImpulseFiresBuy(t *testing.T) {
	d := NewDetector("BTC-USDT", testConfig())
	d.Ingest(flatCandles(300, 100, 10, 0))

	// 15 свечей: +5% суммарно, объём сильно выше среднего
	rows := make([]models.Candle, 15)
	price := 100.0
	for i := range rows {
		open := price
		price *= 1.0032737 // ~ +5% за 15 шагов
		rows[i] = models.Candle{
			Timestamp: int64(300+i) * 1000,
			Open:      open, High: price, Low: open, Close: price,
			Volume: 50, Resolution: "1s",
		}
	}
	d.Ingest(rows)

	res := d.Evaluate()
	if res.Heat.Buy <= 0 {
		t.Fatalf("buy heat = %v, want > 0 (threshold=%v)", res.Heat.Buy, res.Threshold)
	}
	if res.Heat.Sell != 0 {
		t.Errorf("sell heat = %v, want 0", res.Heat.Sell)
	}
	if res.Direction != models.DirectionBull {
		t.Errorf("direction = %q, want bull", res.Direction)
	}
	if res.Heat.Buy > 100 {
		t.Errorf("confidence %v above cap", res.Heat.Buy)
	}
}

func TestDetector_ShortBufferIsNeutral(t *testing.T) {
	d := NewDetector("BTC-USDT", testConfig())
	// 10 свечей с диким ростом — всё равно нейтрально
	rows := make([]models.Candle, 10)
	for i := range rows {
		p := 100 * float64(i+1)
		rows[i] = models.Candle{Timestamp: int64(i) * 1000, Open: p, Close: p * 2, Volume: 1000}
	}
	d.Ingest(rows)

	res := d.Evaluate()
	if !res.Heat.Neutral() {
		t.Fatalf("heat = %+v, want neutral", res.Heat)
	}
	if res.Threshold != testConfig().BaseThreshold {
		t.Errorf("threshold = %v, want base %v", res.Threshold, testConfig().BaseThreshold)
	}
}

func TestDetector_FlatMarketIsNeutral(t *testing.T) {
	d := NewDetector("BTC-USDT", testConfig())
	d.Ingest(flatCandles(400, 100, 10, 0))

	res := d.Evaluate()
	if !res.Heat.Neutral() {
		t.Fatalf("heat = %+v, want neutral", res.Heat)
	}
	if res.Direction != "" {
		t.Errorf("direction = %q, want none", res.Direction)
	}
}

func TestDetector_ZeroVolumeIsNeutral(t *testing.T) {
	d := NewDetector("BTC-USDT", testConfig())
	d.Ingest(flatCandles(300, 100, 0, 0))

	rows := make([]models.Candle, 15)
	price := 100.0
	for i := range rows {
		open := price
		price *= 1.004
		rows[i] = models.Candle{
			Timestamp: int64(300+i) * 1000,
			Open:      open, Close: price, Volume: 0,
		}
	}
	d.Ingest(rows)

	if res := d.Evaluate(); !res.Heat.Neutral() {
		t.Fatalf("heat = %+v, want neutral on zero volume", res.Heat)
	}
}

func TestDetector_BecameReadyOnce(t *testing.T) {
	d := NewDetector("BTC-USDT", testConfig())
	if d.BecameReady() {
		t.Fatal("ready before warmup")
	}
	d.Ingest(flatCandles(300, 100, 10, 0))
	if !d.BecameReady() {
		t.Fatal("not ready after warmup")
	}
	if d.BecameReady() {
		t.Fatal("became ready twice")
	}
}
