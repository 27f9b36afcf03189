package provider

import (
	"errors"
	"testing"

	"heat_engine/internal/models"
)

func TestDecodeSignals_CanonicalArrayMeta(t *testing.T) {
	raw := []byte(`[{
		"pair":"BTC-USDT","side":"LONG","price":100,"take_profit":102,"stop_loss":99,
		"confidence":80,
		"meta":[{"timeframe":"5m","direction":"bull","confidence":75}]
	}]`)
	sigs, err := DecodeSignals(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(sigs) != 1 {
		t.Fatalf("signals = %d", len(sigs))
	}
	if len(sigs[0].Meta) != 1 || sigs[0].Meta[0].Direction != models.DirectionBull {
		t.Errorf("meta = %+v", sigs[0].Meta)
	}
}

func TestDecodeSignals_RejectsMapMeta(t *testing.T) {
	raw := []byte(`[{
		"pair":"BTC-USDT","side":"LONG","price":100,"take_profit":102,"stop_loss":99,
		"confidence":80,
		"meta":{"5m":{"direction":"bull","confidence":75}}
	}]`)
	_, err := DecodeSignals(raw)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestDecodeSignals_RejectsGarbage(t *testing.T) {
	if _, err := DecodeSignals([]byte(`{"not":"an array"}`)); err == nil {
		t.Fatal("garbage accepted")
	}
}

func TestValidate(t *testing.T) {
	ok := models.Signal{Pair: "BTC-USDT", Side: models.SideLong, Price: 100, Confidence: 50}
	if err := Validate(ok); err != nil {
		t.Fatalf("valid rejected: %v", err)
	}

	bad := []models.Signal{
		{Side: models.SideLong, Price: 100},                                   // нет пары
		{Pair: "X", Side: "WAT", Price: 100},                                  // левая сторона
		{Pair: "X", Side: models.SideLong, Price: 100, Confidence: 101},       // confidence
		{Pair: "X", Side: models.SideLong, Price: -1},                         // цена
		{Pair: "X", Side: models.SideLong, Meta: []models.TimeframeMeta{{}}},  // пустая мета
	}
	for i, sig := range bad {
		if err := Validate(sig); err == nil {
			t.Errorf("bad[%d] accepted", i)
		}
	}
}
