package store

import (
	"reflect"
	"testing"
	"time"

	"heat_engine/internal/models"

	"github.com/bytedance/sonic"
)

// Персистентный слой обязан гонять Trade/PredictionRecord через JSON
// без потерь — поле в поле.
func TestTradeRoundTrip(t *testing.T) {
	closedAt := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)
	in := []*models.Trade{
		{
			ID: "BTC-USDT-1", Pair: "BTC-USDT", Direction: models.SideLong,
			Status:     models.TradeClosed,
			EntryPrice: 100, Notional: 250,
			OpenedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			StopLoss: 101.2, InitialStopLoss: 99, TakeProfit: 102,
			HighWaterMark: 101.5, TrailArmed: true,
			ExitPrice: 101.2, ClosedAt: &closedAt,
			CloseReason: models.CloseReasonTrailing, PnL: 3,
		},
		{
			ID: "ETH-USDT-2", Pair: "ETH-USDT", Direction: models.SideShort,
			Status:     models.TradePending,
			EntryPrice: 2000, Notional: 250,
			OpenedAt: time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC),
			StopLoss: 2040, InitialStopLoss: 2040, TakeProfit: 1950,
		},
	}

	data, err := sonic.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out []*models.Trade
	if err := sonic.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\nin:  %+v\nout: %+v", in[0], out[0])
	}
}

func TestPredictionRoundTrip(t *testing.T) {
	endTime := time.Date(2026, 8, 1, 12, 5, 30, 0, time.UTC)
	success := true
	in := []*models.PredictionRecord{
		{
			ID: "BTC-USDT-5m-bull-1", Pair: "BTC-USDT", Timeframe: "5m",
			Direction:      models.DirectionBull,
			PredictionTime: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			StartPrice:     100,
			Status:         models.PredictionResolved,
			EndTime:        &endTime, EndPrice: 101,
			Outcome: models.OutcomeUp, Success: &success,
		},
		{
			ID: "ETH-USDT-1h-bear-2", Pair: "ETH-USDT", Timeframe: "1h",
			Direction:      models.DirectionBear,
			PredictionTime: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			StartPrice:     2000,
			Status:         models.PredictionPending,
		},
	}

	data, err := sonic.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out []*models.PredictionRecord
	if err := sonic.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\nin:  %+v\nout: %+v", in[0], out[0])
	}
}
