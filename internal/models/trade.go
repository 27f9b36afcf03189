package models

import "time"

type TradeStatus string

const (
	TradePending TradeStatus = "pending"
	TradeActive  TradeStatus = "active"
	TradeClosed  TradeStatus = "closed"
)

// Причины закрытия сделки.
const (
	CloseReasonTakeProfit = "take_profit"
	CloseReasonStopLoss   = "stop_loss"
	CloseReasonTrailing   = "trailing_stop"
	CloseReasonManual     = "manual"
	CloseReasonTimeout    = "timeout"
)

// Trade — симулируемая позиция. PnL считается один раз при закрытии
// и после этого не меняется.
type Trade struct {
	ID        string      `json:"id"`
	Pair      string      `json:"pair"`
	Direction Side        `json:"direction"` // LONG / SHORT
	Status    TradeStatus `json:"status"`

	EntryPrice float64   `json:"entry_price"`
	Notional   float64   `json:"notional"`
	OpenedAt   time.Time `json:"opened_at"`

	StopLoss        float64 `json:"stop_loss"`         // текущий, двигается трейлингом
	InitialStopLoss float64 `json:"initial_stop_loss"` // стоп на момент открытия
	TakeProfit      float64 `json:"take_profit"`

	// Экстремумы цены в пользу позиции — для трейлинга.
	HighWaterMark float64 `json:"high_water_mark,omitempty"`
	LowWaterMark  float64 `json:"low_water_mark,omitempty"`
	TrailArmed    bool    `json:"trail_armed,omitempty"`

	ExitPrice   float64    `json:"exit_price,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	CloseReason string     `json:"close_reason,omitempty"`
	PnL         float64    `json:"pnl"`
}

func (t *Trade) Open() bool { return t.Status != TradeClosed }
