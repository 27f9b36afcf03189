package models

import "time"

// Candle — одна OHLCV-свеча фиксированного разрешения.
// Ключ — Timestamp (ms); внутри буфера строго возрастает.
type Candle struct {
	Timestamp  int64   `json:"ts"` // unix ms, уникальный ключ
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     float64 `json:"volume"`
	Resolution string  `json:"resolution"` // "1s", "1m", ...
}

func (c Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp)
}
