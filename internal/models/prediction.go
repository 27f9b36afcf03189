package models

import "time"

type PredictionStatus string

const (
	PredictionPending  PredictionStatus = "pending"
	PredictionResolved PredictionStatus = "resolved"
)

type Outcome string

const (
	OutcomeUp       Outcome = "UP"
	OutcomeDown     Outcome = "DOWN"
	OutcomeSideways Outcome = "SIDEWAYS"
)

// PredictionRecord — ставка (пара, таймфрейм, направление), которая
// оценивается после истечения горизонта таймфрейма.
type PredictionRecord struct {
	ID             string           `json:"id"`
	Pair           string           `json:"pair"`
	Timeframe      string           `json:"timeframe"`
	Direction      Direction        `json:"direction"`
	PredictionTime time.Time        `json:"prediction_time"`
	StartPrice     float64          `json:"start_price"`
	Status         PredictionStatus `json:"status"`

	EndTime  *time.Time `json:"end_time,omitempty"`
	EndPrice float64    `json:"end_price,omitempty"`
	Outcome  Outcome    `json:"outcome,omitempty"`
	Success  *bool      `json:"success,omitempty"`
}
