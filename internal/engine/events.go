package engine

import (
	"time"

	"heat_engine/internal/models"
)

// Command — входящая команда цикла.
type Command int

const (
	CmdStart Command = iota
	CmdStop
	CmdPause
	CmdResume
)

// State — состояние цикла движка.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// LogLevel — уровни структурных записей для презентационного слоя.
type LogLevel string

const (
	LogInfo     LogLevel = "info"
	LogRequest  LogLevel = "request"
	LogResponse LogLevel = "response"
	LogError    LogLevel = "error"
	LogWarn     LogLevel = "warn"
)

// LogEntry — структурная запись тика.
type LogEntry struct {
	Level   LogLevel       `json:"level"`
	Message string         `json:"message"`
	Payload map[string]any `json:"payload,omitempty"`
}

// TickResult — исходящее событие одного тика.
type TickResult struct {
	At                  time.Time                  `json:"at"`
	Heat                []models.HeatScore         `json:"heat"`
	OpenedTrades        []*models.Trade            `json:"opened_trades,omitempty"`
	ClosedTrades        []*models.Trade            `json:"closed_trades,omitempty"`
	NewPredictions      []*models.PredictionRecord `json:"new_predictions,omitempty"`
	ResolvedPredictions []*models.PredictionRecord `json:"resolved_predictions,omitempty"`
	Logs                []LogEntry                 `json:"logs,omitempty"`
}
