package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"heat_engine/internal/models"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// Provider — источник сигналов с тем же контрактом, что и встроенный
// детектор. Внешний (LLM) провайдер невоспроизводим и не доверен:
// его выход валидируется до менеджера сделок.
type Provider interface {
	Name() string
	Signals(ctx context.Context) ([]models.Signal, error)
}

// ValidationError — битый payload провайдера; по таксономии ошибок
// движок прерывает тик и останавливается.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "provider: invalid signal payload: " + e.Reason
}

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Validate — схемная проверка одного сигнала.
func Validate(sig models.Signal) error {
	if sig.Pair == "" {
		return invalid("empty pair")
	}
	switch sig.Side {
	case models.SideLong, models.SideShort, models.SideNone:
	default:
		return invalid("unknown side %q", sig.Side)
	}
	if sig.Price < 0 || sig.TakeProfit < 0 || sig.StopLoss < 0 {
		return invalid("negative price level")
	}
	if sig.Confidence < 0 || sig.Confidence > 100 {
		return invalid("confidence %v out of [0,100]", sig.Confidence)
	}
	for i, m := range sig.Meta {
		if m.Timeframe == "" {
			return invalid("meta[%d]: empty timeframe", i)
		}
		if m.Direction != models.DirectionBull && m.Direction != models.DirectionBear {
			return invalid("meta[%d]: unknown direction %q", i, m.Direction)
		}
		if m.Confidence < 0 || m.Confidence > 100 {
			return invalid("meta[%d]: confidence %v out of [0,100]", i, m.Confidence)
		}
	}
	return nil
}

// wireSignal держит meta сырой, чтобы отличить каноническую форму
// (массив объектов) от исторической (map по таймфрейму).
type wireSignal struct {
	Pair       string          `json:"pair"`
	Side       models.Side     `json:"side"`
	Price      float64         `json:"price"`
	TakeProfit float64         `json:"take_profit"`
	StopLoss   float64         `json:"stop_loss"`
	Confidence float64         `json:"confidence"`
	Meta       json.RawMessage `json:"meta"`
	Reason     string          `json:"reason"`
}

// DecodeSignals разбирает и валидирует payload провайдера целиком.
// Map-форма меты отклоняется явно, а не конвертируется втихую.
func DecodeSignals(raw []byte) ([]models.Signal, error) {
	var wire []wireSignal
	if err := sonic.Unmarshal(raw, &wire); err != nil {
		return nil, &ValidationError{Reason: errors.Wrap(err, "decode").Error()}
	}

	out := make([]models.Signal, 0, len(wire))
	for i, w := range wire {
		sig := models.Signal{
			Pair: w.Pair, Side: w.Side,
			Price: w.Price, TakeProfit: w.TakeProfit, StopLoss: w.StopLoss,
			Confidence: w.Confidence, Reason: w.Reason,
		}
		if meta := bytes.TrimSpace(w.Meta); len(meta) > 0 && string(meta) != "null" {
			if meta[0] == '{' {
				return nil, invalid("signal[%d]: legacy map-keyed meta is not supported", i)
			}
			if err := sonic.Unmarshal(meta, &sig.Meta); err != nil {
				return nil, invalid("signal[%d]: meta: %v", i, err)
			}
		}
		if err := Validate(sig); err != nil {
			return nil, errors.Wrapf(err, "signal[%d]", i)
		}
		out = append(out, sig)
	}
	return out, nil
}
