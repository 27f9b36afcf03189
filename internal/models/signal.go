package models

// Side — направление сделки.
type Side string

const (
	SideNone  Side = ""
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Direction — предсказанное направление рынка.
type Direction string

const (
	DirectionBull Direction = "bull"
	DirectionBear Direction = "bear"
)

// HeatScore — уверенность детектора по паре, 0..100 на каждую сторону.
// Пересчитывается целиком на каждом тике, между тиками не живёт.
type HeatScore struct {
	Pair    string  `json:"pair"`
	Horizon string  `json:"horizon"` // метка горизонта, напр. "5m"
	Buy     float64 `json:"buy"`     // 0..100
	Sell    float64 `json:"sell"`    // 0..100
}

func (h HeatScore) Neutral() bool { return h.Buy == 0 && h.Sell == 0 }

// TimeframeMeta — направленный под-сигнал по таймфрейму.
// Каноническая форма меты — массив таких объектов (исторический вариант
// с map по таймфрейму не поддерживается, см. provider.Validate).
type TimeframeMeta struct {
	Timeframe  string    `json:"timeframe"`
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
}

// Signal — то, что отдаёт провайдер сигналов (встроенный детектор или
// внешний LLM-источник) менеджеру сделок и трекеру предсказаний.
type Signal struct {
	Pair       string          `json:"pair"`
	Side       Side            `json:"side"`
	Price      float64         `json:"price"`
	TakeProfit float64         `json:"take_profit"`
	StopLoss   float64         `json:"stop_loss"`
	Confidence float64         `json:"confidence"`
	Meta       []TimeframeMeta `json:"meta,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}
