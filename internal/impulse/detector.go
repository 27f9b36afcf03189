package impulse

import (
	"math"

	"heat_engine/internal/candles"
	"heat_engine/internal/indicators"
	"heat_engine/internal/models"
	"heat_engine/internal/modules/config"
)

// Result — выход детектора за тик. Пересчитывается целиком, между
// тиками живёт только последний динамический порог (диагностика).
type Result struct {
	Heat      models.HeatScore
	Direction models.Direction // "" если сигнала нет
	Price     float64          // последний close, референс для предсказаний
	Threshold float64          // динамический порог этого тика
}

// Detector владеет буфером своей пары; всё остальное читает его
// только через Detector. Пороги — конфигурация, формула — контракт.
type Detector struct {
	cfg  config.DetectorConfig
	pair string
	buf  *candles.Buffer

	lastThreshold float64
	wasReady      bool
}

func NewDetector(pair string, cfg config.DetectorConfig) *Detector {
	return &Detector{
		cfg:           cfg,
		pair:          pair,
		buf:           candles.NewBuffer(pair, cfg.BufferCap),
		lastThreshold: cfg.BaseThreshold,
	}
}

func (d *Detector) Pair() string            { return d.pair }
func (d *Detector) Buffer() *candles.Buffer { return d.buf }
func (d *Detector) LastThreshold() float64  { return d.lastThreshold }

// Ready — буфер прогрет до окна волатильности.
func (d *Detector) Ready() bool { return d.buf.Len() >= d.cfg.VolatilityWindow }

// BecameReady взводится один раз при окончании прогрева пары.
func (d *Detector) BecameReady() bool {
	if d.wasReady || !d.Ready() {
		return false
	}
	d.wasReady = true
	return true
}

func (d *Detector) Ingest(rows []models.Candle)  { d.buf.Ingest(rows) }
func (d *Detector) Replace(rows []models.Candle) { d.buf.Replace(rows) }

// Evaluate — один проход контракта: волатильность -> динамический порог ->
// импульс цены и всплеск объёма -> одно-сторонний heat. Любая нехватка
// данных или нулевой знаменатель — нейтральный результат, не ошибка.
func (d *Detector) Evaluate() Result {
	res := Result{
		Heat: models.HeatScore{Pair: d.pair, Horizon: d.cfg.Horizon},
	}
	if last, ok := d.buf.Last(); ok {
		res.Price = last.Close
	}

	if d.buf.Len() < d.cfg.VolatilityWindow {
		d.lastThreshold = d.cfg.BaseThreshold
		res.Threshold = d.lastThreshold
		return res
	}

	volWindow := d.buf.Suffix(d.cfg.VolatilityWindow)
	volatility := indicators.StdDev(stepReturns(volWindow)) * 100

	dynamicThreshold := d.cfg.BaseThreshold * (1 + d.cfg.VolatilityMultiplier*volatility)
	d.lastThreshold = dynamicThreshold
	res.Threshold = dynamicThreshold

	if d.buf.Len() < d.cfg.ImpulseWindow {
		return res
	}

	impulse := d.buf.Suffix(d.cfg.ImpulseWindow)
	firstOpen := impulse[0].Open
	lastClose := impulse[len(impulse)-1].Close
	if firstOpen == 0 {
		return res
	}
	priceChangePct := (lastClose - firstOpen) / firstOpen * 100

	recentVolume := 0.0
	for _, c := range impulse {
		recentVolume += c.Volume
	}

	avgVolume := d.averageVolume()
	if avgVolume <= 0 {
		return res
	}
	volumeSpike := recentVolume / (avgVolume * float64(d.cfg.ImpulseWindow))

	if math.Abs(priceChangePct) <= dynamicThreshold || volumeSpike <= d.cfg.VolumeSpikeFactor {
		return res
	}

	priceExcess := math.Abs(priceChangePct)/dynamicThreshold - 1
	volumeExcess := volumeSpike/d.cfg.VolumeSpikeFactor - 1
	confidence := math.Min(100, d.cfg.ConfidenceThreshold+15*priceExcess+10*volumeExcess)

	if priceChangePct > 0 {
		res.Heat.Buy = confidence
		res.Direction = models.DirectionBull
	} else {
		res.Heat.Sell = confidence
		res.Direction = models.DirectionBear
	}
	return res
}

// трейлинг-SMA объёма за averageVolumeWindow последних свечей
func (d *Detector) averageVolume() float64 {
	window := d.buf.Suffix(d.cfg.AvgVolumeWindow)
	if len(window) < d.cfg.AvgVolumeWindow {
		return 0
	}
	volumes := make([]float64, len(window))
	for i, c := range window {
		volumes[i] = c.Volume
	}
	sma := indicators.SMA(volumes, d.cfg.AvgVolumeWindow)
	if len(sma) == 0 {
		return 0
	}
	return sma[len(sma)-1]
}

func stepReturns(rows []models.Candle) []float64 {
	out := make([]float64, 0, len(rows))
	for i := 1; i < len(rows); i++ {
		prev := rows[i-1].Close
		if prev == 0 {
			out = append(out, math.NaN()) // отфильтрует StdDev
			continue
		}
		out = append(out, (rows[i].Close-prev)/prev)
	}
	return out
}
