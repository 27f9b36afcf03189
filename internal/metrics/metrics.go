package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder — prometheus-метрики движка.
type Recorder struct {
	ticksTotal    prometheus.Counter
	ticksSkipped  prometheus.Counter
	signalsTotal  *prometheus.CounterVec
	tradesOpened  prometheus.Counter
	tradesClosed  *prometheus.CounterVec
	fetchErrors   prometheus.Counter
	lastPrice     *prometheus.GaugeVec
	heatScore     *prometheus.GaugeVec
	dynThreshold  *prometheus.GaugeVec
}

func New() *Recorder {
	return &Recorder{
		ticksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "heat_engine_ticks_total",
			Help: "Total engine ticks executed",
		}),
		ticksSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "heat_engine_ticks_skipped_total",
			Help: "Ticks skipped because the previous one was still running",
		}),
		signalsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "heat_engine_signals_total",
			Help: "Directional signals emitted by the detector",
		}, []string{"pair", "direction"}),
		tradesOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "heat_engine_trades_opened_total",
			Help: "Simulated trades opened",
		}),
		tradesClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "heat_engine_trades_closed_total",
			Help: "Simulated trades closed by reason",
		}, []string{"reason"}),
		fetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "heat_engine_fetch_errors_total",
			Help: "Market data fetch failures after retries",
		}),
		lastPrice: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "heat_engine_last_price",
			Help: "Last observed price per pair",
		}, []string{"pair"}),
		heatScore: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "heat_engine_heat_score",
			Help: "Current heat score per pair and side",
		}, []string{"pair", "side"}),
		dynThreshold: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "heat_engine_dynamic_threshold",
			Help: "Last volatility-scaled impulse threshold per pair",
		}, []string{"pair"}),
	}
}

func (r *Recorder) IncTick()        { r.ticksTotal.Inc() }
func (r *Recorder) IncSkippedTick() { r.ticksSkipped.Inc() }

func (r *Recorder) IncSignal(pair, direction string) {
	r.signalsTotal.WithLabelValues(pair, direction).Inc()
}

func (r *Recorder) IncTradeOpened() { r.tradesOpened.Inc() }

func (r *Recorder) IncTradeClosed(reason string) {
	r.tradesClosed.WithLabelValues(reason).Inc()
}

func (r *Recorder) IncFetchError() { r.fetchErrors.Inc() }

func (r *Recorder) SetLastPrice(pair string, price float64) {
	r.lastPrice.WithLabelValues(pair).Set(price)
}

func (r *Recorder) SetHeat(pair string, buy, sell float64) {
	r.heatScore.WithLabelValues(pair, "buy").Set(buy)
	r.heatScore.WithLabelValues(pair, "sell").Set(sell)
}

func (r *Recorder) SetThreshold(pair string, v float64) {
	r.dynThreshold.WithLabelValues(pair).Set(v)
}
