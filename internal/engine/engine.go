package engine

import (
	"context"
	"sync"
	"time"

	"heat_engine/internal/impulse"
	"heat_engine/internal/marketdata"
	"heat_engine/internal/models"
	"heat_engine/internal/modules/config"
	"heat_engine/internal/predictions"
	"heat_engine/internal/provider"
	"heat_engine/internal/trades"

	"github.com/pkg/errors"
)

// MarketData — внешний коллаборатор маркет-данных.
type MarketData interface {
	FetchCandles(ctx context.Context, pair, resolution string, since int64) ([]models.Candle, error)
	FetchTicker(ctx context.Context, pair string) (float64, error)
}

// Metrics — то, что движок пишет в prometheus (интерфейс, чтобы
// тесты жили без реестра).
type Metrics interface {
	IncTick()
	IncSkippedTick()
	IncSignal(pair, direction string)
	IncTradeOpened()
	IncTradeClosed(reason string)
	IncFetchError()
	SetLastPrice(pair string, price float64)
	SetHeat(pair string, buy, sell float64)
	SetThreshold(pair string, v float64)
}

// Notifier — пассивные уведомления, nil-safe.
type Notifier interface {
	SendF(ctx context.Context, format string, args ...any)
}

// Sink — персистентный слой: что удалось сохранить — хорошо,
// что нет — warning, тик не падает.
type Sink interface {
	SaveTrade(ctx context.Context, t *models.Trade) error
	SavePrediction(ctx context.Context, p *models.PredictionRecord) error
	AppendPrice(ctx context.Context, pair string, price float64, at time.Time) error
}

// Engine — один логический цикл тиков: свечи -> детектор -> сделки ->
// предсказания, в строгом порядке. Детекторы и их буферы принадлежат
// движку, кросс-парного мутабельного стейта нет — общий только
// счётчик открытых сделок внутри trades.Manager.
type Engine struct {
	cfg *config.Config

	market    MarketData
	detectors map[string]*impulse.Detector
	trades    *trades.Manager
	tracker   *predictions.Tracker
	extern    provider.Provider // опциональный внешний источник сигналов
	stream    <-chan marketdata.StreamTick
	metrics   Metrics
	notifier  Notifier
	sink      Sink

	commands chan Command
	events   chan TickResult

	mu        sync.Mutex
	state     State
	lastError string
	tickBusy  bool
	tickCount int64
	lastHeat  map[string]models.HeatScore
	// последние цены пар — снапшот для императивных операций: буфер
	// свечей принадлежит только тикающей горутине
	lastPrices map[string]float64

	now func() time.Time
}

type Option func(*Engine)

func WithProvider(p provider.Provider) Option { return func(e *Engine) { e.extern = p } }
func WithNotifier(n Notifier) Option          { return func(e *Engine) { e.notifier = n } }
func WithSink(s Sink) Option                  { return func(e *Engine) { e.sink = s } }
func WithClock(now func() time.Time) Option   { return func(e *Engine) { e.now = now } }

// AttachStream подключает ws-фид закрытых свечей; звать до Run.
func (e *Engine) AttachStream(ch <-chan marketdata.StreamTick) { e.stream = ch }

func New(cfg *config.Config, market MarketData, m Metrics, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg,
		market:     market,
		detectors:  make(map[string]*impulse.Detector, len(cfg.Pairs)),
		trades:     trades.NewManager(cfg.Trading),
		tracker:    predictions.NewTracker(cfg.PredictionSidewaysPct),
		metrics:    m,
		commands:   make(chan Command, 8),
		events:     make(chan TickResult, 64),
		state:      StateStopped,
		lastHeat:   make(map[string]models.HeatScore, len(cfg.Pairs)),
		lastPrices: make(map[string]float64, len(cfg.Pairs)),
		now:        time.Now,
	}
	for _, pair := range cfg.Pairs {
		e.detectors[pair] = impulse.NewDetector(pair, cfg.Detector)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Commands() chan Command        { return e.commands }
func (e *Engine) Events() <-chan TickResult     { return e.events }
func (e *Engine) Trades() *trades.Manager       { return e.trades }
func (e *Engine) Tracker() *predictions.Tracker { return e.tracker }

// Heat — последний снимок heat по всем парам.
func (e *Engine) Heat() []models.HeatScore {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.HeatScore, 0, len(e.lastHeat))
	for _, pair := range e.cfg.Pairs {
		if h, ok := e.lastHeat[pair]; ok {
			out = append(out, h)
		}
	}
	return out
}

// Status — состояние цикла и последняя видимая пользователю ошибка.
func (e *Engine) Status() (State, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.lastError
}

func (e *Engine) setState(s State, errMsg string) {
	e.mu.Lock()
	e.state = s
	e.lastError = errMsg
	e.mu.Unlock()
}

// lastPrice — цена пары с последнего тика; 0 если пара не прогрета.
// В буфер свечей отсюда не заглядываем: он принадлежит тику.
func (e *Engine) lastPrice(pair string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPrices[pair]
}

// --- императивные операции презентационного слоя ---

var ErrUnknownPair = errors.New("engine: unknown pair")
var ErrNoPrice = errors.New("engine: no price for pair yet")

// OpenTrade открывает сделку вручную по последней цене пары.
func (e *Engine) OpenTrade(pair string, side models.Side) (*models.Trade, error) {
	if _, ok := e.detectors[pair]; !ok {
		return nil, ErrUnknownPair
	}
	price := e.lastPrice(pair)
	if price <= 0 {
		return nil, ErrNoPrice
	}
	sig := e.buildSignal(pair, side, price, 0)
	t, err := e.trades.Open(sig, e.now())
	if err != nil {
		return nil, err
	}
	e.metrics.IncTradeOpened()
	return t, nil
}

func (e *Engine) ConfirmTrade(id string) (*models.Trade, error) {
	return e.trades.Confirm(id)
}

func (e *Engine) UpdateTrade(id string, entry, tp, sl *float64) (*models.Trade, error) {
	return e.trades.Update(id, entry, tp, sl)
}

func (e *Engine) CloseTrade(id, reason string) (*models.Trade, error) {
	t, ok := e.trades.Get(id)
	if !ok {
		return nil, trades.ErrNotFound
	}
	price := e.lastPrice(t.Pair)
	if price <= 0 {
		price = t.EntryPrice
	}
	if reason == "" {
		reason = models.CloseReasonManual
	}
	closed, err := e.trades.Close(id, price, reason, e.now())
	if err != nil {
		return nil, err
	}
	e.metrics.IncTradeClosed(reason)
	return closed, nil
}

// buildSignal достраивает TP/SL от цены по конфигу.
func (e *Engine) buildSignal(pair string, side models.Side, price, confidence float64) models.Signal {
	tcfg := e.cfg.Trading
	sig := models.Signal{
		Pair: pair, Side: side, Price: price, Confidence: confidence,
	}
	if side == models.SideLong {
		sig.TakeProfit = price * (1 + tcfg.TakeProfitPct/100)
		sig.StopLoss = price * (1 - tcfg.StopLossPct/100)
	} else {
		sig.TakeProfit = price * (1 - tcfg.TakeProfitPct/100)
		sig.StopLoss = price * (1 + tcfg.StopLossPct/100)
	}
	return sig
}
