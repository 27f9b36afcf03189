package engine

import (
	"context"
	"time"

	"heat_engine/internal/models"
	"heat_engine/internal/provider"
	"heat_engine/pkg/logger"

	"github.com/opentracing/opentracing-go"
)

// tick — один проход: свечи -> детектор -> сделки -> предсказания.
// Порядок жёсткий: проверки сделок и предсказаний всегда видят самый
// свежий выход детектора. Ошибка наружу уходит только та, что меняет
// состояние цикла (rate limit / битый провайдер).
func (e *Engine) tick(ctx context.Context) (TickResult, error) {
	span := opentracing.StartSpan("engine.tick")
	defer span.Finish()

	now := e.now()
	res := TickResult{At: now}
	prices := make(map[string]float64, len(e.detectors))

	e.drainStream()

	for _, pair := range e.cfg.Pairs {
		det := e.detectors[pair]

		if err := e.refreshCandles(ctx, pair, &res); err != nil {
			return res, err
		}
		// отменили во время фетча — результат не применяем
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		if det.BecameReady() {
			res.Logs = append(res.Logs, LogEntry{
				Level: LogInfo, Message: "pair warmed up",
				Payload: map[string]any{"pair": pair},
			})
		}

		out := det.Evaluate()
		res.Heat = append(res.Heat, out.Heat)
		e.mu.Lock()
		e.lastHeat[pair] = out.Heat
		if out.Price > 0 {
			e.lastPrices[pair] = out.Price
		}
		e.mu.Unlock()
		e.metrics.SetHeat(pair, out.Heat.Buy, out.Heat.Sell)
		e.metrics.SetThreshold(pair, out.Threshold)

		if out.Price <= 0 {
			// цены по паре нет — пара пропускает тик, остальные живут.
			// Для резолва предсказаний хватает и тикера.
			if px, err := e.market.FetchTicker(ctx, pair); err == nil && px > 0 {
				prices[pair] = px
			}
			continue
		}
		prices[pair] = out.Price
		e.metrics.SetLastPrice(pair, out.Price)

		if out.Direction != "" {
			e.metrics.IncSignal(pair, string(out.Direction))
			e.applySignal(pair, out.Direction, out.Price, maxHeat(out.Heat), &res, now)
		}

		for _, closed := range e.trades.EvaluateTick(pair, out.Price, now) {
			e.metrics.IncTradeClosed(closed.CloseReason)
			res.ClosedTrades = append(res.ClosedTrades, closed)
		}

		if e.sink != nil {
			if err := e.sink.AppendPrice(ctx, pair, out.Price, now); err != nil {
				logger.Warn("[TICK] price log %s: %v", pair, err)
			}
		}
	}

	if e.extern != nil {
		if err := e.externalSignals(ctx, &res, prices); err != nil {
			return res, err
		}
	}

	// резолвим предсказания по ценам этого тика; без цены запись ждёт
	resolved := e.tracker.Resolve(now, prices)
	res.ResolvedPredictions = append(res.ResolvedPredictions, resolved...)

	e.persist(ctx, &res)
	e.metrics.IncTick()
	return res, nil
}

// drainStream забирает накопленные ws-свечи. Холодные буферы не
// трогаем: первый REST-фетч должен забрать полное окно. Дырки после
// ws-разрывов закрывает тот же REST-фетч.
func (e *Engine) drainStream() {
	if e.stream == nil {
		return
	}
	for {
		select {
		case t, ok := <-e.stream:
			if !ok {
				e.stream = nil
				return
			}
			if det, found := e.detectors[t.Pair]; found && det.Buffer().Len() > 0 {
				det.Ingest([]models.Candle{t.Candle})
			}
		default:
			return
		}
	}
}

// refreshCandles дотягивает свечи пары. Транзиентные ошибки уже
// отретраены клиентом: здесь warning и едем дальше на старых данных.
func (e *Engine) refreshCandles(ctx context.Context, pair string, res *TickResult) error {
	det := e.detectors[pair]

	since := int64(0)
	if last, ok := det.Buffer().Last(); ok {
		since = last.Timestamp
	} else {
		// холодный старт: тянем окно на всю капу буфера
		since = e.now().Add(-time.Duration(e.cfg.Detector.BufferCap) * time.Second).UnixMilli()
	}

	rows, err := e.market.FetchCandles(ctx, pair, e.cfg.Market.Resolution, since)
	if err != nil {
		e.metrics.IncFetchError()
		if isRateLimit(err) {
			return err // классовый rate limit — пауза цикла
		}
		logger.Warn("[TICK] fetch %s: %v", pair, err)
		res.Logs = append(res.Logs, LogEntry{
			Level: LogWarn, Message: "candle fetch failed, using stale buffer",
			Payload: map[string]any{"pair": pair, "error": err.Error()},
		})
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if det.Buffer().Len() == 0 {
		// свежая выборка без дырок — полная замена, не инкремент
		det.Replace(rows)
	} else {
		det.Ingest(rows)
	}
	return nil
}

// applySignal превращает направленный heat в сделку и ставку.
func (e *Engine) applySignal(pair string, dir models.Direction, price, confidence float64, res *TickResult, now time.Time) {
	// предсказание пишем на каждый эмитящий тик
	rec := e.tracker.Record(pair, e.cfg.Detector.Horizon, dir, price, now)
	res.NewPredictions = append(res.NewPredictions, rec)

	if confidence < e.cfg.Trading.MinConfidence {
		return
	}
	side := models.SideLong
	if dir == models.DirectionBear {
		side = models.SideShort
	}
	sig := e.buildSignal(pair, side, price, confidence)
	t, err := e.trades.Open(sig, now)
	if err != nil {
		// занятая пара и лимит открытых — штатные отказы
		res.Logs = append(res.Logs, LogEntry{
			Level: LogInfo, Message: "trade not opened",
			Payload: map[string]any{"pair": pair, "reason": err.Error()},
		})
		return
	}
	e.metrics.IncTradeOpened()
	res.OpenedTrades = append(res.OpenedTrades, t)
	if e.notifier != nil {
		e.notifier.SendF(context.Background(), "📈 [%s] Открыта %s @ %.6f (heat=%.0f)",
			pair, side, price, confidence)
	}
}

// externalSignals — недоверенный провайдер: битый payload валит тик
// и останавливает цикл, rate limit — пауза.
func (e *Engine) externalSignals(ctx context.Context, res *TickResult, prices map[string]float64) error {
	res.Logs = append(res.Logs, LogEntry{
		Level: LogRequest, Message: "external provider poll",
		Payload: map[string]any{"provider": e.extern.Name()},
	})
	sigs, err := e.extern.Signals(ctx)
	if err != nil {
		return err
	}
	res.Logs = append(res.Logs, LogEntry{
		Level: LogResponse, Message: "external provider signals",
		Payload: map[string]any{"provider": e.extern.Name(), "count": len(sigs)},
	})

	now := e.now()
	for _, sig := range sigs {
		// схему уже проверил DecodeSignals, но чужой Provider мог и соврать
		if err := provider.Validate(sig); err != nil {
			return err
		}
		if sig.Price <= 0 {
			if px, ok := prices[sig.Pair]; ok {
				sig.Price = px
			} else {
				continue
			}
		}
		for _, m := range sig.Meta {
			rec := e.tracker.Record(sig.Pair, m.Timeframe, m.Direction, sig.Price, now)
			res.NewPredictions = append(res.NewPredictions, rec)
		}
		if sig.Side == models.SideNone || sig.Confidence < e.cfg.Trading.MinConfidence {
			continue
		}
		if sig.TakeProfit == 0 || sig.StopLoss == 0 {
			sig = e.buildSignal(sig.Pair, sig.Side, sig.Price, sig.Confidence)
		}
		t, err := e.trades.Open(sig, now)
		if err != nil {
			continue
		}
		e.metrics.IncTradeOpened()
		res.OpenedTrades = append(res.OpenedTrades, t)
	}
	return nil
}

func (e *Engine) persist(ctx context.Context, res *TickResult) {
	if e.sink == nil {
		return
	}
	for _, t := range res.OpenedTrades {
		if err := e.sink.SaveTrade(ctx, t); err != nil {
			logger.Warn("[TICK] persist trade %s: %v", t.ID, err)
		}
	}
	for _, t := range res.ClosedTrades {
		if err := e.sink.SaveTrade(ctx, t); err != nil {
			logger.Warn("[TICK] persist trade %s: %v", t.ID, err)
		}
	}
	for _, p := range res.NewPredictions {
		if err := e.sink.SavePrediction(ctx, p); err != nil {
			logger.Warn("[TICK] persist prediction %s: %v", p.ID, err)
		}
	}
	for _, p := range res.ResolvedPredictions {
		if err := e.sink.SavePrediction(ctx, p); err != nil {
			logger.Warn("[TICK] persist prediction %s: %v", p.ID, err)
		}
	}
}

func maxHeat(h models.HeatScore) float64 {
	if h.Buy > h.Sell {
		return h.Buy
	}
	return h.Sell
}
