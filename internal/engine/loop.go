package engine

import (
	"context"
	"time"

	"heat_engine/internal/marketdata"
	"heat_engine/internal/provider"
	"heat_engine/pkg/logger"

	"github.com/pkg/errors"
)

// Run — единственный цикл движка. Команды и таймер живут в одном
// select; сам тик уезжает в горутину, чтобы долгий фетч не блокировал
// stop/pause. Повторный тик при живом предыдущем пропускается.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	e.setState(StateRunning, "")
	logger.Info("[ENGINE] цикл запущен, пары: %v, тик %s", e.cfg.Pairs, e.cfg.TickInterval)
	if e.notifier != nil {
		e.notifier.SendF(ctx, "🚀 Движок запущен (%d пар)", len(e.cfg.Pairs))
	}

	tickCtx, cancelTick := context.WithCancel(ctx)
	defer func() { cancelTick() }() // cancelTick переназначается после стопа

	for {
		select {
		case <-ctx.Done():
			cancelTick()
			e.setState(StateStopped, "")
			logger.Info("[ENGINE] цикл остановлен: контекст закрыт")
			return

		case cmd := <-e.commands:
			switch cmd {
			case CmdStop:
				// рвём in-flight тик: его результат будет отброшен.
				// Цикл живёт дальше и ждёт CmdStart; насовсем — только
				// отменой контекста.
				cancelTick()
				e.setState(StateStopped, "")
				logger.Info("[ENGINE] стоп по команде")
				if e.notifier != nil {
					e.notifier.SendF(ctx, "🛑 Движок остановлен")
				}
			case CmdPause:
				e.setState(StatePaused, "")
				logger.Info("[ENGINE] пауза по команде")
			case CmdResume, CmdStart:
				if state, _ := e.Status(); state == StateStopped {
					// после стопа тикам нужен свежий контекст
					cancelTick()
					tickCtx, cancelTick = context.WithCancel(ctx)
				}
				e.setState(StateRunning, "")
				logger.Info("[ENGINE] запуск по команде")
			}

		case <-ticker.C:
			state, _ := e.Status()
			if state != StateRunning {
				continue
			}
			if !e.claimTick() {
				// прошлый тик ещё работает — этот пропускаем
				logger.Warn("[ENGINE] тик пропущен: предыдущий ещё выполняется")
				e.metrics.IncSkippedTick()
				continue
			}
			go func() {
				defer e.releaseTick()
				e.runTick(tickCtx)
			}()
		}
	}
}

// runTick исполняет тик и классифицирует его исход.
func (e *Engine) runTick(ctx context.Context) {
	res, err := e.tick(ctx)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			// остановились во время тика — результат не публикуем
			return
		case isRateLimit(err):
			e.setState(StatePaused, err.Error())
			logger.Warn("[ENGINE] rate limit, цикл на паузе: %v", err)
			if e.notifier != nil {
				e.notifier.SendF(ctx, "⏸ Rate limit от биржи, движок на паузе")
			}
		case isProviderViolation(err):
			// недоверенный провайдер прислал мусор — это стоп, не пауза
			e.setState(StateStopped, err.Error())
			logger.Error("[ENGINE] провайдер сигналов отдал некорректный payload: %v", err)
			if e.notifier != nil {
				e.notifier.SendF(ctx, "❌ Движок остановлен: битый ответ провайдера сигналов")
			}
		default:
			logger.Warn("[ENGINE] ошибка тика: %v", err)
			res.Logs = append(res.Logs, LogEntry{
				Level: LogError, Message: "tick failed",
				Payload: map[string]any{"error": err.Error()},
			})
		}
	}

	e.mu.Lock()
	e.tickCount++
	count := e.tickCount
	e.mu.Unlock()

	// каждый двадцатый тик — сводка здоровья в поток событий
	if count%20 == 0 {
		res.Logs = append(res.Logs, LogEntry{
			Level: LogInfo, Message: "health",
			Payload: map[string]any{
				"ticks":           count,
				"pairs":           len(e.detectors),
				"open_trades":     e.trades.OpenCount(),
				"events_buffered": len(e.events),
			},
		})
	}

	// подписчик событий может отстать, тик из-за него не блокируется
	select {
	case e.events <- res:
	default:
	}
}

func (e *Engine) claimTick() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tickBusy {
		return false
	}
	e.tickBusy = true
	return true
}

func (e *Engine) releaseTick() {
	e.mu.Lock()
	e.tickBusy = false
	e.mu.Unlock()
}

func isRateLimit(err error) bool {
	var rl *marketdata.RateLimitError
	return errors.As(err, &rl)
}

func isProviderViolation(err error) bool {
	var ve *provider.ValidationError
	return errors.As(err, &ve)
}
