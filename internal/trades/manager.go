package trades

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"heat_engine/internal/models"
	"heat_engine/internal/modules/config"
)

var (
	ErrIncompleteSignal = errors.New("trades: signal missing price, take-profit or stop-loss")
	ErrPairBusy         = errors.New("trades: pair already has a non-closed trade")
	ErrTooManyTrades    = errors.New("trades: max open trades reached")
	ErrNotFound         = errors.New("trades: trade not found")
	ErrClosed           = errors.New("trades: trade already closed")
)

// Manager — стейт-машина pending -> active -> closed. Инвариант: на пару
// не больше одной незакрытой сделки; общий счётчик открытых — под мьютексом,
// он один на все пары. Наружу уходят только копии сделок: живые
// указатели мутируют под мьютексом на каждом тике, и отдавать их
// сериализатору нельзя.
type Manager struct {
	cfg config.TradingConfig

	mu     sync.Mutex
	trades map[string]*models.Trade // id -> trade
	byPair map[string]string        // pair -> id незакрытой сделки
	closed []*models.Trade
	seq    int64
}

func NewManager(cfg config.TradingConfig) *Manager {
	return &Manager{
		cfg:    cfg,
		trades: make(map[string]*models.Trade),
		byPair: make(map[string]string),
	}
}

func clone(t *models.Trade) *models.Trade {
	c := *t
	if t.ClosedAt != nil {
		at := *t.ClosedAt
		c.ClosedAt = &at
	}
	return &c
}

// Open создаёт pending-сделку по полному сигналу. При включённом
// auto_confirm сразу переводит в active.
func (m *Manager) Open(sig models.Signal, now time.Time) (*models.Trade, error) {
	if sig.Pair == "" || sig.Price <= 0 || sig.TakeProfit <= 0 || sig.StopLoss <= 0 {
		return nil, ErrIncompleteSignal
	}
	if sig.Side != models.SideLong && sig.Side != models.SideShort {
		return nil, ErrIncompleteSignal
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.byPair[sig.Pair]; busy {
		return nil, ErrPairBusy
	}
	if len(m.byPair) >= m.cfg.MaxOpenTrades {
		return nil, ErrTooManyTrades
	}

	m.seq++
	t := &models.Trade{
		ID:              fmt.Sprintf("%s-%d-%d", sig.Pair, now.UnixMilli(), m.seq),
		Pair:            sig.Pair,
		Direction:       sig.Side,
		Status:          models.TradePending,
		EntryPrice:      sig.Price,
		Notional:        m.cfg.Notional,
		OpenedAt:        now,
		StopLoss:        sig.StopLoss,
		InitialStopLoss: sig.StopLoss,
		TakeProfit:      sig.TakeProfit,
	}
	if m.cfg.AutoConfirm {
		t.Status = models.TradeActive
	}
	m.trades[t.ID] = t
	m.byPair[t.Pair] = t.ID
	return clone(t), nil
}

// Confirm переводит pending в active. Никакой бизнес-валидации,
// кроме существования.
func (m *Manager) Confirm(id string) (*models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trades[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status == models.TradeClosed {
		return nil, ErrClosed
	}
	t.Status = models.TradeActive
	return clone(t), nil
}

// Update правит entry/tp/sl, пока сделка не закрыта.
func (m *Manager) Update(id string, entry, tp, sl *float64) (*models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trades[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status == models.TradeClosed {
		return nil, ErrClosed
	}
	if entry != nil && *entry > 0 {
		t.EntryPrice = *entry
	}
	if tp != nil && *tp > 0 {
		t.TakeProfit = *tp
	}
	if sl != nil && *sl > 0 {
		t.StopLoss = *sl
		t.InitialStopLoss = *sl
		t.TrailArmed = false
	}
	return clone(t), nil
}

// Close — ручное закрытие по текущей цене.
func (m *Manager) Close(id string, price float64, reason string, now time.Time) (*models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trades[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status == models.TradeClosed {
		return nil, ErrClosed
	}
	m.closeLocked(t, price, reason, now)
	return clone(t), nil
}

// EvaluateTick прогоняет активные сделки пары против свежей цены:
// сначала трейлинг подтягивает стоп, потом TP/SL. Возвращает закрытые
// на этом тике сделки.
func (m *Manager) EvaluateTick(pair string, price float64, now time.Time) []*models.Trade {
	if price <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byPair[pair]
	if !ok {
		return nil
	}
	t := m.trades[id]

	// pending старше TTL закрываем по таймауту
	if t.Status == models.TradePending {
		if m.cfg.PendingTTL > 0 && now.Sub(t.OpenedAt) > m.cfg.PendingTTL {
			m.closeLocked(t, t.EntryPrice, models.CloseReasonTimeout, now)
			return []*models.Trade{clone(t)}
		}
		return nil
	}
	if t.Status != models.TradeActive {
		return nil
	}

	if m.cfg.TrailEnabled {
		m.trail(t, price)
	}

	if t.Direction == models.SideLong {
		switch {
		case price >= t.TakeProfit:
			m.closeLocked(t, t.TakeProfit, models.CloseReasonTakeProfit, now)
		case price <= t.StopLoss:
			m.closeLocked(t, t.StopLoss, stopReason(t), now)
		}
	} else {
		switch {
		case price <= t.TakeProfit:
			m.closeLocked(t, t.TakeProfit, models.CloseReasonTakeProfit, now)
		case price >= t.StopLoss:
			m.closeLocked(t, t.StopLoss, stopReason(t), now)
		}
	}

	if t.Status == models.TradeClosed {
		return []*models.Trade{clone(t)}
	}
	return nil
}

// trail подтягивает стоп вслед за экстремумом цены. Стоп только
// улучшается, откатов назад нет.
func (m *Manager) trail(t *models.Trade, price float64) {
	if t.Direction == models.SideLong {
		if price > t.HighWaterMark {
			t.HighWaterMark = price
		}
		profitPct := (price - t.EntryPrice) / t.EntryPrice * 100
		if !t.TrailArmed && profitPct >= m.cfg.TrailActivatePct {
			t.TrailArmed = true
		}
		if t.TrailArmed {
			candidate := t.HighWaterMark * (1 - m.cfg.TrailDistancePct/100)
			if candidate > t.StopLoss {
				t.StopLoss = candidate
			}
		}
		return
	}

	if t.LowWaterMark == 0 || price < t.LowWaterMark {
		t.LowWaterMark = price
	}
	profitPct := (t.EntryPrice - price) / t.EntryPrice * 100
	if !t.TrailArmed && profitPct >= m.cfg.TrailActivatePct {
		t.TrailArmed = true
	}
	if t.TrailArmed {
		candidate := t.LowWaterMark * (1 + m.cfg.TrailDistancePct/100)
		if candidate < t.StopLoss {
			t.StopLoss = candidate
		}
	}
}

func stopReason(t *models.Trade) string {
	if t.TrailArmed && t.StopLoss != t.InitialStopLoss {
		return models.CloseReasonTrailing
	}
	return models.CloseReasonStopLoss
}

// closeLocked считает pnl один раз; после этого сделка не мутирует.
func (m *Manager) closeLocked(t *models.Trade, exit float64, reason string, now time.Time) {
	t.Status = models.TradeClosed
	t.ExitPrice = exit
	t.CloseReason = reason
	closedAt := now
	t.ClosedAt = &closedAt

	qty := t.Notional / t.EntryPrice
	pnl := (exit - t.EntryPrice) * qty
	if t.Direction == models.SideShort {
		pnl = -pnl
	}
	t.PnL = pnl

	delete(m.byPair, t.Pair)
	m.closed = append(m.closed, t)
}

// Restore загружает незакрытые сделки после рестарта. Конфликт по
// паре решается в пользу уже загруженной сделки.
func (m *Manager) Restore(open []*models.Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range open {
		if t == nil || t.Status == models.TradeClosed {
			continue
		}
		if _, busy := m.byPair[t.Pair]; busy {
			continue
		}
		m.trades[t.ID] = clone(t)
		m.byPair[t.Pair] = t.ID
		m.seq++
	}
}

func (m *Manager) Get(id string) (*models.Trade, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[id]
	if !ok {
		return nil, false
	}
	return clone(t), true
}

func (m *Manager) OpenTrades() []*models.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Trade, 0, len(m.byPair))
	for _, id := range m.byPair {
		out = append(out, clone(m.trades[id]))
	}
	return out
}

func (m *Manager) ClosedTrades() []*models.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Trade, 0, len(m.closed))
	for _, t := range m.closed {
		out = append(out, clone(t))
	}
	return out
}

func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byPair)
}
