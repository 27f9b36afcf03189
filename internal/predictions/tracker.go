package predictions

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"heat_engine/internal/models"
)

const defaultHorizon = 5 * time.Minute

// Tracker ведёт ставки (пара, таймфрейм, направление) и оценивает их
// после истечения горизонта. Без текущей цены запись ждёт сколько
// угодно — это штатное состояние, не сбой.
type Tracker struct {
	sidewaysPct float64 // |Δ|/start в процентах, ниже — SIDEWAYS

	mu      sync.Mutex
	pending []*models.PredictionRecord
	done    []*models.PredictionRecord
	seq     int64
}

func NewTracker(sidewaysPct float64) *Tracker {
	if sidewaysPct <= 0 {
		sidewaysPct = 0.05
	}
	return &Tracker{sidewaysPct: sidewaysPct}
}

// Record создаёт pending-запись в момент эмиссии сигнала.
func (t *Tracker) Record(pair, timeframe string, dir models.Direction, startPrice float64, now time.Time) *models.PredictionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	rec := &models.PredictionRecord{
		ID:             fmt.Sprintf("%s-%s-%s-%d", pair, timeframe, dir, t.seq),
		Pair:           pair,
		Timeframe:      timeframe,
		Direction:      dir,
		PredictionTime: now,
		StartPrice:     startPrice,
		Status:         models.PredictionPending,
	}
	t.pending = append(t.pending, rec)
	return rec
}

// Resolve проходит по pending: у кого горизонт истёк и есть цена —
// классифицирует исход ровно один раз. Возвращает решённые на этом тике.
func (t *Tracker) Resolve(now time.Time, prices map[string]float64) []*models.PredictionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	resolved := []*models.PredictionRecord{}
	keep := t.pending[:0]
	for _, rec := range t.pending {
		if now.Sub(rec.PredictionTime) <= Horizon(rec.Timeframe) {
			keep = append(keep, rec)
			continue
		}
		price, ok := prices[rec.Pair]
		if !ok || price <= 0 {
			// цены нет — ждём дальше
			keep = append(keep, rec)
			continue
		}
		t.resolveOne(rec, price, now)
		resolved = append(resolved, rec)
	}
	t.pending = keep
	return resolved
}

func (t *Tracker) resolveOne(rec *models.PredictionRecord, price float64, now time.Time) {
	rec.Status = models.PredictionResolved
	endTime := now
	rec.EndTime = &endTime
	rec.EndPrice = price

	changePct := 0.0
	if rec.StartPrice != 0 {
		changePct = (price - rec.StartPrice) / rec.StartPrice * 100
	}
	// полоса бокового движения открытая: ровно на границе — уже тренд
	switch {
	case changePct > -t.sidewaysPct && changePct < t.sidewaysPct:
		rec.Outcome = models.OutcomeSideways
	case changePct > 0:
		rec.Outcome = models.OutcomeUp
	default:
		rec.Outcome = models.OutcomeDown
	}

	success := (rec.Direction == models.DirectionBull && rec.Outcome == models.OutcomeUp) ||
		(rec.Direction == models.DirectionBear && rec.Outcome == models.OutcomeDown)
	rec.Success = &success

	t.done = append(t.done, rec)
}

func (t *Tracker) Pending() []*models.PredictionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*models.PredictionRecord, len(t.pending))
	copy(out, t.pending)
	return out
}

func (t *Tracker) Resolved() []*models.PredictionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*models.PredictionRecord, len(t.done))
	copy(out, t.done)
	return out
}

// TimeframeStats — точность по таймфрейму.
type TimeframeStats struct {
	Timeframe string  `json:"timeframe"`
	Resolved  int     `json:"resolved"`
	Correct   int     `json:"correct"`
	HitRate   float64 `json:"hit_rate"`
}

func (t *Tracker) Stats() map[string]TimeframeStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]TimeframeStats)
	for _, rec := range t.done {
		s := out[rec.Timeframe]
		s.Timeframe = rec.Timeframe
		s.Resolved++
		if rec.Success != nil && *rec.Success {
			s.Correct++
		}
		out[rec.Timeframe] = s
	}
	for tf, s := range out {
		if s.Resolved > 0 {
			s.HitRate = float64(s.Correct) / float64(s.Resolved)
			out[tf] = s
		}
	}
	return out
}

// Horizon парсит метку таймфрейма: число + суффикс m/h/d.
// Непарсибельное — 5 минут по умолчанию.
func Horizon(timeframe string) time.Duration {
	tf := strings.TrimSpace(strings.ToLower(timeframe))
	if len(tf) < 2 {
		return defaultHorizon
	}
	n, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || n <= 0 {
		return defaultHorizon
	}
	switch tf[len(tf)-1] {
	case 'm':
		return time.Duration(n) * time.Minute
	case 'h':
		return time.Duration(n) * time.Hour
	case 'd':
		return time.Duration(n) * 24 * time.Hour
	default:
		return defaultHorizon
	}
}
