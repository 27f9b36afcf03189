package candles

import (
	"sort"

	"heat_engine/internal/models"
)

// Buffer — скользящее окно свечей одной пары. Мутирует только
// Ingest/Replace, всё остальное читает. Одним буфером владеет ровно
// один детектор, конкурентного доступа нет.
type Buffer struct {
	pair string
	cap  int
	rows []models.Candle
}

func NewBuffer(pair string, capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{
		pair: pair,
		cap:  capacity,
		rows: make([]models.Candle, 0, capacity),
	}
}

func (b *Buffer) Pair() string { return b.pair }
func (b *Buffer) Len() int     { return len(b.rows) }

// Ingest вливает новые свечи: дубликаты по timestamp отбрасываются,
// при нарушении порядка буфер пересортировывается, затем режется
// до капы (старые уходят первыми).
func (b *Buffer) Ingest(rows []models.Candle) {
	if len(rows) == 0 {
		return
	}
	seen := make(map[int64]struct{}, len(b.rows))
	for _, c := range b.rows {
		seen[c.Timestamp] = struct{}{}
	}

	added := false
	for _, c := range rows {
		if _, dup := seen[c.Timestamp]; dup {
			continue
		}
		seen[c.Timestamp] = struct{}{}
		b.rows = append(b.rows, c)
		added = true
	}
	if !added {
		return
	}

	if !sort.SliceIsSorted(b.rows, func(i, j int) bool {
		return b.rows[i].Timestamp < b.rows[j].Timestamp
	}) {
		sort.Slice(b.rows, func(i, j int) bool {
			return b.rows[i].Timestamp < b.rows[j].Timestamp
		})
	}

	b.trim()
}

// Replace полностью заменяет окно: инкрементальный Ingest может
// оставить дырки, если фид пропустил секунды.
func (b *Buffer) Replace(rows []models.Candle) {
	b.rows = b.rows[:0]
	b.Ingest(rows)
}

// Suffix — последние n свечей, read-only view.
func (b *Buffer) Suffix(n int) []models.Candle {
	if n <= 0 {
		return nil
	}
	if n >= len(b.rows) {
		return b.rows
	}
	return b.rows[len(b.rows)-n:]
}

// Last — последняя свеча, ok=false на пустом буфере.
func (b *Buffer) Last() (models.Candle, bool) {
	if len(b.rows) == 0 {
		return models.Candle{}, false
	}
	return b.rows[len(b.rows)-1], true
}

func (b *Buffer) trim() {
	if over := len(b.rows) - b.cap; over > 0 {
		b.rows = append(b.rows[:0], b.rows[over:]...)
	}
}
