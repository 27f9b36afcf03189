package store

import (
	"context"
	"fmt"

	"heat_engine/internal/models"
	"heat_engine/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
)

// PgStore хранит сделки и предсказания. Payload лежит json-колонкой,
// статусные поля продублированы для выборок.
type PgStore struct {
	tm db.TxManager
}

func NewPgStore(tm db.TxManager) *PgStore {
	return &PgStore{tm: tm}
}

const (
	upsertTradeSQL = `
		INSERT INTO trades (id, pair, status, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET status = $3, payload = $4`

	selectTradesSQL = `SELECT payload FROM trades WHERE status = $1 ORDER BY id`

	upsertPredictionSQL = `
		INSERT INTO predictions (id, pair, status, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET status = $3, payload = $4`

	selectPredictionsSQL = `SELECT payload FROM predictions WHERE status = $1 ORDER BY id`
)

func (s *PgStore) SaveTrade(ctx context.Context, t *models.Trade) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("PgStore.SaveTrade: %w", err)
		}
	}()

	data, err := sonic.Marshal(t)
	if err != nil {
		return err
	}
	return s.tm.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, upsertTradeSQL, t.ID, t.Pair, string(t.Status), data)
		return err
	})
}

func (s *PgStore) TradesByStatus(ctx context.Context, status models.TradeStatus) (out []*models.Trade, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("PgStore.TradesByStatus: %w", err)
		}
	}()

	err = s.tm.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctxTx, selectTradesSQL, string(status))
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var payload []byte
			if err := rows.Scan(&payload); err != nil {
				return err
			}
			var t models.Trade
			if err := sonic.Unmarshal(payload, &t); err != nil {
				return err
			}
			out = append(out, &t)
		}
		return rows.Err()
	})
	return out, err
}

func (s *PgStore) SavePrediction(ctx context.Context, p *models.PredictionRecord) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("PgStore.SavePrediction: %w", err)
		}
	}()

	data, err := sonic.Marshal(p)
	if err != nil {
		return err
	}
	return s.tm.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, upsertPredictionSQL, p.ID, p.Pair, string(p.Status), data)
		return err
	})
}

func (s *PgStore) PredictionsByStatus(ctx context.Context, status models.PredictionStatus) (out []*models.PredictionRecord, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("PgStore.PredictionsByStatus: %w", err)
		}
	}()

	err = s.tm.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctxTx, selectPredictionsSQL, string(status))
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var payload []byte
			if err := rows.Scan(&payload); err != nil {
				return err
			}
			var p models.PredictionRecord
			if err := sonic.Unmarshal(payload, &p); err != nil {
				return err
			}
			out = append(out, &p)
		}
		return rows.Err()
	})
	return out, err
}
