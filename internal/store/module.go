package store

import (
	"context"
	"fmt"

	"heat_engine/internal/modules/config"
	"heat_engine/pkg/db"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("store",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				err = poolMaster.Ping(ctx)
				if err != nil {
					return nil, err
				}

				return db.NewPgTxManager(poolMaster), nil
			},
			func(m *db.PgTxManager) *PgStore {
				return NewPgStore(m)
			},
			func(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
				client := redis.NewClient(&redis.Options{
					Addr: cfg.Redis.Addr,
					DB:   cfg.Redis.DB,
				})
				if err := client.Ping(ctx).Err(); err != nil {
					return nil, fmt.Errorf("redis ping: %w", err)
				}
				return client, nil
			},
			func(client *redis.Client, cfg *config.Config) *PriceLog {
				return NewPriceLog(client, cfg.PriceLogCap)
			},
		),
	)
}
