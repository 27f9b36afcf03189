package engine

import (
	"context"
	"time"

	"heat_engine/internal/marketdata"
	"heat_engine/internal/metrics"
	"heat_engine/internal/models"
	"heat_engine/internal/modules/config"
	"heat_engine/internal/notify"
	"heat_engine/internal/provider"
	"heat_engine/internal/store"
	"heat_engine/pkg/logger"

	"go.uber.org/fx"
)

// storeSink сшивает pg-хранилище и redis-лог цен в один Sink.
type storeSink struct {
	pg  *store.PgStore
	log *store.PriceLog
}

func (s *storeSink) SaveTrade(ctx context.Context, t *models.Trade) error {
	return s.pg.SaveTrade(ctx, t)
}

func (s *storeSink) SavePrediction(ctx context.Context, p *models.PredictionRecord) error {
	return s.pg.SavePrediction(ctx, p)
}

func (s *storeSink) AppendPrice(ctx context.Context, pair string, price float64, at time.Time) error {
	return s.log.Append(ctx, pair, price, at)
}

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			func() *metrics.Recorder {
				return metrics.New()
			},
			func(cfg *config.Config) (*notify.Telegram, error) {
				return notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
			},
			func(cfg *config.Config, client *marketdata.Client, rec *metrics.Recorder,
				pg *store.PgStore, plog *store.PriceLog, tg *notify.Telegram) *Engine {
				opts := []Option{
					WithSink(&storeSink{pg: pg, log: plog}),
					WithNotifier(tg),
				}
				if cfg.Provider.URL != "" {
					name := cfg.Provider.Name
					if name == "" {
						name = "remote"
					}
					opts = append(opts, WithProvider(provider.NewRemote(name, cfg.Provider.URL)))
				}
				return New(cfg, client, rec, opts...)
			},
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			e *Engine,
			pg *store.PgStore,
			streamer *marketdata.Streamer,
			cfg *config.Config,
			ctx context.Context,
		) {
			lc.Append(fx.Hook{
				OnStart: func(startCtx context.Context) error {
					// рестарт: поднимаем незакрытые сделки обратно в менеджер
					for _, st := range []models.TradeStatus{models.TradePending, models.TradeActive} {
						open, err := pg.TradesByStatus(startCtx, st)
						if err != nil {
							return err
						}
						e.Trades().Restore(open)
					}
					if n := e.Trades().OpenCount(); n > 0 {
						logger.Info("[ENGINE] восстановлено незакрытых сделок: %d", n)
					}
					if cfg.Market.WSBase != "" {
						e.AttachStream(streamer.Stream(ctx, cfg.Pairs, cfg.Market.Resolution))
					}
					go e.Run(ctx)
					return nil
				},
			})
		}),
	)
}
