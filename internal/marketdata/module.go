package marketdata

import (
	"heat_engine/internal/modules/config"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("marketdata",
		fx.Provide(
			func(cfg *config.Config) *Client {
				return NewClient(cfg.Market.RESTBase)
			},
			func(cfg *config.Config) *Streamer {
				return NewStreamer(cfg.Market.WSBase)
			},
		),
	)
}
