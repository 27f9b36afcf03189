package main

import (
	"context"
	"log"

	"heat_engine/internal/engine"
	"heat_engine/internal/httpapi"
	"heat_engine/internal/marketdata"
	"heat_engine/internal/modules/config"
	"heat_engine/internal/store"
	"heat_engine/pkg/logger"
	"heat_engine/pkg/tracing"

	"go.uber.org/fx"
)

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		store.Module(),
		marketdata.Module(),
		engine.Module(),
		httpapi.Module(),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) {
			tracing.SetServiceName("heat_engine")
			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				logger.Warn("[MAIN] jaeger init: %v", err)
				return
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closeTracer()
					return nil
				},
			})
		}),
	)
	app.Run()
}
