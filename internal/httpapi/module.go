package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"heat_engine/internal/modules/config"
	"heat_engine/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("httpapi",
		fx.Provide(
			NewHandler,
			func(h *Handler) *echo.Echo {
				e := echo.New()
				e.HideBanner = true
				e.Use(middleware.Recover())
				h.RegisterRoutes(e)
				return e
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, e *echo.Echo) {
			public := fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.PublicPort)
			admin := fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.AdminPort)

			adminMux := http.NewServeMux()
			adminMux.Handle("/metrics", promhttp.Handler())
			adminSrv := &http.Server{Addr: admin, Handler: adminMux}

			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						logger.Info("[API] public api on %s", public)
						if err := e.Start(public); err != nil && err != http.ErrServerClosed {
							logger.Error("[API] public server: %v", err)
						}
					}()
					go func() {
						logger.Info("[API] metrics on %s/metrics", admin)
						if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
							logger.Error("[API] admin server: %v", err)
						}
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					_ = adminSrv.Shutdown(ctx)
					return e.Shutdown(ctx)
				},
			})
		}),
	)
}
