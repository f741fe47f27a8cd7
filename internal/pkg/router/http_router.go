package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuelReschke/edupay/app/controllers"
	"github.com/ManuelReschke/edupay/internal/pkg/metrics"
)

// HttpRouter serves the operational endpoints outside /api.
type HttpRouter struct {
	deps Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	health := controllers.NewHealthController(h.deps.DB, h.deps.Redis)
	app.Get("/health", health.HandleHealth)

	metrics.Register()
	metricsCfg := h.deps.Config.Metrics
	if metricsCfg.Password != "" {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{
				metricsCfg.User: metricsCfg.Password,
			},
		}), adaptor.HTTPHandler(promhttp.Handler()))
	}
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}
