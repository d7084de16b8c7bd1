package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the services the HTTP surface is built on
type Deps struct {
	Ingester Ingester
	Enricher Enricher
	Totals   TotalsSource
	Logger   *zap.SugaredLogger
}

// Register mounts every route on app
func Register(app *fiber.App, d Deps) {
	app.Get("/healthz", HealthHandler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	admin := app.Group("/api/v1/admin")
	admin.Post("/fetch-date", FetchDateHandler(d.Ingester, d.Logger))
	admin.Post("/fetch-yesterday", FetchYesterdayHandler(d.Ingester, d.Logger))
	admin.Post("/init-changes", InitChangesHandler(d.Ingester, d.Logger))
	admin.Post("/enrich", EnrichHandler(d.Enricher, d.Logger))
	admin.Get("/status", StatusHandler(d.Totals, d.Logger))
}
