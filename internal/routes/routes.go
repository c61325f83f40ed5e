package routes

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marminbh/aggregation-connector/internal/handlers"
)

// SetupRoutes configures all application routes with dependencies
func SetupRoutes(app *fiber.App, healthHandler *handlers.HealthHandler, hooksHandler *handlers.HooksHandler) {
	// Health check and metrics endpoints
	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Webhook delivery paths
	api := app.Group("/v1")
	{
		api.Post("/hooks", hooksHandler.HandleEvent)
		api.Post("/hooks/connection-synced", hooksHandler.HandleConnectionSynced)
	}
}
