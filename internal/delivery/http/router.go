package http

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler) {
	// Health check
	app.Get("/health", handler.HealthCheck)
	app.Get("/metrics", handler.Metrics)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Session
		api.Get("/state", handler.GetState)
		api.Get("/events", handler.StreamEvents)

		// Position
		api.Get("/position", handler.GetPosition)
		api.Post("/location", handler.PushLocation)
		api.Post("/location/unavailable", handler.LocationUnavailable)

		// Hazards
		api.Get("/hazards", handler.GetHazards)
		api.Get("/hazards/geojson", handler.GetHazardsGeoJSON)
		api.Post("/hazards/reload", handler.ReloadHazards)
		api.Get("/stats", handler.GetStats)
		api.Get("/alerts", handler.GetAlerts)

		// Routing
		api.Post("/destination", handler.SetDestination)
		api.Delete("/destination", handler.ClearDestination)
		api.Get("/route", handler.GetRoute)
		api.Get("/route/geojson", handler.GetRouteGeoJSON)

		// Simulation
		api.Post("/simulation/replay", handler.StartReplay)
		api.Post("/simulation/teleport", handler.Teleport)
		api.Post("/simulation/stop", handler.StopSimulation)
	}
}

// ErrorHandler renders errors in the API envelope
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   true,
		"message": message,
	})
}
