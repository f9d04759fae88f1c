package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/api/http/handlers"
)

// RegisterRoutes wires the liveness endpoints.
func RegisterRoutes(app *fiber.App, status *handlers.StatusHandler) {
	app.Get("/", status.Root)
	app.Get("/health", status.Health)
	app.Get("/status", status.Status)
	app.Get("/uptime", status.Uptime)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":     "endpoint not found",
			"available": []string{"/", "/health", "/status", "/uptime"},
		})
	})
}
