package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/repository"
)

// BotStatus is what the liveness surface may ask of the platform session.
type BotStatus interface {
	Connected() bool
	BotTag() string
	CommunityCount() int
}

// StatusHandler serves the process-liveness endpoints. It only reads
// counters; ticket state is never mutated from here.
type StatusHandler struct {
	serviceName string
	version     string
	metrics     *observability.Metrics
	registry    repository.TicketRegistry
	status      BotStatus
}

// NewStatusHandler returns a new handler instance.
func NewStatusHandler(serviceName, version string, metrics *observability.Metrics, registry repository.TicketRegistry, status BotStatus) *StatusHandler {
	return &StatusHandler{
		serviceName: serviceName,
		version:     version,
		metrics:     metrics,
		registry:    registry,
		status:      status,
	}
}

// Root lists available endpoints.
func (h *StatusHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "online",
		"service":   h.serviceName,
		"version":   h.version,
		"endpoints": []string{"/health", "/status", "/uptime"},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Health reports process liveness.
func (h *StatusHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"uptime":    h.metrics.Uptime().Seconds(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Status reports bot connection state and read-only ticket counters.
func (h *StatusHandler) Status(c *fiber.Ctx) error {
	var bot fiber.Map
	if h.status != nil && h.status.Connected() {
		bot = fiber.Map{
			"tag":         h.status.BotTag(),
			"communities": h.status.CommunityCount(),
		}
	}
	return c.JSON(fiber.Map{
		"bot":            bot,
		"active_tickets": h.registry.Count(),
		"counters":       h.metrics.Snapshot(),
		"uptime":         h.metrics.Uptime().Seconds(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// Uptime reports uptime in raw and human-readable form.
func (h *StatusHandler) Uptime(c *fiber.Ctx) error {
	uptime := h.metrics.Uptime()
	seconds := int(uptime.Seconds())
	return c.JSON(fiber.Map{
		"uptime": uptime.Seconds(),
		"formatted": fmt.Sprintf("%dd %dh %dm %ds",
			seconds/86400, seconds%86400/3600, seconds%3600/60, seconds%60),
	})
}
