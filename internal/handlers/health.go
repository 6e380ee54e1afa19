package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mangrove/mangrove/internal/models"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Health reports whether the datastore behind the registry and the
// aggregation engine can serve reads. An unreachable store answers 503.
func (h *Handler) Health(c *fiber.Ctx) error {
	status, code := "healthy", fiber.StatusOK
	checks := map[string]string{"datastore": "ok"}
	if err := h.registryService.Ping(c.UserContext()); err != nil {
		h.logger.Warn("Health check failed", "check", "datastore", "error", err)
		status, code = "unhealthy", fiber.StatusServiceUnavailable
		checks["datastore"] = err.Error()
	}

	return c.Status(code).JSON(models.HealthResponse{
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   Version,
		Checks:    checks,
	})
}

// NotFound handles 404 errors
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_FOUND",
			Message: "Route not found",
			Path:    c.Path(),
		},
	})
}
