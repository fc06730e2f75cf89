package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/database"
)

const Version = "1.0.0"

type HealthHandler struct {
	db     database.Pinger
	logger *slog.Logger
}

// NewHealthHandler builds liveness and readiness checks. A nil db reports ready
// without checking storage.
func NewHealthHandler(db database.Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if h.db == nil {
		return c.JSON(HealthResponse{Status: "ready"})
	}

	if err := database.HealthCheck(c.UserContext(), h.db); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{
			Status: "unavailable",
			Checks: map[string]string{"database": "down"},
		})
	}

	return c.JSON(HealthResponse{
		Status: "ready",
		Checks: map[string]string{"database": "up"},
	})
}
