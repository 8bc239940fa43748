package handlers

import (
	"context"
	"time"

	"profiles/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports service and database status.
type HealthHandler struct {
	service *services.UserService
}

func NewHealthHandler(service *services.UserService) *HealthHandler {
	return &HealthHandler{service: service}
}

func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HandleHealth)
}

// HandleHealth answers 200 when the database responds to a ping within two
// seconds and 503 otherwise.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status, database, code := "healthy", "connected", fiber.StatusOK
	if err := h.service.Ping(ctx); err != nil {
		status, database, code = "unhealthy", err.Error(), fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"time":     time.Now().Format(time.RFC3339),
		"database": database,
	})
}
