package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports liveness and the state of backing services.
type HealthHandler struct {
	checks map[string]HealthCheck
	now    func() time.Time
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, now: time.Now}
}

func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
}

// Health is a simple root endpoint so we know the service is running.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	status := "ok"
	code := fiber.StatusOK
	deps := make(map[string]string, len(h.checks))

	ctx, cancel := context.WithTimeout(userContext(c), healthCheckTimeout)
	defer cancel()
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	return c.Status(code).JSON(fiber.Map{
		"service":      "DocLink",
		"status":       status,
		"dependencies": deps,
		"time":         h.now().UTC().Format(time.RFC3339),
	})
}
