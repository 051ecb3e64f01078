package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/storefront/pkg/logger"
	"go.uber.org/zap"
)

// Pinger checks a backing dependency.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	service string
	checks  map[string]Pinger
}

func NewHealthHandler(service string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{service: service, checks: checks}
}

// HealthCheck handles the health check endpoint
func (h *HealthHandler) HealthCheck(c echo.Context) error {
	status := http.StatusOK
	deps := map[string]string{}
	for name, ping := range h.checks {
		if err := ping(c.Request().Context()); err != nil {
			logger.FromContext(c).Error("Health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	return c.JSON(status, echo.Map{
		"status":       state,
		"service":      h.service,
		"dependencies": deps,
	})
}
