package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/storefront/pkg/logger"
	"go.uber.org/zap"
)

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(logger.RequestIDKey)
		if requestID == "" {
			requestID = uuid.New().String()
			c.Request().Header.Set(logger.RequestIDKey, requestID)
		}
		c.Set(logger.RequestIDKey, requestID)

		// Add request ID to response header
		c.Response().Header().Set(logger.RequestIDKey, requestID)

		// The request logger follows the call into services through the request context
		ctxLogger := logger.GetLogger().With(zap.String("request_id", requestID))
		c.Set("logger", ctxLogger)
		c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context(), ctxLogger)))

		return next(c)
	}
}

// RequestID returns the ID assigned by RequestIDMiddleware.
func RequestID(c echo.Context) string {
	id, _ := c.Get(logger.RequestIDKey).(string)
	return id
}
