package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/storefront/pkg/logger"
	"go.uber.org/zap"
)

// LoggingMiddleware writes one access log line per request. It must run after
// RequestIDMiddleware so the line carries the request ID.
func LoggingMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		status := c.Response().Status
		fields := []zap.Field{
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("remote_ip", c.RealIP()),
		}

		log := logger.FromContext(c)
		switch {
		case status >= 500:
			log.Error("Request completed", fields...)
		case status >= 400:
			log.Warn("Request completed", fields...)
		default:
			log.Info("Request completed", fields...)
		}
		return nil
	}
}
