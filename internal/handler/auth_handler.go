package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/storefront/internal/middleware"
	"github.com/suteetoe/storefront/pkg/logger"
	"go.uber.org/zap"
)

// CheckAdmin reports whether the authenticated caller is staff
func CheckAdmin(c echo.Context) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Authentication credentials were not provided."})
	}

	logger.FromContext(c).Debug("Admin check", zap.Uint("user_id", claims.UserID), zap.Bool("is_admin", claims.IsStaff))
	return c.JSON(http.StatusOK, echo.Map{"is_admin": claims.IsStaff})
}
