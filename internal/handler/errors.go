package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/storefront/internal/repository"
	"github.com/suteetoe/storefront/internal/service"
	"github.com/suteetoe/storefront/internal/slug"
	"github.com/suteetoe/storefront/pkg/pagination"
	"go.uber.org/zap"
)

// respondError maps domain errors onto HTTP responses. Anything unrecognised is a 500.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		log.Info("Request rejected by validation", zap.Error(err))
		return c.JSON(http.StatusBadRequest, verr.Fields)
	case errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrCategoryNotFound),
		errors.Is(err, repository.ErrOrderNotFound):
		log.Info("Resource not found", zap.Error(err))
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Not found."})
	case errors.Is(err, pagination.ErrInvalidPage):
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Invalid page."})
	case errors.Is(err, repository.ErrCategoryInUse):
		log.Warn("Category delete blocked", zap.Error(err))
		return c.JSON(http.StatusConflict, echo.Map{"detail": "Cannot delete category while products reference it."})
	case errors.Is(err, repository.ErrProductInUse):
		log.Warn("Product delete blocked", zap.Error(err))
		return c.JSON(http.StatusConflict, echo.Map{"detail": "Cannot delete product while orders reference it."})
	case errors.Is(err, slug.ErrAllocationExhausted):
		log.Error("Slug allocation exhausted", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "Unable to generate unique slug."})
	default:
		log.Error("Request failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "Internal server error."})
	}
}

// badRequest answers a body that could not be decoded at all.
func badRequest(c echo.Context, log *zap.Logger, err error) error {
	log.Warn("Invalid request data", zap.Error(err))
	return c.JSON(http.StatusBadRequest, echo.Map{"detail": "JSON parse error."})
}

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, echo.Map{"detail": "Not found."})
}
