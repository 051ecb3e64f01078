package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/storefront/internal/service"
	"github.com/suteetoe/storefront/pkg/logger"
	"go.uber.org/zap"
)

type CategoryRequest struct {
	Name string `json:"name"`
}

type CategoryHandler struct {
	catalog *service.CatalogService
}

func NewCategoryHandler(catalog *service.CatalogService) *CategoryHandler {
	return &CategoryHandler{catalog: catalog}
}

// ListCategories handles retrieving all categories
func (h *CategoryHandler) ListCategories(c echo.Context) error {
	log := logger.FromContext(c)

	categories, err := h.catalog.ListCategories(c.Request().Context())
	if err != nil {
		return respondError(c, log, err)
	}

	out := make([]CategoryResponse, 0, len(categories))
	for _, cat := range categories {
		out = append(out, newCategoryResponse(cat))
	}
	log.Info("Categories retrieved successfully", zap.Int("count", len(out)))
	return c.JSON(http.StatusOK, out)
}

// CreateCategory handles creating a new category
func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	log := logger.FromContext(c)

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, log, err)
	}

	category, err := h.catalog.CreateCategory(c.Request().Context(), req.Name)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Category created successfully",
		zap.Uint("category_id", category.ID),
		zap.String("slug", category.Slug))
	return c.JSON(http.StatusCreated, newCategoryResponse(*category))
}

// DeleteCategory removes a category that no product references
func (h *CategoryHandler) DeleteCategory(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}

	if err := h.catalog.DeleteCategory(c.Request().Context(), id); err != nil {
		return respondError(c, log.With(zap.Uint("category_id", id)), err)
	}

	log.Info("Category deleted successfully", zap.Uint("category_id", id))
	return c.NoContent(http.StatusNoContent)
}
