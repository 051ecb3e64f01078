package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/storefront/internal/middleware"
	"github.com/suteetoe/storefront/internal/service"
	"github.com/suteetoe/storefront/pkg/logger"
	"github.com/suteetoe/storefront/pkg/pagination"
	"go.uber.org/zap"
)

type ProductHandler struct {
	catalog *service.CatalogService
}

func NewProductHandler(catalog *service.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// ListProducts handles the public catalog listing with search, category
// filter, ordering and pagination
func (h *ProductHandler) ListProducts(c echo.Context) error {
	log := logger.FromContext(c)
	query := c.QueryParams()

	_, authenticated := middleware.Claims(c)
	params, err := pagination.ParseParams(query, authenticated)
	if err != nil {
		log.Info("Invalid page requested", zap.String("page", query.Get(pagination.PageParam)))
		return respondError(c, log, err)
	}

	// category is repeatable: ?category=books&category=tools
	var categories []string
	for _, s := range query["category"] {
		if s = strings.TrimSpace(s); s != "" {
			categories = append(categories, s)
		}
	}

	products, count, err := h.catalog.ListProducts(c.Request().Context(), service.ListQuery{
		Search:     strings.TrimSpace(query.Get("search")),
		Categories: categories,
		Ordering:   query.Get("ordering"),
		Offset:     params.Offset(),
		Limit:      params.PageSize,
	})
	if err != nil {
		return respondError(c, log, err)
	}

	page, err := pagination.NewPage(newProductResponses(products), count, params, requestURL(c))
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Products retrieved successfully",
		zap.Int64("count", count),
		zap.Int("page", params.Page),
		zap.Int("page_size", params.PageSize))
	return c.JSON(http.StatusOK, page)
}

// TrendingProducts returns the most clicked active products
func (h *ProductHandler) TrendingProducts(c echo.Context) error {
	log := logger.FromContext(c)
	limit := service.ClampTrendingLimit(c.QueryParam("limit"))

	products, err := h.catalog.Trending(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Trending products retrieved", zap.Int("limit", limit), zap.Int("count", len(products)))
	return c.JSON(http.StatusOK, newProductResponses(products))
}

// GetProduct resolves an id or slug and counts the view
func (h *ProductHandler) GetProduct(c echo.Context) error {
	log := logger.FromContext(c)
	ref := service.ParseProductRef(c.Param("ref"))

	product, err := h.catalog.ViewProduct(c.Request().Context(), ref)
	if err != nil {
		return respondError(c, log.With(zap.String("ref", c.Param("ref"))), err)
	}

	log.Info("Product retrieved successfully",
		zap.Uint("product_id", product.ID),
		zap.String("slug", product.Slug),
		zap.Int64("click_count", product.ClickCount))
	return c.JSON(http.StatusOK, newProductResponse(*product))
}

// CreateProduct handles creating a new product
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)

	var req service.ProductInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, log, err)
	}

	product, err := h.catalog.CreateProduct(c.Request().Context(), req)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Product created successfully",
		zap.Uint("product_id", product.ID),
		zap.String("name", product.Name),
		zap.String("slug", product.Slug))
	return c.JSON(http.StatusCreated, newProductResponse(*product))
}

// UpdateProduct applies a partial update to a product
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}

	var req service.ProductPatch
	if err := c.Bind(&req); err != nil {
		return badRequest(c, log, err)
	}

	product, err := h.catalog.UpdateProduct(c.Request().Context(), id, req)
	if err != nil {
		return respondError(c, log.With(zap.Uint("product_id", id)), err)
	}

	log.Info("Product updated successfully", zap.Uint("product_id", id))
	return c.JSON(http.StatusOK, newProductResponse(*product))
}

// DeleteProduct handles deleting a product
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}

	if err := h.catalog.DeleteProduct(c.Request().Context(), id); err != nil {
		return respondError(c, log.With(zap.Uint("product_id", id)), err)
	}

	log.Info("Product deleted successfully", zap.Uint("product_id", id))
	return c.NoContent(http.StatusNoContent)
}

func pathID(c echo.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// requestURL rebuilds the absolute URL of the request for pagination links.
func requestURL(c echo.Context) *url.URL {
	req := c.Request()
	u := *req.URL
	u.Scheme = c.Scheme()
	u.Host = req.Host
	return &u
}
