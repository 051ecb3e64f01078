package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/storefront/internal/middleware"
)

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Health     *HealthHandler
	Products   *ProductHandler
	Categories *CategoryHandler
	Orders     *OrderHandler
}

// RegisterRoutes mounts the public API on e. Authorization middleware runs
// before the handlers touch any data.
func RegisterRoutes(e *echo.Echo, h Handlers, auth *middleware.Auth) {
	e.GET("/health", h.Health.HealthCheck)

	e.GET("/api/auth/check-admin", CheckAdmin, auth.RequireAuth)

	products := e.Group("/products")
	products.GET("", h.Products.ListProducts, auth.OptionalAuth)
	products.GET("/trending", h.Products.TrendingProducts)
	products.GET("/:ref", h.Products.GetProduct)
	products.POST("", h.Products.CreateProduct, auth.RequireAuth, auth.RequireStaff)
	products.PUT("/:id", h.Products.UpdateProduct, auth.RequireAuth, auth.RequireStaff)
	products.DELETE("/:id", h.Products.DeleteProduct, auth.RequireAuth, auth.RequireStaff)

	categories := e.Group("/categories")
	categories.GET("", h.Categories.ListCategories)
	categories.POST("", h.Categories.CreateCategory, auth.RequireAuth, auth.RequireStaff)
	categories.DELETE("/:id", h.Categories.DeleteCategory, auth.RequireAuth, auth.RequireStaff)

	orders := e.Group("/orders")
	orders.POST("", h.Orders.CreateOrder)
	orders.GET("/list", h.Orders.ListMyOrders, auth.RequireAuth)
	orders.GET("/:order_number", h.Orders.GetOrder)
	orders.PATCH("/:order_number/status", h.Orders.UpdateOrderStatus, auth.RequireAuth, auth.RequireStaff)
}
