package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/storefront/internal/middleware"
	"github.com/suteetoe/storefront/internal/model"
	"github.com/suteetoe/storefront/internal/service"
	"github.com/suteetoe/storefront/pkg/logger"
	"go.uber.org/zap"
)

type OrderStatusRequest struct {
	Status model.OrderStatus `json:"status"`
}

type OrderHandler struct {
	orders *service.OrderService
	terms  service.PaymentTerms
}

func NewOrderHandler(orders *service.OrderService, terms service.PaymentTerms) *OrderHandler {
	return &OrderHandler{orders: orders, terms: terms}
}

// CreateOrder places an order for anonymous checkout
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	log := logger.FromContext(c)

	var req service.OrderInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, log, err)
	}

	order, err := h.orders.CreateOrder(c.Request().Context(), req, middleware.RequestID(c))
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Order placed successfully",
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Int("lines", len(order.Items)))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":      fmt.Sprintf("Order placed successfully! We will confirm after checking %s payment.", h.terms.Amount.StringFixed(2)),
		"order_number": order.OrderNumber,
		"total":        order.TotalAmount.StringFixed(2),
	})
}

// GetOrder is public order tracking by order number
func (h *OrderHandler) GetOrder(c echo.Context) error {
	log := logger.FromContext(c)
	number := c.Param("order_number")

	order, err := h.orders.GetOrder(c.Request().Context(), number)
	if err != nil {
		return respondError(c, log.With(zap.String("order_number", number)), err)
	}

	log.Info("Order retrieved", zap.String("order_number", number))
	return c.JSON(http.StatusOK, newOrderResponse(*order))
}

// ListMyOrders returns the orders placed with the caller's mobile number
func (h *OrderHandler) ListMyOrders(c echo.Context) error {
	log := logger.FromContext(c)
	claims, ok := middleware.Claims(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Authentication credentials were not provided."})
	}

	orders, err := h.orders.ListCustomerOrders(c.Request().Context(), claims.Mobile)
	if err != nil {
		return respondError(c, log, err)
	}

	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderResponse(o))
	}
	log.Info("Customer orders retrieved", zap.Uint("user_id", claims.UserID), zap.Int("count", len(out)))
	return c.JSON(http.StatusOK, out)
}

// UpdateOrderStatus lets staff move an order to any status
func (h *OrderHandler) UpdateOrderStatus(c echo.Context) error {
	log := logger.FromContext(c)
	number := c.Param("order_number")

	var req OrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, log, err)
	}

	order, err := h.orders.UpdateStatus(c.Request().Context(), number, req.Status, middleware.RequestID(c))
	if err != nil {
		return respondError(c, log.With(zap.String("order_number", number)), err)
	}

	log.Info("Order status updated",
		zap.String("order_number", number),
		zap.String("status", string(order.Status)))
	return c.JSON(http.StatusOK, newOrderResponse(*order))
}
