package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/storefront/internal/events"
	"github.com/suteetoe/storefront/internal/model"
	"github.com/suteetoe/storefront/internal/repository"
	"github.com/suteetoe/storefront/pkg/logger"
	"github.com/suteetoe/storefront/prometheus"
	"go.uber.org/zap"
)

type OrderStore interface {
	Place(ctx context.Context, order *model.Order) error
	GetByNumber(ctx context.Context, number string) (*model.Order, error)
	ListByMobile(ctx context.Context, mobile string) ([]model.Order, error)
	UpdateStatus(ctx context.Context, number string, status model.OrderStatus) (model.OrderStatus, error)
}

// ProductLookup resolves order lines to products.
type ProductLookup interface {
	FindByIDs(ctx context.Context, ids []uint) (map[uint]model.Product, error)
}

// PaymentTerms is what every order is charged up front, whatever the client sends.
type PaymentTerms struct {
	Amount decimal.Decimal
	Method string
}

// OrderItemInput is one requested order line. Quantity defaults to 1.
type OrderItemInput struct {
	Product  *uint `json:"product" validate:"required"`
	Quantity *int  `json:"quantity" validate:"omitempty,gte=1"`
}

// OrderInput is the checkout body. Pointer fields fall back to their
// defaults when absent. paid_amount and payment_method are accepted and
// discarded.
type OrderInput struct {
	FullName        *string          `json:"full_name" validate:"omitempty,max=255"`
	Mobile          *string          `json:"mobile" validate:"omitempty,max=15"`
	AlternateMobile *string          `json:"alternate_mobile" validate:"omitempty,max=15"`
	Email           *string          `json:"email" validate:"omitempty,email,max=254"`
	Address         *string          `json:"address"`
	Landmark        *string          `json:"landmark" validate:"omitempty,max=200"`
	City            *string          `json:"city" validate:"omitempty,max=100"`
	Pincode         *string          `json:"pincode" validate:"omitempty,max=10"`
	Notes           *string          `json:"notes"`
	PaidAmount      *decimal.Decimal `json:"paid_amount" validate:"-"`
	PaymentMethod   *string          `json:"payment_method" validate:"-"`
	Items           []OrderItemInput `json:"items" validate:"required,min=1,dive"`
}

// normalized trims every text field. A blank email counts as absent.
func (in OrderInput) normalized() OrderInput {
	out := in
	out.FullName = trimmed(in.FullName)
	out.Mobile = trimmed(in.Mobile)
	out.AlternateMobile = trimmed(in.AlternateMobile)
	out.Email = trimmed(in.Email)
	out.Address = trimmed(in.Address)
	out.Landmark = trimmed(in.Landmark)
	out.City = trimmed(in.City)
	out.Pincode = trimmed(in.Pincode)
	out.Notes = trimmed(in.Notes)
	if out.Email != nil && *out.Email == "" {
		out.Email = nil
	}
	return out
}

type textField struct {
	value    *string
	fallback string
	target   *string
}

func (in OrderInput) textFields(order *model.Order) []textField {
	return []textField{
		{in.FullName, model.DefaultFullName, &order.FullName},
		{in.Mobile, model.DefaultMobile, &order.Mobile},
		{in.AlternateMobile, "", &order.AlternateMobile},
		{in.Address, model.DefaultAddress, &order.Address},
		{in.Landmark, "", &order.Landmark},
		{in.City, model.DefaultCity, &order.City},
		{in.Pincode, model.DefaultPincode, &order.Pincode},
		{in.Notes, "", &order.Notes},
	}
}

// BuildOrder turns validated input into an unsaved order: defaults applied,
// each line priced from products, total summed and payment forced to terms.
// products must hold every referenced id.
func BuildOrder(in OrderInput, products map[uint]model.Product, terms PaymentTerms) *model.Order {
	order := &model.Order{
		Status:        model.OrderStatusPending,
		PaidAmount:    terms.Amount,
		PaymentMethod: terms.Method,
	}
	for _, f := range in.textFields(order) {
		*f.target = f.fallback
		if f.value != nil {
			*f.target = strings.TrimSpace(*f.value)
		}
	}
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		email := strings.TrimSpace(*in.Email)
		order.Email = &email
	}

	order.Items = make([]model.OrderItem, 0, len(in.Items))
	for _, line := range in.Items {
		quantity := 1
		if line.Quantity != nil {
			quantity = *line.Quantity
		}
		order.Items = append(order.Items, model.OrderItem{
			ProductID:       *line.Product,
			Quantity:        quantity,
			PriceAtPurchase: products[*line.Product].Price,
		})
	}
	order.TotalAmount = model.SumLineTotals(order.Items)
	return order
}

type OrderService struct {
	orders    OrderStore
	products  ProductLookup
	publisher events.Publisher
	terms     PaymentTerms
}

func NewOrderService(orders OrderStore, products ProductLookup, publisher events.Publisher, terms PaymentTerms) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &OrderService{orders: orders, products: products, publisher: publisher, terms: terms}
}

// CreateOrder validates the checkout, reserves stock and stores the order.
// Validation and stock failures come back as *ValidationError.
func (s *OrderService) CreateOrder(ctx context.Context, in OrderInput, requestID string) (*model.Order, error) {
	log := logger.FromStdContext(ctx)

	in = in.normalized()
	fields := validateStruct(in)

	ids := make([]uint, 0, len(in.Items))
	for _, line := range in.Items {
		if line.Product != nil {
			ids = append(ids, *line.Product)
		}
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load order products: %w", err)
	}
	checkOrderProducts(fields, in.Items, products)
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	order := BuildOrder(in, products, s.terms)

	if err := s.orders.Place(ctx, order); err != nil {
		var stockErr *repository.InsufficientStockError
		if errors.As(err, &stockErr) {
			log.Info("Order refused for stock",
				zap.Uint("product_id", stockErr.ProductID),
				zap.Int("quantity", stockErr.Quantity))
			return nil, &ValidationError{Fields: FieldErrors{"items": insufficientStockErrors(len(in.Items), stockErr)}}
		}
		return nil, err
	}
	prometheus.RecordOrderCreated()

	if err := s.publisher.Publish(ctx, events.NewOrderCreatedEvent(order, requestID)); err != nil {
		prometheus.RecordOrderEventError()
		log.Error("Failed to publish order event", zap.String("order_number", order.OrderNumber), zap.Error(err))
	}
	return order, nil
}

// GetOrder loads one order by number.
func (s *OrderService) GetOrder(ctx context.Context, number string) (*model.Order, error) {
	return s.orders.GetByNumber(ctx, number)
}

// ListCustomerOrders returns the orders placed with mobile, newest first.
func (s *OrderService) ListCustomerOrders(ctx context.Context, mobile string) ([]model.Order, error) {
	return s.orders.ListByMobile(ctx, mobile)
}

// UpdateStatus moves an order to status. Any known status may follow any other.
func (s *OrderService) UpdateStatus(ctx context.Context, number string, status model.OrderStatus, requestID string) (*model.Order, error) {
	if !status.Valid() {
		return nil, fieldError("status", fmt.Sprintf("\"%s\" is not a valid choice.", status))
	}

	previous, err := s.orders.UpdateStatus(ctx, number, status)
	if err != nil {
		return nil, err
	}
	prometheus.RecordOrderStatus(string(status))

	if err := s.publisher.Publish(ctx, events.NewOrderStatusEvent(number, previous, status, requestID)); err != nil {
		prometheus.RecordOrderEventError()
		logger.FromStdContext(ctx).Error("Failed to publish order event", zap.String("order_number", number), zap.Error(err))
	}
	return s.orders.GetByNumber(ctx, number)
}

// checkOrderProducts flags lines naming a product that does not exist. Line
// errors are reported for every line, empty for valid ones.
func checkOrderProducts(fields FieldErrors, items []OrderItemInput, products map[uint]model.Product) {
	if len(items) == 0 {
		return
	}
	lines, isList := fields["items"].([]FieldErrors)
	if _, set := fields["items"]; set && !isList {
		return
	}
	for i, line := range items {
		if line.Product == nil {
			continue
		}
		if _, found := products[*line.Product]; !found {
			lines = padLines(lines, i+1)
			lines[i].Add("product", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *line.Product))
		}
	}
	if lines != nil {
		fields["items"] = padLines(lines, len(items))
	}
}

func insufficientStockErrors(lines int, stockErr *repository.InsufficientStockError) []FieldErrors {
	out := make([]FieldErrors, lines)
	for i := range out {
		out[i] = FieldErrors{}
	}
	if stockErr.Line >= 0 && stockErr.Line < lines {
		out[stockErr.Line].Add("quantity", "Insufficient stock for this product.")
	}
	return out
}
