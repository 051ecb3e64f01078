package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending     OrderStatus = "pending"
	OrderStatusPaymentDone OrderStatus = "payment_done"
	OrderStatusConfirmed   OrderStatus = "confirmed"
	OrderStatusProcessing  OrderStatus = "processing"
	OrderStatusShipped     OrderStatus = "shipped"
	OrderStatusDelivered   OrderStatus = "delivered"
	OrderStatusCancelled   OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaymentDone,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// OrderStatuses lists every status in lifecycle order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

// Valid reports whether s is one of the known statuses. Any known status may
// follow any other; only staff change it.
func (s OrderStatus) Valid() bool {
	for _, known := range orderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Customer-facing defaults for fields left blank at checkout.
const (
	DefaultFullName = "Not provided"
	DefaultMobile   = "0000000000"
	DefaultAddress  = "Not provided"
	DefaultCity     = "Unknown City"
	DefaultPincode  = "000000"
)

// GenerateOrderNumber returns a human-facing order number: ORD- followed by
// ten upper-case hex characters of a random UUID.
func GenerateOrderNumber() string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return "ORD-" + hex[:10]
}

// Order is a placed checkout. TotalAmount is computed once at creation and stored.
type Order struct {
	ID              uint            `json:"id" gorm:"primarykey"`
	OrderNumber     string          `json:"order_number" gorm:"type:varchar(20);not null;uniqueIndex:idx_orders_order_number;<-:create"`
	FullName        string          `json:"full_name" gorm:"type:varchar(255);not null"`
	Mobile          string          `json:"mobile" gorm:"type:varchar(15);not null;index"`
	AlternateMobile string          `json:"alternate_mobile" gorm:"type:varchar(15);not null"`
	Email           *string         `json:"email" gorm:"type:varchar(254)"`
	Address         string          `json:"address" gorm:"type:text;not null"`
	Landmark        string          `json:"landmark" gorm:"type:varchar(200);not null"`
	City            string          `json:"city" gorm:"type:varchar(100);not null;index"`
	Pincode         string          `json:"pincode" gorm:"type:varchar(10);not null"`
	Notes           string          `json:"notes" gorm:"type:text;not null"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	PaidAmount      decimal.Decimal `json:"paid_amount" gorm:"type:numeric(10,2);not null"`
	PaymentMethod   string          `json:"payment_method" gorm:"type:varchar(20);not null"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20);not null;index"`
	Items           []OrderItem     `json:"order_items" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem is one line of an order with the unit price frozen at purchase time.
type OrderItem struct {
	ID              uint            `json:"-" gorm:"primarykey"`
	OrderID         uint            `json:"-" gorm:"not null;index"`
	ProductID       uint            `json:"product" gorm:"not null;index"`
	Product         *Product        `json:"-" gorm:"constraint:OnDelete:RESTRICT"`
	Quantity        int             `json:"quantity" gorm:"not null;check:chk_order_items_quantity,quantity >= 1"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase" gorm:"type:numeric(10,2);not null"`
}

// LineTotal is quantity times the captured unit price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SumLineTotals adds up the line totals of items.
func SumLineTotals(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}
