package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suteetoe/storefront/internal/model"
	"github.com/suteetoe/storefront/prometheus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxOrderNumberAttempts bounds regeneration after an order number clash.
const maxOrderNumberAttempts = 5

type OrderRepository struct {
	db           *gorm.DB
	ledger       *StockLedger
	numberSource func() string
}

func NewOrderRepository(db *gorm.DB, ledger *StockLedger, numberSource func() string) *OrderRepository {
	return &OrderRepository{db: db, ledger: ledger, numberSource: numberSource}
}

// Place reserves stock for every line and stores the order with its items in
// one transaction. A refused reservation rolls everything back and returns
// *InsufficientStockError.
func (r *OrderRepository) Place(ctx context.Context, order *model.Order) error {
	defer prometheus.TrackDBOperation("place_order")(time.Now())

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := r.ledger.WithTx(tx)
		for i, item := range order.Items {
			ok, err := ledger.Reserve(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return fmt.Errorf("reserve product %d: %w", item.ProductID, err)
			}
			if !ok {
				return &InsufficientStockError{Line: i, ProductID: item.ProductID, Quantity: item.Quantity}
			}
		}

		for attempt := 0; ; attempt++ {
			if order.OrderNumber == "" {
				order.OrderNumber = r.numberSource()
			}
			// nested transaction = savepoint, so a clash does not poison tx
			err := tx.Transaction(func(sp *gorm.DB) error {
				return sp.Create(order).Error
			})
			if err == nil {
				return nil
			}
			if !isUniqueViolation(err, constraintOrderNumber) || attempt+1 >= maxOrderNumberAttempts {
				return err
			}
			order.ID = 0
			order.OrderNumber = ""
			for i := range order.Items {
				order.Items[i].ID = 0
				order.Items[i].OrderID = 0
			}
		}
	})
}

// GetByNumber loads an order with its items and their products.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") }).
		Preload("Items.Product").
		Where("order_number = ?", number).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// ListByMobile returns the orders placed with mobile, newest first.
func (r *OrderRepository) ListByMobile(ctx context.Context, mobile string) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") }).
		Preload("Items.Product").
		Where("mobile = ?", mobile).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	return orders, err
}

// UpdateStatus sets the status of the order and returns the previous one.
func (r *OrderRepository) UpdateStatus(ctx context.Context, number string, status model.OrderStatus) (model.OrderStatus, error) {
	defer prometheus.TrackDBOperation("update_order_status")(time.Now())

	var previous model.OrderStatus
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order model.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "status").
			Where("order_number = ?", number).
			First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		previous = order.Status
		return tx.Model(&model.Order{}).Where("id = ?", order.ID).Update("status", status).Error
	})
	return previous, err
}
