package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/suteetoe/storefront/internal/model"
	"github.com/suteetoe/storefront/prometheus"
	"gorm.io/gorm"
)

// StockLedger reserves inventory with a single conditional UPDATE. The WHERE
// clause is evaluated against the row as it stands when the update takes its
// lock, so concurrent reservations can never drive stock below zero.
type StockLedger struct {
	db *gorm.DB
}

func NewStockLedger(db *gorm.DB) *StockLedger {
	return &StockLedger{db: db}
}

// WithTx returns a ledger bound to tx.
func (l *StockLedger) WithTx(tx *gorm.DB) *StockLedger {
	return &StockLedger{db: tx}
}

// Reserve takes quantity units of the product when it is active and has at
// least that many in stock. It reports whether the units were taken; a refusal
// is not an error.
func (l *StockLedger) Reserve(ctx context.Context, productID uint, quantity int) (bool, error) {
	if quantity < 1 {
		return false, nil
	}
	defer prometheus.TrackDBOperation("reserve_stock")(time.Now())

	var product model.Product
	result := l.db.WithContext(ctx).
		Model(&product).
		Clauses(returning("stock")).
		Where("id = ? AND stock >= ? AND is_active = ?", productID, quantity, true).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return false, result.Error
	}

	if result.RowsAffected == 0 {
		prometheus.RecordStockReservation("rejected")
		return false, nil
	}

	prometheus.RecordStockReservation("reserved")
	prometheus.UpdateProductInventory(strconv.FormatUint(uint64(productID), 10), float64(product.Stock))
	return true, nil
}
