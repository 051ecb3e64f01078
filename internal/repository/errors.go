package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrProductNotFound product does not exist or is hidden
	ErrProductNotFound = errors.New("product not found")
	// ErrCategoryNotFound category does not exist
	ErrCategoryNotFound = errors.New("category not found")
	// ErrOrderNotFound order number is unknown
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateName another row already uses the name
	ErrDuplicateName = errors.New("name already exists")
	// ErrCategoryInUse products still reference the category
	ErrCategoryInUse = errors.New("category is referenced by products")
	// ErrProductInUse order items still reference the product
	ErrProductInUse = errors.New("product is referenced by orders")
)

// InsufficientStockError reports the order line whose reservation was refused.
type InsufficientStockError struct {
	Line      int
	ProductID uint
	Quantity  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (line %d, quantity %d)", e.ProductID, e.Line, e.Quantity)
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Unique index names declared on the models.
const (
	constraintProductSlug  = "idx_products_slug"
	constraintProductName  = "idx_products_name"
	constraintCategorySlug = "idx_categories_slug"
	constraintCategoryName = "idx_categories_name"
	constraintOrderNumber  = "idx_orders_order_number"
)

// isUniqueViolation reports whether err is a unique violation on constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraint
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return errors.Is(err, gorm.ErrForeignKeyViolated)
}
