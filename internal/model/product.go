package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products. Deleting a category that products still reference is refused.
type Category struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_categories_name"`
	Slug      string    `json:"slug" gorm:"type:varchar(120);not null;uniqueIndex:idx_categories_slug"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Product represents the catalog entry. Slug is fixed at creation, Stock and
// ClickCount only ever move through single conditional UPDATE statements.
type Product struct {
	ID          uint            `json:"id" gorm:"primarykey"`
	Name        string          `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_products_name"`
	Slug        string          `json:"slug" gorm:"type:varchar(300);not null;uniqueIndex:idx_products_slug;<-:create"`
	CategoryID  *uint           `json:"-" gorm:"index"`
	Category    *Category       `json:"category" gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Description string          `json:"description" gorm:"type:text;not null;default:''"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null;index"`
	Stock       int             `json:"stock" gorm:"not null;check:chk_products_stock,stock >= 0"`
	IsActive    bool            `json:"is_active" gorm:"not null;index"`
	ClickCount  int64           `json:"click_count" gorm:"not null;default:0;index;check:chk_products_click_count,click_count >= 0"`
	CreatedAt   time.Time       `json:"created_at" gorm:"index:,sort:desc"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
