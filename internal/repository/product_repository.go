package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/suteetoe/storefront/internal/model"
	"github.com/suteetoe/storefront/internal/slug"
	"github.com/suteetoe/storefront/prometheus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultProductOrdering applies when the caller asks for nothing or for an unknown key.
const DefaultProductOrdering = "-created_at"

// productOrderings is the allow-list of public ordering keys.
var productOrderings = map[string]string{
	"price":        "products.price ASC",
	"-price":       "products.price DESC",
	"created_at":   "products.created_at ASC",
	"-created_at":  "products.created_at DESC",
	"name":         "products.name ASC",
	"-name":        "products.name DESC",
	"click_count":  "products.click_count ASC",
	"-click_count": "products.click_count DESC",
}

// IsProductOrdering reports whether key is an accepted ordering.
func IsProductOrdering(key string) bool {
	_, ok := productOrderings[key]
	return ok
}

// ProductFilter narrows a catalog listing.
type ProductFilter struct {
	Search        string
	CategorySlugs []string
	Ordering      string
	ActiveOnly    bool
	Offset        int
	Limit         int
}

type ProductRepository struct {
	db    *gorm.DB
	slugs *slug.Allocator
}

func NewProductRepository(db *gorm.DB, maxSlugAttempts int) *ProductRepository {
	r := &ProductRepository{db: db}
	r.slugs = slug.NewAllocator(r, func(err error) bool {
		return isUniqueViolation(err, constraintProductSlug)
	}, maxSlugAttempts)
	r.slugs.OnConflict = func(string) { prometheus.RecordSlugConflict("product") }
	return r
}

// SlugExists implements slug.Prober.
func (r *ProductRepository) SlugExists(ctx context.Context, candidate string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Where("slug = ?", candidate).Count(&count).Error
	return count > 0, err
}

// Create inserts product under a freshly allocated slug derived from its name.
func (r *ProductRepository) Create(ctx context.Context, product *model.Product) error {
	defer prometheus.TrackDBOperation("create_product")(time.Now())

	_, err := r.slugs.Allocate(ctx, product.Name, func(ctx context.Context, candidate string) error {
		row := *product
		row.Slug = candidate
		if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}
		*product = row
		return nil
	})
	if isUniqueViolation(err, constraintProductName) {
		return ErrDuplicateName
	}
	return err
}

// NameTaken reports whether another product (other than exceptID) uses name.
func (r *ProductRepository) NameTaken(ctx context.Context, name string, exceptID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("name = ? AND id <> ?", name, exceptID).
		Count(&count).Error
	return count > 0, err
}

// Update writes the given columns. The slug column is never written after creation.
func (r *ProductRepository) Update(ctx context.Context, id uint, changes map[string]interface{}) (*model.Product, error) {
	defer prometheus.TrackDBOperation("update_product")(time.Now())

	delete(changes, "slug")
	if len(changes) > 0 {
		result := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Updates(changes)
		if isUniqueViolation(result.Error, constraintProductName) {
			return nil, ErrDuplicateName
		}
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrProductNotFound
		}
	}
	return r.GetByID(ctx, id, false)
}

// Delete removes the product row. Products referenced by order items stay.
func (r *ProductRepository) Delete(ctx context.Context, id uint) error {
	defer prometheus.TrackDBOperation("delete_product")(time.Now())

	result := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if result.Error != nil {
		if isForeignKeyViolation(result.Error) {
			return ErrProductInUse
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// GetByID loads a product with its category.
func (r *ProductRepository) GetByID(ctx context.Context, id uint, activeOnly bool) (*model.Product, error) {
	q := r.db.WithContext(ctx).Preload("Category").Where("products.id = ?", id)
	if activeOnly {
		q = q.Where("products.is_active = ?", true)
	}
	return r.first(q)
}

// GetBySlug loads an active product by slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, productSlug string) (*model.Product, error) {
	q := r.db.WithContext(ctx).Preload("Category").
		Where("products.slug = ? AND products.is_active = ?", productSlug, true)
	return r.first(q)
}

func (r *ProductRepository) first(q *gorm.DB) (*model.Product, error) {
	var product model.Product
	if err := q.First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads the products with the given ids regardless of visibility.
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]model.Product, error) {
	out := make(map[uint]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var products []model.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// List returns one page of products matching filter and the total match count.
func (r *ProductRepository) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	defer prometheus.TrackDBOperation("list_products")(time.Now())

	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order, ok := productOrderings[filter.Ordering]
	if !ok {
		order = productOrderings[DefaultProductOrdering]
	}

	var products []model.Product
	q := r.filtered(ctx, filter).
		Preload("Category").
		Order(order).
		Order("products.id DESC").
		Offset(filter.Offset)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductRepository) filtered(ctx context.Context, filter ProductFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Product{})
	if filter.ActiveOnly {
		q = q.Where("products.is_active = ?", true)
	}
	if keyword := strings.TrimSpace(filter.Search); keyword != "" {
		pattern := "%" + escapeLike(keyword) + "%"
		q = q.Where("(products.name ILIKE ? OR products.description ILIKE ?)", pattern, pattern)
	}
	if len(filter.CategorySlugs) > 0 {
		q = q.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug IN ?", filter.CategorySlugs)
	}
	return q
}

// Trending returns the most clicked active products.
func (r *ProductRepository) Trending(ctx context.Context, limit int) ([]model.Product, error) {
	defer prometheus.TrackDBOperation("trending_products")(time.Now())

	var products []model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("is_active = ?", true).
		Order("click_count DESC").
		Order("id ASC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

// IncrementClicks bumps click_count by one in the store and returns the new value.
func (r *ProductRepository) IncrementClicks(ctx context.Context, id uint) (int64, error) {
	var product model.Product
	result := r.db.WithContext(ctx).
		Model(&product).
		Clauses(returning("click_count")).
		Where("id = ?", id).
		UpdateColumn("click_count", gorm.Expr("click_count + 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, ErrProductNotFound
	}
	return product.ClickCount, nil
}

func returning(columns ...string) clause.Returning {
	cols := make([]clause.Column, 0, len(columns))
	for _, c := range columns {
		cols = append(cols, clause.Column{Name: c})
	}
	return clause.Returning{Columns: cols}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
