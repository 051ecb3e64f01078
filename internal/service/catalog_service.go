package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/storefront/internal/cache"
	"github.com/suteetoe/storefront/internal/model"
	"github.com/suteetoe/storefront/internal/repository"
	"github.com/suteetoe/storefront/pkg/logger"
	"github.com/suteetoe/storefront/prometheus"
	"go.uber.org/zap"
)

const (
	DefaultTrendingLimit = 10
	MinTrendingLimit     = 1
	MaxTrendingLimit     = 50

	defaultStock = 1
)

type ProductStore interface {
	Create(ctx context.Context, product *model.Product) error
	NameTaken(ctx context.Context, name string, exceptID uint) (bool, error)
	Update(ctx context.Context, id uint, changes map[string]interface{}) (*model.Product, error)
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint, activeOnly bool) (*model.Product, error)
	GetBySlug(ctx context.Context, slug string) (*model.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]model.Product, int64, error)
	Trending(ctx context.Context, limit int) ([]model.Product, error)
	IncrementClicks(ctx context.Context, id uint) (int64, error)
}

type CategoryStore interface {
	List(ctx context.Context) ([]model.Category, error)
	GetByID(ctx context.Context, id uint) (*model.Category, error)
	Create(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id uint) error
}

type CatalogService struct {
	products   ProductStore
	categories CategoryStore
	trending   cache.TrendingCache
}

func NewCatalogService(products ProductStore, categories CategoryStore, trending cache.TrendingCache) *CatalogService {
	if trending == nil {
		trending = cache.NopTrendingCache{}
	}
	return &CatalogService{products: products, categories: categories, trending: trending}
}

// ClampTrendingLimit parses the limit query value. Missing or malformed input
// gives the default; numbers are clamped to [1, 50].
func ClampTrendingLimit(raw string) int {
	if raw == "" {
		return DefaultTrendingLimit
	}
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultTrendingLimit
	}
	return max(MinTrendingLimit, min(limit, MaxTrendingLimit))
}

// NormalizeOrdering keeps allow-listed ordering keys and maps everything else to -created_at.
func NormalizeOrdering(raw string) string {
	if repository.IsProductOrdering(raw) {
		return raw
	}
	return repository.DefaultProductOrdering
}

// ProductRef is a product detail lookup key. A numeric ref carries both an id
// and a slug: names such as "2024" slugify to digits.
type ProductRef struct {
	ID   uint
	Slug string
}

// ByID reports whether the reference is tried as an id first.
func (r ProductRef) ByID() bool {
	return r.ID != 0
}

// ParseProductRef classifies raw: all digits is an id with a slug fallback,
// anything else a slug.
func ParseProductRef(raw string) ProductRef {
	ref := ProductRef{Slug: raw}
	if raw != "" && strings.Trim(raw, "0123456789") == "" {
		if id, err := strconv.ParseUint(raw, 10, 0); err == nil {
			ref.ID = uint(id)
		}
	}
	return ref
}

// ListQuery is a public catalog listing request.
type ListQuery struct {
	Search     string
	Categories []string
	Ordering   string
	Offset     int
	Limit      int
}

// ListProducts returns one page of active products and the total match count.
func (s *CatalogService) ListProducts(ctx context.Context, q ListQuery) ([]model.Product, int64, error) {
	return s.products.List(ctx, repository.ProductFilter{
		Search:        q.Search,
		CategorySlugs: q.Categories,
		Ordering:      NormalizeOrdering(q.Ordering),
		ActiveOnly:    true,
		Offset:        q.Offset,
		Limit:         q.Limit,
	})
}

// ViewProduct resolves ref among active products and records the view by
// incrementing click_count in the store.
func (s *CatalogService) ViewProduct(ctx context.Context, ref ProductRef) (*model.Product, error) {
	var (
		product *model.Product
		err     error
	)
	if ref.ByID() {
		product, err = s.products.GetByID(ctx, ref.ID, true)
		if errors.Is(err, repository.ErrProductNotFound) && ref.Slug != "" {
			product, err = s.products.GetBySlug(ctx, ref.Slug)
		}
	} else {
		product, err = s.products.GetBySlug(ctx, ref.Slug)
	}
	if err != nil {
		return nil, err
	}

	clicks, err := s.products.IncrementClicks(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("increment clicks: %w", err)
	}
	product.ClickCount = clicks
	prometheus.RecordProductView(strconv.FormatUint(uint64(product.ID), 10))
	return product, nil
}

// Trending returns the most clicked active products, served from the cache when warm.
func (s *CatalogService) Trending(ctx context.Context, limit int) ([]model.Product, error) {
	log := logger.FromStdContext(ctx)

	if cached, ok, err := s.trending.Get(ctx, limit); err != nil {
		log.Warn("Trending cache read failed", zap.Error(err))
	} else if ok {
		return cached, nil
	}

	products, err := s.products.Trending(ctx, limit)
	if err != nil {
		return nil, err
	}
	if err := s.trending.Set(ctx, limit, products); err != nil {
		log.Warn("Trending cache write failed", zap.Error(err))
	}
	return products, nil
}

// invalidateTrending drops cached trending lists after a product write. On
// failure the entries still expire with their TTL.
func (s *CatalogService) invalidateTrending(ctx context.Context) {
	if err := s.trending.Invalidate(ctx); err != nil {
		logger.FromStdContext(ctx).Warn("Trending cache invalidation failed", zap.Error(err))
	}
}

// ProductInput is the body of a product create request.
type ProductInput struct {
	Name        string           `json:"name" validate:"notblank,max=255"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"required,dec_gte=0.01,dec_lte=999999999.99,dec_places=2"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
	IsActive    *bool            `json:"is_active"`
	CategoryID  *uint            `json:"category_id"`
}

// ProductPatch is the body of a partial product update. A category_id of 0 detaches the category.
type ProductPatch struct {
	Name        *string          `json:"name" validate:"omitempty,notblank,max=255"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,dec_gte=0.01,dec_lte=999999999.99,dec_places=2"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
	IsActive    *bool            `json:"is_active"`
	CategoryID  *uint            `json:"category_id"`
}

// CreateProduct validates input and stores a new product under an allocated slug.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	fields := validateStruct(in)
	if err := s.checkNameTaken(ctx, fields, in.Name, 0); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, fields, in.CategoryID); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	product := &model.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price.Round(2),
		Stock:       defaultStock,
		IsActive:    true,
		CategoryID:  in.CategoryID,
	}
	if in.Stock != nil {
		product.Stock = *in.Stock
	}
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}

	if err := s.products.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			return nil, fieldError("name", msgProductNameTaken)
		}
		return nil, err
	}
	prometheus.RecordProductOperation("create")
	s.invalidateTrending(ctx)
	return s.products.GetByID(ctx, product.ID, false)
}

// UpdateProduct applies a partial update. The slug never changes.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, patch ProductPatch) (*model.Product, error) {
	if _, err := s.products.GetByID(ctx, id, false); err != nil {
		return nil, err
	}

	patch.Name = trimmed(patch.Name)
	fields := validateStruct(patch)
	changes := map[string]interface{}{}
	if patch.Name != nil {
		if err := s.checkNameTaken(ctx, fields, *patch.Name, id); err != nil {
			return nil, err
		}
		changes["name"] = *patch.Name
	}
	if patch.Description != nil {
		changes["description"] = *patch.Description
	}
	if patch.Price != nil {
		changes["price"] = patch.Price.Round(2)
	}
	if patch.Stock != nil {
		changes["stock"] = *patch.Stock
	}
	if patch.IsActive != nil {
		changes["is_active"] = *patch.IsActive
	}
	if patch.CategoryID != nil {
		if *patch.CategoryID == 0 {
			changes["category_id"] = nil
		} else {
			if err := s.checkCategory(ctx, fields, patch.CategoryID); err != nil {
				return nil, err
			}
			changes["category_id"] = *patch.CategoryID
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	product, err := s.products.Update(ctx, id, changes)
	if errors.Is(err, repository.ErrDuplicateName) {
		return nil, fieldError("name", msgProductNameTaken)
	}
	if err != nil {
		return nil, err
	}
	prometheus.RecordProductOperation("update")
	s.invalidateTrending(ctx)
	return product, nil
}

// DeleteProduct hard-deletes a product.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	prometheus.RecordProductOperation("delete")
	s.invalidateTrending(ctx)
	return nil
}

func (s *CatalogService) checkCategory(ctx context.Context, fields FieldErrors, id *uint) error {
	if id == nil {
		return nil
	}
	_, err := s.categories.GetByID(ctx, *id)
	if errors.Is(err, repository.ErrCategoryNotFound) {
		fields.Add("category_id", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *id))
		return nil
	}
	return err
}

// checkNameTaken rejects a name already used by a product other than
// exceptID. It is skipped when the name failed validation. The unique index
// still guards concurrent writers.
func (s *CatalogService) checkNameTaken(ctx context.Context, fields FieldErrors, name string, exceptID uint) error {
	if _, invalid := fields["name"]; invalid {
		return nil
	}
	taken, err := s.products.NameTaken(ctx, name, exceptID)
	if err != nil {
		return err
	}
	if taken {
		fields.Add("name", msgProductNameTaken)
	}
	return nil
}

// ListCategories returns every category.
func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.categories.List(ctx)
}

type categoryInput struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

// CreateCategory stores a category under an allocated slug.
func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	in := categoryInput{Name: strings.TrimSpace(name)}
	if fields := validateStruct(in); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	category := &model.Category{Name: in.Name}
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			return nil, fieldError("name", "category with this name already exists.")
		}
		return nil, err
	}
	prometheus.RecordCategoryOperation("create")
	return category, nil
}

// DeleteCategory removes a category no product references.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	prometheus.RecordCategoryOperation("delete")
	return nil
}
