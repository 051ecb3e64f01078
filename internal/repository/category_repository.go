package repository

import (
	"context"
	"errors"
	"time"

	"github.com/suteetoe/storefront/internal/model"
	"github.com/suteetoe/storefront/internal/slug"
	"github.com/suteetoe/storefront/prometheus"
	"gorm.io/gorm"
)

type CategoryRepository struct {
	db    *gorm.DB
	slugs *slug.Allocator
}

func NewCategoryRepository(db *gorm.DB, maxSlugAttempts int) *CategoryRepository {
	r := &CategoryRepository{db: db}
	r.slugs = slug.NewAllocator(r, func(err error) bool {
		return isUniqueViolation(err, constraintCategorySlug)
	}, maxSlugAttempts)
	r.slugs.OnConflict = func(string) { prometheus.RecordSlugConflict("category") }
	return r
}

// SlugExists implements slug.Prober.
func (r *CategoryRepository) SlugExists(ctx context.Context, candidate string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Category{}).Where("slug = ?", candidate).Count(&count).Error
	return count > 0, err
}

// List returns every category ordered by name.
func (r *CategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *CategoryRepository) GetByID(ctx context.Context, id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

// Create inserts category under an allocated slug.
func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) error {
	defer prometheus.TrackDBOperation("create_category")(time.Now())

	_, err := r.slugs.Allocate(ctx, category.Name, func(ctx context.Context, candidate string) error {
		row := *category
		row.Slug = candidate
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			return err
		}
		*category = row
		return nil
	})
	if isUniqueViolation(err, constraintCategoryName) {
		return ErrDuplicateName
	}
	return err
}

// Delete removes an unreferenced category.
func (r *CategoryRepository) Delete(ctx context.Context, id uint) error {
	defer prometheus.TrackDBOperation("delete_category")(time.Now())

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Product{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryInUse
	}

	result := r.db.WithContext(ctx).Delete(&model.Category{}, id)
	if result.Error != nil {
		// a product may have been attached after the count
		if isForeignKeyViolation(result.Error) {
			return ErrCategoryInUse
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
