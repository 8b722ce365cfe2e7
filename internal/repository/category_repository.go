// internal/repository/category_repository.go
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/utils"
)

type GormCategoryRepository struct {
	db *gorm.DB
}

var _ CategoryRepository = (*GormCategoryRepository)(nil)

func NewCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

func (r *GormCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &category, nil
}

func (r *GormCategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Order("name asc").Find(&categories).Error
	return categories, err
}

func (r *GormCategoryRepository) Create(ctx context.Context, c *models.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *GormCategoryRepository) Update(ctx context.Context, c *models.Category) error {
	res := r.db.WithContext(ctx).Model(c).Select(
		"name", "slug", "description", "allowed_verdicts", "review_verdicts", "requires_override_note",
	).Updates(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormCategoryRepository) RecountProducts(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).
		UpdateColumn("product_count", r.db.Model(&models.Product{}).Select("count(*)").Where("category_id = ?", id)).Error
	if err != nil {
		return fmt.Errorf("failed to recount category %s: %w", id, err)
	}
	return nil
}

type GormBrandRepository struct {
	db *gorm.DB
}

var _ BrandRepository = (*GormBrandRepository)(nil)

func NewBrandRepository(db *gorm.DB) *GormBrandRepository {
	return &GormBrandRepository{db: db}
}

func (r *GormBrandRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	var brand models.Brand
	if err := r.db.WithContext(ctx).First(&brand, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &brand, nil
}

func (r *GormBrandRepository) List(ctx context.Context, params utils.PaginationParams) ([]models.Brand, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Brand{})
	if params.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(params.Search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var brands []models.Brand
	query = utils.ApplySort(query, params, []string{"name", "created_at", "product_count", "flagged_count"})
	if err := utils.ApplyPagination(query, params).Find(&brands).Error; err != nil {
		return nil, 0, err
	}
	return brands, total, nil
}

func (r *GormBrandRepository) Create(ctx context.Context, b *models.Brand) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *GormBrandRepository) RecountProducts(ctx context.Context, id uuid.UUID) error {
	products := r.db.Model(&models.Product{}).Select("count(*)").Where("brand_id = ?", id)
	flagged := r.db.Model(&models.Product{}).Select("count(*)").
		Where("brand_id = ? AND verdict = ? AND status = ?", id, models.VerdictFlagged, models.ProductStatusPublished)

	err := r.db.WithContext(ctx).Model(&models.Brand{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"product_count": products,
			"flagged_count": flagged,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to recount brand %s: %w", id, err)
	}
	return nil
}
