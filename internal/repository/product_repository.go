// internal/repository/product_repository.go
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/verdict-cms/internal/database"
	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/utils"
)

var productSortFields = []string{"created_at", "updated_at", "published_at", "title", "status", "verdict"}

type GormProductRepository struct {
	db *gorm.DB
}

var _ ProductRepository = (*GormProductRepository)(nil)

func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Category").Preload("Brand").First(&product, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

func (r *GormProductRepository) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

// Update overwrites every column of an existing product. The row is locked
// for the duration of the write.
func (r *GormProductRepository) Update(ctx context.Context, p *models.Product) error {
	return database.WithTransaction(r.db.WithContext(ctx), func(tx *gorm.DB) error {
		var current models.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").First(&current, "id = ?", p.ID).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Omit(clause.Associations).Save(p).Error; err != nil {
			return fmt.Errorf("failed to save product: %w", err)
		}
		return nil
	})
}

func (r *GormProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormProductRepository) Search(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	query := ApplyProductFilter(r.db.WithContext(ctx).Model(&models.Product{}), f)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query = utils.ApplySort(query, f.PaginationParams, productSortFields)
	query = utils.ApplyPagination(query, f.PaginationParams)

	var products []models.Product
	if err := query.Preload("Category").Preload("Brand").Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, total, nil
}

// ApplyProductFilter adds the WHERE clauses for f to query.
func ApplyProductFilter(query *gorm.DB, f ProductFilter) *gorm.DB {
	if f.Status != nil {
		query = query.Where("status = ?", *f.Status)
	}
	if f.Verdict != nil {
		query = query.Where("verdict = ?", *f.Verdict)
	}
	if f.CategoryID != nil {
		query = query.Where("category_id = ?", *f.CategoryID)
	}
	if f.BrandID != nil {
		query = query.Where("brand_id = ?", *f.BrandID)
	}
	if f.HasConflicts != nil {
		if *f.HasConflicts {
			query = query.Where("jsonb_array_length(conflicts->'items') > 0")
		} else {
			query = query.Where("coalesce(jsonb_array_length(conflicts->'items'), 0) = 0")
		}
	}
	if f.Search != "" {
		term := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(summary) LIKE ?", term, term)
	}
	return query
}

func (r *GormProductRepository) SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("slug = ? AND id <> ?", slug, exclude).Count(&count).Error
	return count > 0, err
}
