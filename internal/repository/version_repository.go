// internal/repository/version_repository.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/verdict-cms/internal/database"
	"github.com/javajoker/verdict-cms/internal/models"
)

type GormVersionRepository struct {
	db *gorm.DB
}

var _ VersionRepository = (*GormVersionRepository)(nil)

func NewVersionRepository(db *gorm.DB) *GormVersionRepository {
	return &GormVersionRepository{db: db}
}

func (r *GormVersionRepository) Append(ctx context.Context, productID uuid.UUID, build func(*models.ProductVersion) (*models.ProductVersion, error)) (*models.ProductVersion, error) {
	var created *models.ProductVersion

	err := database.WithTransaction(r.db.WithContext(ctx), func(tx *gorm.DB) error {
		// Lock the product row so concurrent appends for it queue up.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").
			First(&models.Product{}, "id = ?", productID).Error; err != nil {
			return notFound(err)
		}

		var latest *models.ProductVersion
		var row models.ProductVersion
		err := tx.Where("product_id = ?", productID).Order("version desc").First(&row).Error
		switch {
		case err == nil:
			latest = &row
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to load latest version: %w", err)
		}

		v, err := build(latest)
		if err != nil {
			return err
		}
		if err := tx.Create(v).Error; err != nil {
			return fmt.Errorf("failed to create version: %w", err)
		}
		created = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *GormVersionRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductVersion, error) {
	var versions []models.ProductVersion
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("version asc").Find(&versions).Error
	return versions, err
}
