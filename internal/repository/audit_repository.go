// internal/repository/audit_repository.go
package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/utils"
)

type GormAuditRepository struct {
	db *gorm.DB
}

var _ AuditRepository = (*GormAuditRepository)(nil)

func NewAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

func (r *GormAuditRepository) Create(ctx context.Context, logs []models.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&logs).Error
}

func (r *GormAuditRepository) List(ctx context.Context, f AuditFilter) ([]models.AuditLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLog{})

	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}
	if f.TargetCollection != "" {
		query = query.Where("target_collection = ?", f.TargetCollection)
	}
	if f.TargetID != nil {
		query = query.Where("target_id = ?", *f.TargetID)
	}
	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}
	if f.Since != nil {
		query = query.Where("created_at >= ?", *f.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	query = utils.ApplySort(query, f.PaginationParams, []string{"created_at", "action"})
	query = utils.ApplyPagination(query, f.PaginationParams)

	var logs []models.AuditLog
	if err := query.Preload("User").Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}
	return logs, total, nil
}
