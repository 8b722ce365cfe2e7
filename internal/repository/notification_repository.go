// internal/repository/notification_repository.go
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/utils"
)

type GormNotificationRepository struct {
	db *gorm.DB
}

var _ NotificationRepository = (*GormNotificationRepository)(nil)

func NewNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) Create(ctx context.Context, n *models.AdminNotification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *GormNotificationRepository) ListForRecipient(ctx context.Context, recipientID uuid.UUID, params utils.PaginationParams) ([]models.AdminNotification, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AdminNotification{}).
		Where("recipient_id = ? OR recipient_id IS NULL", recipientID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.AdminNotification
	query = utils.ApplySort(query, params, []string{"created_at", "priority"})
	if err := utils.ApplyPagination(query, params).Find(&notifications).Error; err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *GormNotificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.AdminNotification{}).
		Where("id = ? AND (recipient_id = ? OR recipient_id IS NULL)", id, recipientID).
		Updates(map[string]interface{}{"status": "read", "read_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
