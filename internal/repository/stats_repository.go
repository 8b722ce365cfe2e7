// internal/repository/stats_repository.go
package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/javajoker/verdict-cms/internal/models"
)

type GormStatsRepository struct {
	db *gorm.DB
}

var _ StatsRepository = (*GormStatsRepository)(nil)

func NewStatsRepository(db *gorm.DB) *GormStatsRepository {
	return &GormStatsRepository{db: db}
}

var groupableProductColumns = map[string]bool{
	"status":  true,
	"verdict": true,
}

// CountProductsBy returns live product counts keyed by the value of column.
func (r *GormStatsRepository) CountProductsBy(ctx context.Context, column string) (map[string]int64, error) {
	if !groupableProductColumns[column] {
		return nil, fmt.Errorf("cannot group products by %q", column)
	}

	var rows []struct {
		Value string
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select(column + " AS value, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Value] = row.Count
	}
	return counts, nil
}

func (r *GormStatsRepository) CountOpenConflicts(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("jsonb_array_length(conflicts->'items') > 0").
		Count(&n).Error
	return n, err
}

func (r *GormStatsRepository) CountAuditActions(ctx context.Context, action string, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.AuditLog{}).
		Where("action = ? AND created_at >= ?", action, since).
		Count(&n).Error
	return n, err
}
