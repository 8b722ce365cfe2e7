// internal/services/admin_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/repository"
)

type AdminService struct {
	stats repository.StatsRepository
	now   func() time.Time
}

type AdminDashboardStats struct {
	TotalProducts        int64            `json:"total_products"`
	ProductsByStatus     map[string]int64 `json:"products_by_status"`
	ProductsByVerdict    map[string]int64 `json:"products_by_verdict"`
	OpenConflicts        int64            `json:"open_conflicts"`
	PublishBlocked30Days int64            `json:"publish_blocked_30_days"`
	Overrides30Days      int64            `json:"overrides_30_days"`
}

func NewAdminService(stats repository.StatsRepository) *AdminService {
	return &AdminService{stats: stats, now: time.Now}
}

// Dashboard Statistics
func (s *AdminService) GetDashboardStats(ctx context.Context) (*AdminDashboardStats, error) {
	stats := &AdminDashboardStats{}
	since := s.now().AddDate(0, 0, -30)

	var err error
	if stats.ProductsByStatus, err = s.stats.CountProductsBy(ctx, "status"); err != nil {
		return nil, fmt.Errorf("failed to count products by status: %w", err)
	}
	if stats.ProductsByVerdict, err = s.stats.CountProductsBy(ctx, "verdict"); err != nil {
		return nil, fmt.Errorf("failed to count products by verdict: %w", err)
	}
	for _, n := range stats.ProductsByStatus {
		stats.TotalProducts += n
	}

	if stats.OpenConflicts, err = s.stats.CountOpenConflicts(ctx); err != nil {
		return nil, fmt.Errorf("failed to count open conflicts: %w", err)
	}
	if stats.PublishBlocked30Days, err = s.stats.CountAuditActions(ctx, models.AuditActionPublishBlocked, since); err != nil {
		return nil, fmt.Errorf("failed to count blocked publishes: %w", err)
	}
	if stats.Overrides30Days, err = s.stats.CountAuditActions(ctx, models.AuditActionVerdictOverride, since); err != nil {
		return nil, fmt.Errorf("failed to count overrides: %w", err)
	}

	return stats, nil
}
