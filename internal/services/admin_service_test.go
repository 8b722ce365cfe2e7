// internal/services/admin_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/verdict-cms/internal/models"
)

type fixedStats struct {
	since map[string]time.Time
}

func (f *fixedStats) CountProductsBy(_ context.Context, column string) (map[string]int64, error) {
	if column == "status" {
		return map[string]int64{"draft": 3, "review": 2, "published": 5}, nil
	}
	return map[string]int64{"recommend": 6, "flagged": 4}, nil
}

func (f *fixedStats) CountOpenConflicts(context.Context) (int64, error) { return 2, nil }

func (f *fixedStats) CountAuditActions(_ context.Context, action string, since time.Time) (int64, error) {
	f.since[action] = since
	if action == models.AuditActionPublishBlocked {
		return 7, nil
	}
	return 1, nil
}

func TestDashboardStats(t *testing.T) {
	stats := &fixedStats{since: map[string]time.Time{}}
	svc := NewAdminService(stats)
	now := time.Date(2026, 4, 30, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	got, err := svc.GetDashboardStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(10), got.TotalProducts)
	assert.Equal(t, int64(4), got.ProductsByVerdict["flagged"])
	assert.Equal(t, int64(2), got.OpenConflicts)
	assert.Equal(t, int64(7), got.PublishBlocked30Days)
	assert.Equal(t, int64(1), got.Overrides30Days)
	assert.Equal(t, now.AddDate(0, 0, -30), stats.since[models.AuditActionPublishBlocked])
}
