// internal/services/audit_service.go
package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/repository"
	"github.com/javajoker/verdict-cms/internal/rules"
)

type AuditService struct {
	logs repository.AuditRepository
	log  logrus.FieldLogger
}

var _ AuditRecorder = (*AuditService)(nil)

func NewAuditService(logs repository.AuditRepository, log logrus.FieldLogger) *AuditService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuditService{logs: logs, log: log}
}

// Record writes events to the audit log. A failed write is logged and
// otherwise ignored so it never changes the outcome of the save.
func (s *AuditService) Record(ctx context.Context, events []rules.AuditEvent) {
	if len(events) == 0 {
		return
	}

	entries := make([]models.AuditLog, 0, len(events))
	for _, e := range events {
		entries = append(entries, AuditLogFromEvent(e))
	}

	if err := s.logs.Create(ctx, entries); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"count":  len(entries),
			"action": entries[0].Action,
		}).Error("Failed to write audit log")
	}
}

func (s *AuditService) ListAuditLogs(ctx context.Context, filter repository.AuditFilter) ([]models.AuditLog, int64, error) {
	return s.logs.List(ctx, filter)
}

// AuditLogFromEvent maps a pipeline event onto its stored form.
func AuditLogFromEvent(e rules.AuditEvent) models.AuditLog {
	entry := models.AuditLog{
		Action:           e.Action,
		SourceType:       e.Source,
		UserID:           e.ActorID,
		TargetCollection: e.TargetCollection,
		TargetID:         e.TargetID,
		TargetName:       e.TargetName,
		OldValues:        models.JSONB(e.Before),
		NewValues:        models.JSONB(e.After),
		Metadata:         models.JSONB(e.Metadata),
	}
	if !e.At.IsZero() {
		entry.CreatedAt = e.At
	}
	return entry
}
