// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/verdict-cms/internal/config"
	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/repository"
	"github.com/javajoker/verdict-cms/internal/rules"
	"github.com/javajoker/verdict-cms/internal/utils"
)

const (
	NotificationPublishBlocked   = "publish_blocked"
	NotificationFlaggedPublished = "flagged_published"
)

var ErrNotificationNotFound = errors.New("notification not found")

// MailSender delivers one HTML email.
type MailSender func(to, subject, htmlBody string) error

type NotificationService struct {
	notifications repository.NotificationRepository
	email         config.EmailConfig
	send          MailSender
	log           logrus.FieldLogger
}

var _ ProductNotifier = (*NotificationService)(nil)

func NewNotificationService(notifications repository.NotificationRepository, email config.EmailConfig, log logrus.FieldLogger) *NotificationService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &NotificationService{notifications: notifications, email: email, log: log}
	s.send = s.sendSMTP
	return s
}

// WithMailSender replaces SMTP delivery.
func (s *NotificationService) WithMailSender(send MailSender) *NotificationService {
	s.send = send
	return s
}

type emailTemplate struct {
	Subject string
	Body    *template.Template
}

var emailTemplates = map[string]emailTemplate{
	NotificationPublishBlocked: {
		Subject: "Publishing blocked: %s",
		Body: template.Must(template.New(NotificationPublishBlocked).Parse(`<!DOCTYPE html>
<html>
<body>
	<h2>{{.Title}} was not published</h2>
	<p>{{.Header}}</p>
	<ol>{{range .Errors}}<li>{{.}}</li>{{end}}</ol>
	<p>The product keeps its previous status until these are resolved.</p>
</body>
</html>`)),
	},
	NotificationFlaggedPublished: {
		Subject: "FLAGGED verdict published: %s",
		Body: template.Must(template.New(NotificationFlaggedPublished).Parse(`<!DOCTYPE html>
<html>
<body>
	<h2>{{.Title}} is live with a FLAGGED verdict</h2>
	<p>Legal-defense documentation passed every check at {{.At}}.</p>
</body>
</html>`)),
	},
}

// PublishBlocked tells the editor whose save was refused why it was refused.
func (s *NotificationService) PublishBlocked(ctx context.Context, p *models.Product, rej *rules.Rejection, actor *rules.Actor) error {
	n := &models.AdminNotification{
		Type:                NotificationPublishBlocked,
		Title:               fmt.Sprintf("Publishing blocked: %s", p.Title),
		Message:             rej.Message,
		Priority:            "high",
		Status:              "unread",
		RelatedResourceType: "product",
		RelatedResourceID:   productRef(p),
	}
	if actor != nil {
		id := actor.ID
		n.RecipientID = &id
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	if actor == nil || actor.Email == "" {
		return nil
	}
	return s.sendTemplate(actor.Email, NotificationPublishBlocked, p.Title, map[string]interface{}{
		"Title":  p.Title,
		"Header": "The following requirements were not met:",
		"Errors": rej.Errors,
	})
}

// FlaggedPublished announces a FLAGGED verdict going live to every editor.
func (s *NotificationService) FlaggedPublished(ctx context.Context, p *models.Product, actor *rules.Actor) error {
	at := time.Now().UTC()
	if p.PublishedAt != nil {
		at = p.PublishedAt.UTC()
	}

	n := &models.AdminNotification{
		Type:                NotificationFlaggedPublished,
		Title:               fmt.Sprintf("FLAGGED verdict published: %s", p.Title),
		Message:             fmt.Sprintf("%s was published with a FLAGGED verdict at %s.", p.Title, at.Format(time.RFC3339)),
		Priority:            "high",
		Status:              "unread",
		RelatedResourceType: "product",
		RelatedResourceID:   productRef(p),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	if actor == nil || actor.Email == "" {
		return nil
	}
	return s.sendTemplate(actor.Email, NotificationFlaggedPublished, p.Title, map[string]interface{}{
		"Title": p.Title,
		"At":    at.Format(time.RFC3339),
	})
}

func (s *NotificationService) ListNotifications(ctx context.Context, recipientID uuid.UUID, params utils.PaginationParams) ([]models.AdminNotification, int64, error) {
	return s.notifications.ListForRecipient(ctx, recipientID, params)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	err := s.notifications.MarkRead(ctx, id, recipientID, time.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

func (s *NotificationService) sendTemplate(to, templateType, subjectArg string, data interface{}) error {
	tmpl, ok := emailTemplates[templateType]
	if !ok {
		return fmt.Errorf("unknown email template %q", templateType)
	}

	var buf bytes.Buffer
	if err := tmpl.Body.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.send(to, fmt.Sprintf(tmpl.Subject, subjectArg), buf.String())
}

func (s *NotificationService) sendSMTP(to, subject, body string) error {
	if !s.email.Enabled() {
		s.log.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("SMTP not configured, email skipped")
		return nil
	}

	auth := smtp.PlainAuth("", s.email.SMTPUsername, s.email.SMTPPassword, s.email.SMTPHost)
	msg := []byte(fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.email.FromName, s.email.FromEmail, to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.email.SMTPHost, s.email.SMTPPort)
	return smtp.SendMail(addr, auth, s.email.FromEmail, []string{to}, msg)
}

func productRef(p *models.Product) *uuid.UUID {
	if p.ID == uuid.Nil {
		return nil
	}
	id := p.ID
	return &id
}
