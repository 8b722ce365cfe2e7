// internal/rules/events.go
package rules

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/verdict-cms/internal/models"
)

// AuditEvent is an audit record produced by a pipeline step. The caller
// writes it to the audit log after the save decision.
type AuditEvent struct {
	Action           string
	Source           models.AuditSource
	ActorID          *uuid.UUID
	TargetCollection string
	TargetID         *uuid.UUID
	TargetName       string
	Before           map[string]interface{}
	After            map[string]interface{}
	Metadata         map[string]interface{}
	At               time.Time
}

// Rejection is returned when a save is refused. Nothing from the candidate
// may be persisted.
type Rejection struct {
	Stage     string          `json:"stage"`
	Errors    []string        `json:"errors"`
	Message   string          `json:"message"`
	Conflicts *ConflictResult `json:"conflicts,omitempty"`
	Events    []AuditEvent    `json:"-"`
}

func (r *Rejection) Error() string {
	return r.Message
}

// AsRejection unwraps err into a *Rejection if it is one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

func productEvent(sc *SaveContext, p *models.Product, action string) AuditEvent {
	e := AuditEvent{
		Action:           action,
		Source:           models.AuditSourceSystem,
		TargetCollection: "products",
		TargetName:       p.Title,
		At:               sc.Now,
	}
	if p.ID != uuid.Nil {
		id := p.ID
		e.TargetID = &id
	}
	if sc.Actor != nil {
		id := sc.Actor.ID
		e.ActorID = &id
		e.Source = models.AuditSourceUser
	}
	return e
}
