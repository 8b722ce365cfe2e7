// internal/models/admin.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	BaseModel
	Action           string      `json:"action" gorm:"size:100;not null;index"`
	SourceType       AuditSource `json:"source_type" gorm:"type:varchar(20);not null"`
	UserID           *uuid.UUID  `json:"user_id" gorm:"type:uuid;index"`
	TargetCollection string      `json:"target_collection" gorm:"size:50;not null;index"`
	TargetID         *uuid.UUID  `json:"target_id" gorm:"type:uuid;index"`
	TargetName       string      `json:"target_name" gorm:"size:255"`
	OldValues        JSONB       `json:"old_values" gorm:"type:jsonb"`
	NewValues        JSONB       `json:"new_values" gorm:"type:jsonb"`
	Metadata         JSONB       `json:"metadata" gorm:"type:jsonb"`

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

type AdminNotification struct {
	BaseModel
	Type                string     `json:"type" gorm:"type:varchar(50);not null;index"`
	Title               string     `json:"title" gorm:"size:255;not null"`
	Message             string     `json:"message" gorm:"type:text;not null"`
	Priority            string     `json:"priority" gorm:"type:varchar(20);default:'medium';index"`
	Status              string     `json:"status" gorm:"type:varchar(20);default:'unread';index"`
	RecipientID         *uuid.UUID `json:"recipient_id" gorm:"type:uuid;index"`
	RelatedResourceType string     `json:"related_resource_type,omitempty" gorm:"size:50"`
	RelatedResourceID   *uuid.UUID `json:"related_resource_id" gorm:"type:uuid"`
	ReadAt              *time.Time `json:"read_at"`
}
