// internal/models/version.go
package models

import (
	"github.com/google/uuid"
)

// ProductVersion is an append-only snapshot of a published product.
type ProductVersion struct {
	BaseModel
	ProductID    uuid.UUID  `json:"product_id" gorm:"type:uuid;not null;index"`
	Version      int        `json:"version" gorm:"not null"`
	Status       string     `json:"status" gorm:"type:varchar(20)"`
	Verdict      string     `json:"verdict" gorm:"type:varchar(20)"`
	Snapshot     JSONB      `json:"snapshot" gorm:"type:jsonb;not null"`
	ContentHash  string     `json:"content_hash" gorm:"size:64;not null"`
	PreviousHash string     `json:"previous_hash" gorm:"size:64"`
	CreatedBy    *uuid.UUID `json:"created_by" gorm:"type:uuid"`
}
