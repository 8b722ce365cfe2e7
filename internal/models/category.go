// internal/models/category.go
package models

import (
	"github.com/lib/pq"
)

type Category struct {
	BaseModel
	Name                 string         `json:"name" gorm:"size:100;not null"`
	Slug                 string         `json:"slug" gorm:"size:100;uniqueIndex;not null"`
	Description          string         `json:"description" gorm:"type:text"`
	AllowedVerdicts      pq.StringArray `json:"allowed_verdicts" gorm:"type:text[]"`
	ReviewVerdicts       pq.StringArray `json:"review_verdicts" gorm:"type:text[]"`
	RequiresOverrideNote bool           `json:"requires_override_note" gorm:"default:false"`
	ProductCount         int64          `json:"product_count" gorm:"default:0"`
}

type Brand struct {
	BaseModel
	Name         string `json:"name" gorm:"size:255;not null"`
	Slug         string `json:"slug" gorm:"size:255;uniqueIndex;not null"`
	Website      string `json:"website" gorm:"size:512"`
	ProductCount int64  `json:"product_count" gorm:"default:0"`
	FlaggedCount int64  `json:"flagged_count" gorm:"default:0"`
}
