// internal/models/product.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Product struct {
	BaseModel
	Title      string         `json:"title" gorm:"size:255;not null"`
	Slug       string         `json:"slug" gorm:"size:255;uniqueIndex"`
	CategoryID *uuid.UUID     `json:"category_id" gorm:"type:uuid;index"`
	BrandID    *uuid.UUID     `json:"brand_id" gorm:"type:uuid;index"`
	CreatedBy  *uuid.UUID     `json:"created_by" gorm:"type:uuid"`
	Summary    string         `json:"summary" gorm:"type:text"`
	ReviewBody string         `json:"review_body" gorm:"type:text"`
	Pros       pq.StringArray `json:"pros" gorm:"type:text[]"`
	Cons       pq.StringArray `json:"cons" gorm:"type:text[]"`

	Status      ProductStatus `json:"status" gorm:"type:varchar(20);default:'draft';index"`
	PublishedAt *time.Time    `json:"published_at"`

	Verdict               Verdict        `json:"verdict" gorm:"type:varchar(20);index"`
	AutoVerdict           Verdict        `json:"auto_verdict" gorm:"type:varchar(20)"`
	VerdictOverride       bool           `json:"verdict_override" gorm:"default:false"`
	VerdictOverrideReason string         `json:"verdict_override_reason" gorm:"type:text"`
	VerdictOverriddenBy   *uuid.UUID     `json:"verdict_overridden_by" gorm:"type:uuid"`
	VerdictOverriddenAt   *time.Time     `json:"verdict_overridden_at"`
	Conflicts             ConflictReport `json:"conflicts" gorm:"type:jsonb"`

	PackageText string     `json:"package_text" gorm:"type:text"`
	Detections  Detections `json:"detections" gorm:"type:jsonb"`

	// Chain of custody
	RetailerType            RetailerType            `json:"retailer_type" gorm:"type:varchar(30)"`
	PurchaseReceipt         string                  `json:"purchase_receipt" gorm:"size:512"`
	PurchasePhoto           string                  `json:"purchase_photo" gorm:"size:512"`
	SplitSample             SplitSample             `json:"split_sample" gorm:"embedded;embeddedPrefix:split_sample_"`
	SelectionRationale      string                  `json:"selection_rationale" gorm:"type:text"`
	ExpertReview            ExpertReview            `json:"expert_review" gorm:"embedded;embeddedPrefix:expert_review_"`
	MethodValidationPackage string                  `json:"method_validation_package" gorm:"size:512"`
	ExternalLabVerification ExternalLabVerification `json:"external_lab_verification" gorm:"embedded;embeddedPrefix:external_lab_"`

	// Relationships
	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Brand    *Brand    `json:"brand,omitempty" gorm:"foreignKey:BrandID"`
}

// Detection is one lab finding for a tested sample.
type Detection struct {
	Compound          string            `json:"compound" validate:"required"`
	MatchProbability  *float64          `json:"match_probability,omitempty" validate:"omitempty,min=0,max=100"`
	DisplayMode       DisplayMode       `json:"display_mode,omitempty" validate:"omitempty,display_mode"`
	DetectionType     DetectionType     `json:"detection_type,omitempty" validate:"omitempty,detection_type"`
	ConfirmationLevel ConfirmationLevel `json:"confirmation_level,omitempty" validate:"omitempty,confirmation_level"`
	Concentration     *float64          `json:"concentration,omitempty"`
	Unit              string            `json:"unit,omitempty"`
	Notes             string            `json:"notes,omitempty"`
}

type Detections []Detection

func (d Detections) Value() (driver.Value, error) {
	if d == nil {
		return "[]", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *Detections) Scan(value interface{}) error {
	return scanJSON(value, d)
}

type SplitSample struct {
	Retained *bool  `json:"retained"`
	Location string `json:"location,omitempty" gorm:"size:255"`
}

type ExpertReview struct {
	ReviewerName string     `json:"reviewer_name,omitempty" gorm:"size:255"`
	ReviewDate   *time.Time `json:"review_date,omitempty"`
}

// Complete reports whether both reviewer name and review date are present.
func (e ExpertReview) Complete() bool {
	return e.ReviewerName != "" && e.ReviewDate != nil
}

type ExternalLabVerification struct {
	VerifiedByThirdParty bool   `json:"verified_by_third_party"`
	LabName              string `json:"lab_name,omitempty" gorm:"size:255"`
}

// Conflict is a single rule violation found by the conflict detector.
type Conflict struct {
	Severity ConflictSeverity `json:"severity"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
}

// ConflictReport is the persisted result of the most recent conflict check.
type ConflictReport struct {
	Items     []Conflict `json:"items"`
	CheckedAt *time.Time `json:"checked_at,omitempty"`
}

func (c ConflictReport) Value() (driver.Value, error) {
	if c.Items == nil {
		c.Items = []Conflict{}
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *ConflictReport) Scan(value interface{}) error {
	return scanJSON(value, c)
}

func scanJSON(value interface{}, dst interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
}

// Clone returns a deep copy so pipeline steps never mutate the caller's document.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	if p.Pros != nil {
		c.Pros = append(pq.StringArray(nil), p.Pros...)
	}
	if p.Cons != nil {
		c.Cons = append(pq.StringArray(nil), p.Cons...)
	}
	if p.Detections != nil {
		c.Detections = append(Detections(nil), p.Detections...)
	}
	if p.Conflicts.Items != nil {
		c.Conflicts.Items = append([]Conflict(nil), p.Conflicts.Items...)
	}
	return &c
}

// PrimaryScreeningCompounds lists compounds shown as primary findings that were only screened.
func (p *Product) PrimaryScreeningCompounds() []string {
	var compounds []string
	for _, d := range p.Detections {
		if d.DisplayMode == DisplayModePrimary && d.ConfirmationLevel == ConfirmationLevelScreening {
			compounds = append(compounds, d.Compound)
		}
	}
	return compounds
}
