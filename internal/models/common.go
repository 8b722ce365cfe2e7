// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleEditor   UserRole = "editor"
	UserRoleReviewer UserRole = "reviewer"
)

type Verdict string

const (
	VerdictRecommend Verdict = "recommend"
	VerdictCaution   Verdict = "caution"
	VerdictFlagged   Verdict = "flagged"
)

func (v Verdict) Valid() bool {
	switch v {
	case VerdictRecommend, VerdictCaution, VerdictFlagged:
		return true
	}
	return false
}

type ProductStatus string

const (
	ProductStatusAIDraft   ProductStatus = "ai_draft"
	ProductStatusDraft     ProductStatus = "draft"
	ProductStatusTesting   ProductStatus = "testing"
	ProductStatusWriting   ProductStatus = "writing"
	ProductStatusReview    ProductStatus = "review"
	ProductStatusPublished ProductStatus = "published"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusAIDraft, ProductStatusDraft, ProductStatusTesting,
		ProductStatusWriting, ProductStatusReview, ProductStatusPublished:
		return true
	}
	return false
}

type DisplayMode string

const (
	DisplayModePrimary       DisplayMode = "primary"
	DisplayModeLowConfidence DisplayMode = "low_confidence"
	DisplayModeHidden        DisplayMode = "hidden"
)

func (d DisplayMode) Valid() bool {
	switch d {
	case DisplayModePrimary, DisplayModeLowConfidence, DisplayModeHidden:
		return true
	}
	return false
}

type DetectionType string

const (
	DetectionTypeStandard           DetectionType = "standard"
	DetectionTypeFragranceComponent DetectionType = "fragrance_component"
	DetectionTypeHiddenContaminant  DetectionType = "hidden_contaminant"
)

func (d DetectionType) Valid() bool {
	switch d {
	case DetectionTypeStandard, DetectionTypeFragranceComponent, DetectionTypeHiddenContaminant:
		return true
	}
	return false
}

type ConfirmationLevel string

const (
	ConfirmationLevelScreening  ConfirmationLevel = "screening"
	ConfirmationLevelConfirmed  ConfirmationLevel = "confirmed"
	ConfirmationLevelQuantified ConfirmationLevel = "quantified"
)

func (c ConfirmationLevel) Valid() bool {
	switch c {
	case ConfirmationLevelScreening, ConfirmationLevelConfirmed, ConfirmationLevelQuantified:
		return true
	}
	return false
}

type RetailerType string

const (
	RetailerTypeBrandDirect      RetailerType = "brand_direct"
	RetailerTypeAuthorizedRetail RetailerType = "authorized_retailer"
	RetailerTypeMarketplace      RetailerType = "marketplace"
	RetailerTypePharmacy         RetailerType = "pharmacy"
	RetailerTypeGrocery          RetailerType = "grocery"
	RetailerTypeThirdPartySeller RetailerType = "third_party_seller"
)

func (r RetailerType) Valid() bool {
	switch r {
	case RetailerTypeBrandDirect, RetailerTypeAuthorizedRetail, RetailerTypeMarketplace,
		RetailerTypePharmacy, RetailerTypeGrocery, RetailerTypeThirdPartySeller:
		return true
	}
	return false
}

type ConflictSeverity string

const (
	ConflictSeverityError   ConflictSeverity = "error"
	ConflictSeverityWarning ConflictSeverity = "warning"
)

type AuditSource string

const (
	AuditSourceUser   AuditSource = "user"
	AuditSourceSystem AuditSource = "system"
)

// Audit actions written by the save pipeline and services
const (
	AuditActionCreate           = "create"
	AuditActionUpdate           = "update"
	AuditActionDelete           = "delete"
	AuditActionConflictDetected = "conflict_detected"
	AuditActionVerdictOverride  = "verdict_override"
	AuditActionPublishBlocked   = "publish_blocked"
	AuditActionPublished        = "published"
)
