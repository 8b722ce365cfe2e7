// internal/rules/daubert_test.go
package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/verdict-cms/internal/models"
)

func boolPtr(v bool) *bool { return &v }

// defensibleFlagged returns a FLAGGED publish that satisfies every evidentiary requirement.
func defensibleFlagged() *models.Product {
	reviewed := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return &models.Product{
		Title:   "Lavender Body Wash",
		Status:  models.ProductStatusPublished,
		Verdict: models.VerdictFlagged,
		Detections: models.Detections{
			{Compound: "Benzene", MatchProbability: prob(91), DisplayMode: models.DisplayModePrimary, ConfirmationLevel: models.ConfirmationLevelQuantified},
			{Compound: "Toluene", MatchProbability: prob(55), DisplayMode: models.DisplayModeLowConfidence, ConfirmationLevel: models.ConfirmationLevelScreening},
		},
		RetailerType:       models.RetailerTypePharmacy,
		PurchaseReceipt:    "evidence/receipts/2026-03-01.pdf",
		SplitSample:        models.SplitSample{Retained: boolPtr(true)},
		SelectionRationale: "Best-selling SKU in the category at time of purchase",
		ExpertReview:       models.ExpertReview{ReviewerName: "Dr. R. Okafor", ReviewDate: &reviewed},
	}
}

func TestValidatePublicationPassesWithFullEvidence(t *testing.T) {
	assert.Empty(t, ValidatePublication(defensibleFlagged()))
}

func TestValidatePublicationEachRequirementInIsolation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *models.Product)
		contain []string
	}{
		{
			name: "primary detection only screened",
			mutate: func(p *models.Product) {
				p.Detections[0].ConfirmationLevel = models.ConfirmationLevelScreening
			},
			contain: []string{"DETECTION CONFIRMATION", "Benzene"},
		},
		{
			name:    "retailer type missing",
			mutate:  func(p *models.Product) { p.RetailerType = "" },
			contain: []string{"CHAIN OF CUSTODY", "Retailer Type"},
		},
		{
			name:    "no receipt or photo",
			mutate:  func(p *models.Product) { p.PurchaseReceipt = "" },
			contain: []string{"CHAIN OF CUSTODY", "Purchase Receipt"},
		},
		{
			name:    "split sample discarded",
			mutate:  func(p *models.Product) { p.SplitSample.Retained = boolPtr(false) },
			contain: []string{"CHAIN OF CUSTODY", "Split Sample"},
		},
		{
			name:    "no selection rationale",
			mutate:  func(p *models.Product) { p.SelectionRationale = "  " },
			contain: []string{"SAMPLE SELECTION"},
		},
		{
			name:    "no validation evidence",
			mutate:  func(p *models.Product) { p.ExpertReview = models.ExpertReview{} },
			contain: []string{"METHOD VALIDATION"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defensibleFlagged()
			tt.mutate(p)

			errs := ValidatePublication(p)

			require.Len(t, errs, 1)
			for _, s := range tt.contain {
				assert.Contains(t, errs[0], s)
			}
		})
	}
}

func TestValidatePublicationCollectsAllErrors(t *testing.T) {
	p := &models.Product{Status: models.ProductStatusPublished, Verdict: models.VerdictFlagged}

	errs := ValidatePublication(p)

	assert.Len(t, errs, 4)
	assert.Equal(t, ErrRetailerTypeMissing, errs[0])
	assert.Equal(t, ErrPurchaseProof, errs[1])
	assert.Equal(t, ErrSelectionRationale, errs[2])
	assert.Equal(t, ErrMethodValidation, errs[3])
}

func TestValidatePublicationSplitSampleUnsetIsAccepted(t *testing.T) {
	p := defensibleFlagged()
	p.SplitSample.Retained = nil

	assert.Empty(t, ValidatePublication(p))
}

func TestValidatePublicationPurchasePhotoCounts(t *testing.T) {
	p := defensibleFlagged()
	p.PurchaseReceipt = ""
	p.PurchasePhoto = "evidence/photos/shelf.jpg"

	assert.Empty(t, ValidatePublication(p))
}

func TestValidatePublicationValidationAlternatives(t *testing.T) {
	date := time.Now()
	tests := []struct {
		name   string
		mutate func(p *models.Product)
		ok     bool
	}{
		{"method validation package", func(p *models.Product) { p.MethodValidationPackage = "mvp.pdf" }, true},
		{"third party verification", func(p *models.Product) { p.ExternalLabVerification.VerifiedByThirdParty = true }, true},
		{"expert review complete", func(p *models.Product) { p.ExpertReview = models.ExpertReview{ReviewerName: "A", ReviewDate: &date} }, true},
		{"expert review name only", func(p *models.Product) { p.ExpertReview = models.ExpertReview{ReviewerName: "A"} }, false},
		{"expert review date only", func(p *models.Product) { p.ExpertReview = models.ExpertReview{ReviewDate: &date} }, false},
		{"lab named but not verified", func(p *models.Product) { p.ExternalLabVerification.LabName = "Eurofins" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defensibleFlagged()
			p.ExpertReview = models.ExpertReview{}
			tt.mutate(p)

			errs := ValidatePublication(p)
			if tt.ok {
				assert.Empty(t, errs)
			} else {
				assert.Equal(t, []string{ErrMethodValidation}, errs)
			}
		})
	}
}

func TestValidatePublicationIgnoresNonFlaggedAndDrafts(t *testing.T) {
	for _, v := range []models.Verdict{models.VerdictRecommend, models.VerdictCaution} {
		p := &models.Product{Status: models.ProductStatusPublished, Verdict: v}
		assert.Nil(t, ValidatePublication(p), "verdict %s", v)
	}

	p := &models.Product{Status: models.ProductStatusReview, Verdict: models.VerdictFlagged}
	assert.Nil(t, ValidatePublication(p))
}

func TestFormatPublicationErrorsNumbersEachError(t *testing.T) {
	msg := FormatPublicationErrors([]string{"first", "second"})

	assert.Contains(t, msg, "\n1. first")
	assert.Contains(t, msg, "\n2. second")
}
