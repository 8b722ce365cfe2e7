// internal/rules/daubert.go
package rules

import (
	"fmt"
	"strings"

	"github.com/javajoker/verdict-cms/internal/models"
)

// Legal-defense error messages. They are shown verbatim to editors.
const (
	ErrRetailerTypeMissing = "CHAIN OF CUSTODY: Retailer Type is required before publishing a FLAGGED verdict. Record where the sample was purchased."
	ErrPurchaseProof       = "CHAIN OF CUSTODY: Purchase Receipt or Purchase Photo is required before publishing a FLAGGED verdict."
	ErrSplitSampleDropped  = "CHAIN OF CUSTODY: Split Sample was not retained. A retained split sample is required for a FLAGGED verdict (N=1 defense)."
	ErrSelectionRationale  = "SAMPLE SELECTION: Selection Rationale is required before publishing a FLAGGED verdict."
	ErrMethodValidation    = "METHOD VALIDATION: A FLAGGED verdict requires a Method Validation Package, a completed Expert Review (reviewer name and review date), or third-party lab verification."
)

// RequiresLegalDefense reports whether a save publishes a FLAGGED verdict.
func RequiresLegalDefense(p *models.Product) bool {
	return p != nil && p.Status == models.ProductStatusPublished && p.Verdict == models.VerdictFlagged
}

// ValidatePublication returns every missing piece of evidence required to
// publish a FLAGGED verdict. It returns nil for any other save.
func ValidatePublication(p *models.Product) []string {
	if !RequiresLegalDefense(p) {
		return nil
	}

	var errs []string

	if compounds := p.PrimaryScreeningCompounds(); len(compounds) > 0 {
		errs = append(errs, fmt.Sprintf(
			"DETECTION CONFIRMATION: Primary detections must be confirmed or quantified, not screening only. Upgrade the confirmation level for: %s",
			strings.Join(compounds, ", ")))
	}

	if p.RetailerType == "" {
		errs = append(errs, ErrRetailerTypeMissing)
	}

	if p.PurchaseReceipt == "" && p.PurchasePhoto == "" {
		errs = append(errs, ErrPurchaseProof)
	}

	if p.SplitSample.Retained != nil && !*p.SplitSample.Retained {
		errs = append(errs, ErrSplitSampleDropped)
	}

	if strings.TrimSpace(p.SelectionRationale) == "" {
		errs = append(errs, ErrSelectionRationale)
	}

	hasValidation := p.MethodValidationPackage != "" ||
		p.ExpertReview.Complete() ||
		p.ExternalLabVerification.VerifiedByThirdParty
	if !hasValidation {
		errs = append(errs, ErrMethodValidation)
	}

	return errs
}

// FormatPublicationErrors builds the aggregate message returned to the editor.
func FormatPublicationErrors(errs []string) string {
	return numbered("Cannot publish FLAGGED verdict. Legal defense (Daubert) requirements not met:", errs)
}

func numbered(header string, errs []string) string {
	var b strings.Builder
	b.WriteString(header)
	for i, e := range errs {
		fmt.Fprintf(&b, "\n%d. %s", i+1, e)
	}
	return b.String()
}
