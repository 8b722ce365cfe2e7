// internal/rules/conflicts.go
package rules

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/verdict-cms/internal/models"
)

// Conflict codes
const (
	ConflictVerdictNotAllowed     = "verdict_not_allowed"
	ConflictVerdictNeedsReview    = "verdict_needs_review"
	ConflictVerdictDivergesAuto   = "verdict_diverges_from_auto"
	ConflictOverrideReasonMissing = "override_reason_missing"
)

// CategoryPolicy is the set of verdict constraints attached to a category.
type CategoryPolicy struct {
	ID                   uuid.UUID
	Name                 string
	AllowedVerdicts      []models.Verdict
	ReviewVerdicts       []models.Verdict
	RequiresOverrideNote bool
}

// PolicyFromCategory converts a stored category into its policy.
func PolicyFromCategory(c *models.Category) *CategoryPolicy {
	if c == nil {
		return nil
	}

	p := &CategoryPolicy{
		ID:                   c.ID,
		Name:                 c.Name,
		RequiresOverrideNote: c.RequiresOverrideNote,
	}
	for _, v := range c.AllowedVerdicts {
		p.AllowedVerdicts = append(p.AllowedVerdicts, models.Verdict(v))
	}
	for _, v := range c.ReviewVerdicts {
		p.ReviewVerdicts = append(p.ReviewVerdicts, models.Verdict(v))
	}
	return p
}

// CategoryRuleSource resolves a category id to its policy. A nil policy with a
// nil error means the category has no constraints.
type CategoryRuleSource interface {
	PolicyFor(ctx context.Context, id uuid.UUID) (*CategoryPolicy, error)
}

// CategoryRef is either a resolved policy or an id still to be looked up.
type CategoryRef struct {
	ID     *uuid.UUID
	Policy *CategoryPolicy
}

type ConflictCandidate struct {
	Verdict         models.Verdict
	AutoVerdict     models.Verdict
	VerdictOverride bool
	OverrideReason  string
	Category        CategoryRef
}

// CandidateFromProduct builds the detector input for a product document.
func CandidateFromProduct(p *models.Product) ConflictCandidate {
	c := ConflictCandidate{
		Verdict:         p.Verdict,
		AutoVerdict:     p.AutoVerdict,
		VerdictOverride: p.VerdictOverride,
		OverrideReason:  p.VerdictOverrideReason,
		Category:        CategoryRef{ID: p.CategoryID},
	}
	if p.Category != nil {
		c.Category.Policy = PolicyFromCategory(p.Category)
	}
	return c
}

type ConflictResult struct {
	HasConflicts bool              `json:"has_conflicts"`
	Conflicts    []models.Conflict `json:"conflicts"`
	CanSave      bool              `json:"can_save"`
}

// Errors returns the messages of error-severity conflicts.
func (r ConflictResult) Errors() []string {
	var msgs []string
	for _, c := range r.Conflicts {
		if c.Severity == models.ConflictSeverityError {
			msgs = append(msgs, c.Message)
		}
	}
	return msgs
}

type ConflictDetector struct {
	source CategoryRuleSource
	log    logrus.FieldLogger
}

func NewConflictDetector(source CategoryRuleSource, log logrus.FieldLogger) *ConflictDetector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ConflictDetector{source: source, log: log}
}

// Detect evaluates the candidate against its category policy and the computed
// verdict. Category lookup failures are logged and treated as no category.
func (d *ConflictDetector) Detect(ctx context.Context, c ConflictCandidate) ConflictResult {
	policy := d.resolve(ctx, c.Category)
	conflicts := EvaluatePolicy(policy, c)

	hasError := false
	for _, cf := range conflicts {
		if cf.Severity == models.ConflictSeverityError {
			hasError = true
			break
		}
	}

	if conflicts == nil {
		conflicts = []models.Conflict{}
	}

	return ConflictResult{
		HasConflicts: len(conflicts) > 0,
		Conflicts:    conflicts,
		CanSave:      !hasError || c.VerdictOverride,
	}
}

func (d *ConflictDetector) resolve(ctx context.Context, ref CategoryRef) *CategoryPolicy {
	if ref.Policy != nil {
		return ref.Policy
	}
	if ref.ID == nil || d.source == nil {
		return nil
	}

	policy, err := d.source.PolicyFor(ctx, *ref.ID)
	if err != nil {
		d.log.WithError(err).WithField("category_id", ref.ID.String()).
			Warn("Category rule lookup failed, continuing without category rules")
		return nil
	}
	return policy
}

// EvaluatePolicy applies category and auto-verdict rules to a candidate.
// A nil policy only skips the category rules.
func EvaluatePolicy(policy *CategoryPolicy, c ConflictCandidate) []models.Conflict {
	if c.Verdict == "" {
		return nil
	}

	var conflicts []models.Conflict

	if c.AutoVerdict != "" && c.Verdict != c.AutoVerdict && !c.VerdictOverride {
		conflicts = append(conflicts, models.Conflict{
			Severity: models.ConflictSeverityError,
			Code:     ConflictVerdictDivergesAuto,
			Message: fmt.Sprintf("Verdict %q differs from the computed verdict %q; enable verdict override and give a reason",
				c.Verdict, c.AutoVerdict),
		})
	}

	if policy == nil {
		return conflicts
	}

	if len(policy.AllowedVerdicts) > 0 && !containsVerdict(policy.AllowedVerdicts, c.Verdict) {
		conflicts = append(conflicts, models.Conflict{
			Severity: models.ConflictSeverityError,
			Code:     ConflictVerdictNotAllowed,
			Message:  fmt.Sprintf("Verdict %q is not permitted for category %q", c.Verdict, policy.Name),
		})
	}

	if containsVerdict(policy.ReviewVerdicts, c.Verdict) {
		conflicts = append(conflicts, models.Conflict{
			Severity: models.ConflictSeverityWarning,
			Code:     ConflictVerdictNeedsReview,
			Message:  fmt.Sprintf("Verdict %q in category %q requires editorial review", c.Verdict, policy.Name),
		})
	}

	if policy.RequiresOverrideNote && c.VerdictOverride && c.OverrideReason == "" {
		conflicts = append(conflicts, models.Conflict{
			Severity: models.ConflictSeverityWarning,
			Code:     ConflictOverrideReasonMissing,
			Message:  fmt.Sprintf("Category %q expects a reason when the verdict is overridden", policy.Name),
		})
	}

	return conflicts
}

func containsVerdict(list []models.Verdict, v models.Verdict) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
