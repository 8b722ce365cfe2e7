// internal/rules/conflicts_test.go
package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/verdict-cms/internal/models"
)

type stubRuleSource struct {
	policies map[uuid.UUID]*CategoryPolicy
	err      error
	calls    int
}

func (s *stubRuleSource) PolicyFor(_ context.Context, id uuid.UUID) (*CategoryPolicy, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.policies[id], nil
}

func supplementsPolicy() *CategoryPolicy {
	return &CategoryPolicy{
		ID:              uuid.New(),
		Name:            "Supplements",
		AllowedVerdicts: []models.Verdict{models.VerdictCaution, models.VerdictFlagged},
		ReviewVerdicts:  []models.Verdict{models.VerdictFlagged},
	}
}

func TestDetectOverrideAllowsErrorConflicts(t *testing.T) {
	d := NewConflictDetector(nil, nil)
	policy := supplementsPolicy()

	blocked := d.Detect(context.Background(), ConflictCandidate{
		Verdict:  models.VerdictRecommend,
		Category: CategoryRef{Policy: policy},
	})
	assert.True(t, blocked.HasConflicts)
	assert.False(t, blocked.CanSave)
	require.Len(t, blocked.Conflicts, 1)
	assert.Equal(t, models.ConflictSeverityError, blocked.Conflicts[0].Severity)
	assert.Equal(t, ConflictVerdictNotAllowed, blocked.Conflicts[0].Code)

	overridden := d.Detect(context.Background(), ConflictCandidate{
		Verdict:         models.VerdictRecommend,
		VerdictOverride: true,
		Category:        CategoryRef{Policy: policy},
	})
	assert.True(t, overridden.HasConflicts)
	assert.True(t, overridden.CanSave)
}

func TestDetectWarningsDoNotBlock(t *testing.T) {
	d := NewConflictDetector(nil, nil)

	res := d.Detect(context.Background(), ConflictCandidate{
		Verdict:  models.VerdictFlagged,
		Category: CategoryRef{Policy: supplementsPolicy()},
	})

	assert.True(t, res.HasConflicts)
	assert.True(t, res.CanSave)
	assert.Empty(t, res.Errors())
	assert.Equal(t, ConflictVerdictNeedsReview, res.Conflicts[0].Code)
}

func TestDetectResolvesCategoryByID(t *testing.T) {
	policy := supplementsPolicy()
	source := &stubRuleSource{policies: map[uuid.UUID]*CategoryPolicy{policy.ID: policy}}
	d := NewConflictDetector(source, nil)

	res := d.Detect(context.Background(), ConflictCandidate{
		Verdict:  models.VerdictRecommend,
		Category: CategoryRef{ID: &policy.ID},
	})

	assert.Equal(t, 1, source.calls)
	assert.False(t, res.CanSave)
}

func TestDetectLookupFailureFailsOpen(t *testing.T) {
	logger, hook := test.NewNullLogger()
	source := &stubRuleSource{err: errors.New("connection refused")}
	d := NewConflictDetector(source, logger)
	id := uuid.New()

	res := d.Detect(context.Background(), ConflictCandidate{
		Verdict:  models.VerdictRecommend,
		Category: CategoryRef{ID: &id},
	})

	assert.False(t, res.HasConflicts)
	assert.True(t, res.CanSave)
	assert.Equal(t, []models.Conflict{}, res.Conflicts)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestDetectUnknownCategoryHasNoConflicts(t *testing.T) {
	d := NewConflictDetector(&stubRuleSource{}, nil)
	id := uuid.New()

	res := d.Detect(context.Background(), ConflictCandidate{Verdict: models.VerdictRecommend, Category: CategoryRef{ID: &id}})

	assert.False(t, res.HasConflicts)
	assert.True(t, res.CanSave)
}

func TestEvaluatePolicyAutoVerdictDivergence(t *testing.T) {
	conflicts := EvaluatePolicy(nil, ConflictCandidate{Verdict: models.VerdictRecommend, AutoVerdict: models.VerdictCaution})
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictVerdictDivergesAuto, conflicts[0].Code)

	conflicts = EvaluatePolicy(nil, ConflictCandidate{Verdict: models.VerdictRecommend, AutoVerdict: models.VerdictCaution, VerdictOverride: true})
	assert.Empty(t, conflicts)

	assert.Nil(t, EvaluatePolicy(supplementsPolicy(), ConflictCandidate{}))
}

func TestEvaluatePolicyOverrideNote(t *testing.T) {
	policy := &CategoryPolicy{Name: "Baby Care", RequiresOverrideNote: true}

	conflicts := EvaluatePolicy(policy, ConflictCandidate{Verdict: models.VerdictCaution, VerdictOverride: true})
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictOverrideReasonMissing, conflicts[0].Code)
	assert.Equal(t, models.ConflictSeverityWarning, conflicts[0].Severity)

	assert.Empty(t, EvaluatePolicy(policy, ConflictCandidate{Verdict: models.VerdictCaution, VerdictOverride: true, OverrideReason: "lab retest"}))
}

func TestPolicyFromCategory(t *testing.T) {
	c := &models.Category{Name: "Sunscreen", AllowedVerdicts: []string{"caution"}, RequiresOverrideNote: true}

	p := PolicyFromCategory(c)

	assert.Equal(t, "Sunscreen", p.Name)
	assert.Equal(t, []models.Verdict{models.VerdictCaution}, p.AllowedVerdicts)
	assert.True(t, p.RequiresOverrideNote)
	assert.Nil(t, PolicyFromCategory(nil))
}
