// internal/services/product_service_test.go
package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/verdict-cms/internal/config"
	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/rules"
	"github.com/javajoker/verdict-cms/internal/utils"
)

type ProductServiceTestSuite struct {
	suite.Suite
	products   *memProducts
	categories *memCategories
	audit      *recordedAudit
	jobs       *capturedJobs
	notifier   *recordingNotifier
	aggregates *countingAggregates
	versions   *memVersions
	service    *ProductService
	actor      *rules.Actor
	now        time.Time
	category   uuid.UUID
}

func (s *ProductServiceTestSuite) SetupTest() {
	log, _ := test.NewNullLogger()

	s.now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s.category = uuid.New()
	s.products = newMemProducts()
	s.categories = &memCategories{items: map[uuid.UUID]*models.Category{
		s.category: {
			BaseModel:       models.BaseModel{ID: s.category},
			Name:            "Body Wash",
			AllowedVerdicts: []string{"recommend", "caution", "flagged"},
		},
	}}
	s.audit = &recordedAudit{}
	s.jobs = &capturedJobs{}
	s.notifier = &recordingNotifier{}
	s.aggregates = &countingAggregates{}
	s.versions = newMemVersions()
	s.actor = &rules.Actor{ID: uuid.New(), Email: "editor@example.com", Role: models.UserRoleEditor}

	categoryService := NewCategoryService(s.categories, nil, s.audit, log)
	s.service = NewProductService(ProductServiceDeps{
		Products:   s.products,
		Pipeline:   rules.NewPipeline(nil, categoryService, log),
		Audit:      s.audit,
		Jobs:       s.jobs,
		Versions:   NewVersionService(s.versions, log),
		Notifier:   s.notifier,
		Aggregates: s.aggregates,
		Delays:     config.JobsConfig{SnapshotDelay: 2 * time.Second, NotificationDelay: time.Second, RecountDelay: 5 * time.Second},
		Log:        log,
		Clock:      func() time.Time { return s.now },
	})
}

func (s *ProductServiceTestSuite) defensibleInput() *ProductInput {
	retained := true
	reviewed := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	brand := uuid.New()
	return &ProductInput{
		Title:      "Lavender Body Wash",
		CategoryID: &s.category,
		BrandID:    &brand,
		Summary:    "Tested from a retail purchase in March.",
		Status:     models.ProductStatusPublished,
		Verdict:    models.VerdictFlagged,
		Detections: []models.Detection{
			{Compound: "Benzene", MatchProbability: floatPtr(91), ConfirmationLevel: models.ConfirmationLevelQuantified},
		},
		RetailerType:       models.RetailerTypePharmacy,
		PurchaseReceipt:    "evidence/receipts/lavender.pdf",
		SplitSample:        models.SplitSample{Retained: &retained},
		SelectionRationale: "Best-selling SKU in the category at time of purchase",
		ExpertReview:       models.ExpertReview{ReviewerName: "Dr. R. Okafor", ReviewDate: &reviewed},
	}
}

func floatPtr(v float64) *float64 { return &v }

func (s *ProductServiceTestSuite) TestFlaggedPublishWithoutRetailerTypeIsBlocked() {
	ctx := context.Background()

	in := s.defensibleInput()
	in.Status = models.ProductStatusReview
	in.RetailerType = ""
	created, err := s.service.CreateProduct(ctx, s.actor, in)
	s.Require().NoError(err)
	s.audit.reset()
	s.jobs.reset()

	in.Status = models.ProductStatusPublished
	_, err = s.service.UpdateProduct(ctx, s.actor, created.ID, in)
	s.Require().Error(err)

	rej, ok := rules.AsRejection(err)
	s.Require().True(ok)
	s.Equal(rules.StageLegalDefense, rej.Stage)
	s.Equal([]string{rules.ErrRetailerTypeMissing}, rej.Errors)
	s.Contains(rej.Message, "CHAIN OF CUSTODY")
	s.Contains(rej.Message, "Retailer Type")

	stored := s.products.stored(created.ID)
	s.Equal(models.ProductStatusReview, stored.Status)
	s.Nil(stored.PublishedAt)

	s.Equal([]string{models.AuditActionPublishBlocked}, s.audit.actions())
	s.Equal([]string{"notify_publish_blocked"}, s.jobs.names())

	s.Empty(s.jobs.runAll(ctx))
	s.Len(s.notifier.blocked, 1)
	s.Equal(rules.StageLegalDefense, s.notifier.blocked[0].Stage)
}

func (s *ProductServiceTestSuite) TestDefensibleFlaggedPublishIsAccepted() {
	ctx := context.Background()

	p, err := s.service.CreateProduct(ctx, s.actor, s.defensibleInput())
	s.Require().NoError(err)

	s.Equal(models.ProductStatusPublished, p.Status)
	s.Require().NotNil(p.PublishedAt)
	s.True(p.PublishedAt.Equal(s.now))
	s.Equal("lavender-body-wash", p.Slug)
	s.Equal(models.DisplayModePrimary, p.Detections[0].DisplayMode)
	s.Equal(models.DetectionTypeHiddenContaminant, p.Detections[0].DetectionType)

	s.Equal([]string{models.AuditActionCreate, models.AuditActionPublished}, s.audit.actions())
	s.Equal([]string{"version_snapshot", "notify_flagged_published", "recount_category", "recount_brand"}, s.jobs.names())

	s.Empty(s.jobs.runAll(ctx))
	versions, err := s.versions.ListByProduct(ctx, p.ID)
	s.Require().NoError(err)
	s.Len(versions, 1)
	s.Len(s.notifier.published, 1)
	s.Equal([]uuid.UUID{s.category}, s.aggregates.categories)
	s.Len(s.aggregates.brands, 1)
}

func (s *ProductServiceTestSuite) TestRepublishKeepsFirstPublicationTime() {
	ctx := context.Background()

	p, err := s.service.CreateProduct(ctx, s.actor, s.defensibleInput())
	s.Require().NoError(err)
	first := *p.PublishedAt

	s.now = s.now.Add(24 * time.Hour)
	s.audit.reset()
	in := s.defensibleInput()
	in.Title = "Lavender Body Wash (2026 formula)"
	updated, err := s.service.UpdateProduct(ctx, s.actor, p.ID, in)
	s.Require().NoError(err)

	s.True(updated.PublishedAt.Equal(first))
	s.Equal([]string{models.AuditActionUpdate}, s.audit.actions())
}

func (s *ProductServiceTestSuite) TestVerdictConflictRejectsUntilOverridden() {
	ctx := context.Background()

	in := &ProductInput{
		Title:       "Citrus Shampoo",
		Status:      models.ProductStatusDraft,
		Verdict:     models.VerdictCaution,
		AutoVerdict: models.VerdictRecommend,
	}
	_, err := s.service.CreateProduct(ctx, s.actor, in)
	rej, ok := rules.AsRejection(err)
	s.Require().True(ok)
	s.Equal(rules.StageConflicts, rej.Stage)
	s.Require().NotNil(rej.Conflicts)
	s.False(rej.Conflicts.CanSave)
	s.Equal([]string{models.AuditActionConflictDetected}, s.audit.actions())
	_, total, _ := s.products.Search(ctx, productFilterAll())
	s.Zero(total)

	s.audit.reset()
	in.VerdictOverride = true
	in.VerdictOverrideReason = "Lab retest pending"
	p, err := s.service.CreateProduct(ctx, s.actor, in)
	s.Require().NoError(err)
	s.Require().NotNil(p.VerdictOverriddenBy)
	s.Equal(s.actor.ID, *p.VerdictOverriddenBy)
	s.Contains(s.audit.actions(), models.AuditActionVerdictOverride)
	s.Len(p.Conflicts.Items, 0)
}

func (s *ProductServiceTestSuite) TestSlugMustBeUnique() {
	ctx := context.Background()
	in := &ProductInput{Title: "Rose Hand Cream", Status: models.ProductStatusDraft}

	_, err := s.service.CreateProduct(ctx, s.actor, in)
	s.Require().NoError(err)

	_, err = s.service.CreateProduct(ctx, s.actor, in)
	s.True(errors.Is(err, ErrSlugTaken))
}

func (s *ProductServiceTestSuite) TestUpdateUnknownProduct() {
	_, err := s.service.UpdateProduct(context.Background(), s.actor, uuid.New(), &ProductInput{Title: "Missing", Status: models.ProductStatusDraft})
	s.True(errors.Is(err, ErrProductNotFound))
}

func (s *ProductServiceTestSuite) TestInvalidInputIsRejectedBeforeRules() {
	_, err := s.service.CreateProduct(context.Background(), s.actor, &ProductInput{Title: "ok", Status: "live"})
	s.Require().Error(err)
	_, isRejection := rules.AsRejection(err)
	s.False(isRejection)
	s.Empty(s.audit.actions())
}

func (s *ProductServiceTestSuite) TestUnknownDetectionLabelsAreRejected() {
	ctx := context.Background()

	in := s.defensibleInput()
	in.Detections = []models.Detection{
		{Compound: "Benzene", MatchProbability: floatPtr(95), DisplayMode: "PRIMARY", ConfirmationLevel: models.ConfirmationLevelScreening},
	}
	_, err := s.service.CreateProduct(ctx, s.actor, in)
	s.Require().Error(err)
	_, isRejection := rules.AsRejection(err)
	s.False(isRejection)

	errs := utils.GetValidationErrors(err)
	s.Require().Len(errs, 1)
	s.Equal("display_mode", errs[0].Tag)

	in.Detections[0].DisplayMode = ""
	in.Detections[0].DetectionType = "trace"
	_, err = s.service.CreateProduct(ctx, s.actor, in)
	errs = utils.GetValidationErrors(err)
	s.Require().Len(errs, 1)
	s.Equal("detection_type", errs[0].Tag)

	s.Empty(s.audit.actions())

	// With the label left to the classifier, screening-only evidence on a
	// primary detection is caught by the legal-defense gate.
	in.Detections[0].DetectionType = ""
	_, err = s.service.CreateProduct(ctx, s.actor, in)
	rej, isRejection := rules.AsRejection(err)
	s.Require().True(isRejection)
	s.Equal(rules.StageLegalDefense, rej.Stage)
	s.Contains(rej.Message, "Benzene")
}

func (s *ProductServiceTestSuite) TestValidateProductIsADryRun() {
	ctx := context.Background()

	in := s.defensibleInput()
	in.PurchaseReceipt = ""
	report, err := s.service.ValidateProduct(ctx, s.actor, nil, in)
	s.Require().NoError(err)

	s.False(report.CanSave)
	s.Equal(rules.StageLegalDefense, report.Stage)
	s.Equal([]string{rules.ErrPurchaseProof}, report.Errors)
	s.Empty(s.audit.actions())
	s.Empty(s.jobs.names())

	report, err = s.service.ValidateProduct(ctx, s.actor, nil, s.defensibleInput())
	s.Require().NoError(err)
	s.True(report.CanSave)
	s.Empty(report.Errors)
}

func (s *ProductServiceTestSuite) TestAttachEvidenceRunsSaveRules() {
	ctx := context.Background()

	in := s.defensibleInput()
	in.Status = models.ProductStatusTesting
	in.PurchaseReceipt = ""
	p, err := s.service.CreateProduct(ctx, s.actor, in)
	s.Require().NoError(err)

	updated, err := s.service.AttachEvidence(ctx, s.actor, p.ID, EvidenceReceipt, "evidence/receipts/abc.pdf")
	s.Require().NoError(err)
	s.Equal("evidence/receipts/abc.pdf", updated.PurchaseReceipt)
	s.Equal("evidence/receipts/abc.pdf", s.products.stored(p.ID).PurchaseReceipt)

	_, err = s.service.AttachEvidence(ctx, s.actor, p.ID, EvidenceKind("selfie"), "x.png")
	s.True(errors.Is(err, ErrUnknownEvidenceKind))
}

func (s *ProductServiceTestSuite) TestDeleteProductAuditsAndRecounts() {
	ctx := context.Background()

	in := s.defensibleInput()
	in.Status = models.ProductStatusDraft
	p, err := s.service.CreateProduct(ctx, s.actor, in)
	s.Require().NoError(err)
	s.audit.reset()
	s.jobs.reset()

	s.Require().NoError(s.service.DeleteProduct(ctx, s.actor, p.ID))
	s.Equal([]string{models.AuditActionDelete}, s.audit.actions())
	s.ElementsMatch([]string{"recount_category", "recount_brand"}, s.jobs.names())

	s.True(errors.Is(s.service.DeleteProduct(ctx, s.actor, p.ID), ErrProductNotFound))
}

func TestProductServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ProductServiceTestSuite))
}
