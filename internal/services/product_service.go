// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/verdict-cms/internal/config"
	"github.com/javajoker/verdict-cms/internal/jobs"
	"github.com/javajoker/verdict-cms/internal/metrics"
	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/repository"
	"github.com/javajoker/verdict-cms/internal/rules"
	"github.com/javajoker/verdict-cms/internal/utils"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrSlugTaken       = errors.New("slug already in use")
)

// AuditRecorder persists audit events. Failures are the recorder's concern.
type AuditRecorder interface {
	Record(ctx context.Context, events []rules.AuditEvent)
}

// JobScheduler runs a side effect later, outside the request.
type JobScheduler interface {
	After(name string, delay time.Duration, fn jobs.Func)
}

type VersionRecorder interface {
	Snapshot(ctx context.Context, p *models.Product, createdBy *uuid.UUID) (*models.ProductVersion, error)
}

type ProductNotifier interface {
	PublishBlocked(ctx context.Context, p *models.Product, rej *rules.Rejection, actor *rules.Actor) error
	FlaggedPublished(ctx context.Context, p *models.Product, actor *rules.Actor) error
}

type AggregateCounter interface {
	RecountCategory(ctx context.Context, id uuid.UUID) error
	RecountBrand(ctx context.Context, id uuid.UUID) error
}

// ProductInput is the editable part of a product. Derived fields (conflicts,
// override attribution, publication time) are never taken from clients.
type ProductInput struct {
	Title      string     `json:"title" validate:"required,min=3,max=255"`
	Slug       string     `json:"slug,omitempty" validate:"omitempty,slug,max=255"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	BrandID    *uuid.UUID `json:"brand_id,omitempty"`
	Summary    string     `json:"summary,omitempty"`
	ReviewBody string     `json:"review_body,omitempty"`
	Pros       []string   `json:"pros,omitempty"`
	Cons       []string   `json:"cons,omitempty"`

	Status                models.ProductStatus `json:"status" validate:"required,product_status"`
	Verdict               models.Verdict       `json:"verdict,omitempty" validate:"omitempty,verdict"`
	AutoVerdict           models.Verdict       `json:"auto_verdict,omitempty" validate:"omitempty,verdict"`
	VerdictOverride       bool                 `json:"verdict_override"`
	VerdictOverrideReason string               `json:"verdict_override_reason,omitempty"`

	PackageText string             `json:"package_text,omitempty"`
	Detections  []models.Detection `json:"detections,omitempty" validate:"dive"`

	RetailerType            models.RetailerType            `json:"retailer_type,omitempty" validate:"omitempty,retailer_type"`
	PurchaseReceipt         string                         `json:"purchase_receipt,omitempty"`
	PurchasePhoto           string                         `json:"purchase_photo,omitempty"`
	SplitSample             models.SplitSample             `json:"split_sample"`
	SelectionRationale      string                         `json:"selection_rationale,omitempty"`
	ExpertReview            models.ExpertReview            `json:"expert_review"`
	MethodValidationPackage string                         `json:"method_validation_package,omitempty"`
	ExternalLabVerification models.ExternalLabVerification `json:"external_lab_verification"`
}

// applyTo copies the input onto p and returns it.
func (in *ProductInput) applyTo(p *models.Product) *models.Product {
	p.Title = in.Title
	if in.Slug != "" {
		p.Slug = in.Slug
	} else if p.Slug == "" {
		p.Slug = utils.Slugify(in.Title)
	}
	p.CategoryID = in.CategoryID
	p.BrandID = in.BrandID
	p.Summary = in.Summary
	p.ReviewBody = in.ReviewBody
	p.Pros = in.Pros
	p.Cons = in.Cons
	p.Status = in.Status
	p.Verdict = in.Verdict
	p.AutoVerdict = in.AutoVerdict
	p.VerdictOverride = in.VerdictOverride
	p.VerdictOverrideReason = in.VerdictOverrideReason
	p.PackageText = in.PackageText
	p.Detections = models.Detections(in.Detections)
	p.RetailerType = in.RetailerType
	p.PurchaseReceipt = in.PurchaseReceipt
	p.PurchasePhoto = in.PurchasePhoto
	p.SplitSample = in.SplitSample
	p.SelectionRationale = in.SelectionRationale
	p.ExpertReview = in.ExpertReview
	p.MethodValidationPackage = in.MethodValidationPackage
	p.ExternalLabVerification = in.ExternalLabVerification

	// Relations are resolved again by id; a stale preload must not leak into
	// the rule checks.
	p.Category = nil
	p.Brand = nil
	return p
}

// ValidationReport is the result of a dry run of the save rules.
type ValidationReport struct {
	CanSave   bool                  `json:"can_save"`
	Stage     string                `json:"stage,omitempty"`
	Errors    []string              `json:"errors"`
	Message   string                `json:"message,omitempty"`
	Conflicts *rules.ConflictResult `json:"conflicts,omitempty"`
	Product   *models.Product       `json:"product,omitempty"`
}

type ProductServiceDeps struct {
	Products   repository.ProductRepository
	Pipeline   *rules.Pipeline
	Audit      AuditRecorder
	Jobs       JobScheduler
	Versions   VersionRecorder
	Notifier   ProductNotifier
	Aggregates AggregateCounter
	Delays     config.JobsConfig
	Log        logrus.FieldLogger
	Clock      func() time.Time
}

type ProductService struct {
	products   repository.ProductRepository
	pipeline   *rules.Pipeline
	audit      AuditRecorder
	jobs       JobScheduler
	versions   VersionRecorder
	notifier   ProductNotifier
	aggregates AggregateCounter
	delays     config.JobsConfig
	log        logrus.FieldLogger
	now        func() time.Time
}

func NewProductService(deps ProductServiceDeps) *ProductService {
	s := &ProductService{
		products:   deps.Products,
		pipeline:   deps.Pipeline,
		audit:      deps.Audit,
		jobs:       deps.Jobs,
		versions:   deps.Versions,
		notifier:   deps.Notifier,
		aggregates: deps.Aggregates,
		delays:     deps.Delays,
		log:        deps.Log,
		now:        deps.Clock,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.pipeline == nil {
		s.pipeline = rules.NewPipeline(nil, nil, s.log)
	}
	return s
}

func (s *ProductService) CreateProduct(ctx context.Context, actor *rules.Actor, in *ProductInput) (*models.Product, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	candidate := in.applyTo(&models.Product{})
	candidate.ID = uuid.New()
	if candidate.Slug == "" {
		candidate.Slug = candidate.ID.String()
	}
	if actor != nil {
		id := actor.ID
		candidate.CreatedBy = &id
	}

	if err := s.checkSlug(ctx, candidate); err != nil {
		return nil, err
	}

	return s.save(ctx, actor, nil, candidate)
}

func (s *ProductService) UpdateProduct(ctx context.Context, actor *rules.Actor, id uuid.UUID, in *ProductInput) (*models.Product, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	previous, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	candidate := in.applyTo(previous.Clone())
	if err := s.checkSlug(ctx, candidate); err != nil {
		return nil, err
	}

	return s.save(ctx, actor, previous, candidate)
}

// ValidateProduct runs every save rule without persisting anything or
// writing audit entries. With a nil input the stored product is checked as is.
func (s *ProductService) ValidateProduct(ctx context.Context, actor *rules.Actor, id *uuid.UUID, in *ProductInput) (*ValidationReport, error) {
	var previous *models.Product
	if id != nil {
		p, err := s.GetProduct(ctx, *id)
		if err != nil {
			return nil, err
		}
		previous = p
	}

	var candidate *models.Product
	switch {
	case in != nil:
		if err := utils.ValidateStruct(in); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}
		base := &models.Product{}
		if previous != nil {
			base = previous.Clone()
		}
		candidate = in.applyTo(base)
	case previous != nil:
		candidate = previous.Clone()
		candidate.Category, candidate.Brand = nil, nil
	default:
		return nil, errors.New("nothing to validate")
	}

	out, err := s.pipeline.Run(ctx, rules.SaveContext{Actor: actor, Previous: previous, Now: s.now()}, candidate)
	if err != nil {
		rej, ok := rules.AsRejection(err)
		if !ok {
			return nil, err
		}
		return &ValidationReport{
			Stage:     rej.Stage,
			Errors:    rej.Errors,
			Message:   rej.Message,
			Conflicts: rej.Conflicts,
		}, nil
	}

	return &ValidationReport{
		CanSave:   true,
		Errors:    []string{},
		Conflicts: &out.Conflicts,
		Product:   out.Product,
	}, nil
}

// AttachEvidence stores an uploaded evidence reference on the product. The
// change goes through the same save rules as any other edit.
func (s *ProductService) AttachEvidence(ctx context.Context, actor *rules.Actor, id uuid.UUID, kind EvidenceKind, ref string) (*models.Product, error) {
	previous, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	candidate := previous.Clone()
	candidate.Category, candidate.Brand = nil, nil
	switch kind {
	case EvidenceReceipt:
		candidate.PurchaseReceipt = ref
	case EvidencePhoto:
		candidate.PurchasePhoto = ref
	case EvidenceMethodValidation:
		candidate.MethodValidationPackage = ref
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvidenceKind, kind)
	}

	return s.save(ctx, actor, previous, candidate)
}

// EvidenceRef returns the stored evidence reference of the given kind.
func EvidenceRef(p *models.Product, kind EvidenceKind) (string, error) {
	switch kind {
	case EvidenceReceipt:
		return p.PurchaseReceipt, nil
	case EvidencePhoto:
		return p.PurchasePhoto, nil
	case EvidenceMethodValidation:
		return p.MethodValidationPackage, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownEvidenceKind, kind)
}

func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return product, nil
}

func (s *ProductService) SearchProducts(ctx context.Context, filter repository.ProductFilter) ([]models.Product, int64, error) {
	return s.products.Search(ctx, filter)
}

func (s *ProductService) DeleteProduct(ctx context.Context, actor *rules.Actor, id uuid.UUID) error {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	e := s.crudEvent(actor, models.AuditActionDelete, product)
	e.Before = productState(product)
	s.record(ctx, []rules.AuditEvent{e})

	s.scheduleRecounts(product, nil)
	return nil
}

// save runs the pipeline and persists the outcome. A rejected candidate
// leaves the stored product untouched.
func (s *ProductService) save(ctx context.Context, actor *rules.Actor, previous, candidate *models.Product) (*models.Product, error) {
	operation := models.AuditActionUpdate
	if previous == nil {
		operation = models.AuditActionCreate
	}

	sc := rules.SaveContext{Actor: actor, Previous: previous, Now: s.now()}
	out, err := s.pipeline.Run(ctx, sc, candidate)
	if err != nil {
		if rej, ok := rules.AsRejection(err); ok {
			s.onRejected(ctx, actor, candidate, rej)
		}
		return nil, err
	}

	product := out.Product
	if previous == nil {
		err = s.products.Create(ctx, product)
	} else {
		err = s.products.Update(ctx, product)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to %s product: %w", operation, err)
	}

	metrics.ProductSaves.WithLabelValues(operation).Inc()
	countConflicts(out.Conflicts.Conflicts)

	e := s.crudEvent(actor, operation, product)
	if previous != nil {
		e.Before = productState(previous)
	}
	e.After = productState(product)
	events := append([]rules.AuditEvent{e}, out.Events...)
	s.record(ctx, events)

	s.log.WithFields(logrus.Fields{
		"product_id": product.ID.String(),
		"operation":  operation,
		"status":     product.Status,
		"verdict":    product.Verdict,
	}).Info("Product saved")

	s.afterSave(actor, previous, product, out.Events)
	return product, nil
}

func (s *ProductService) onRejected(ctx context.Context, actor *rules.Actor, candidate *models.Product, rej *rules.Rejection) {
	metrics.Rejections.WithLabelValues(rej.Stage).Inc()
	if rej.Conflicts != nil {
		countConflicts(rej.Conflicts.Conflicts)
	}
	s.record(ctx, rej.Events)

	if s.notifier == nil || !hasAction(rej.Events, models.AuditActionPublishBlocked) {
		return
	}
	blocked := candidate.Clone()
	s.schedule("notify_publish_blocked", s.delays.NotificationDelay, func(ctx context.Context) error {
		return s.notifier.PublishBlocked(ctx, blocked, rej, actor)
	})
}

func (s *ProductService) afterSave(actor *rules.Actor, previous, product *models.Product, events []rules.AuditEvent) {
	snapshot := product.Clone()

	if s.versions != nil && product.Status == models.ProductStatusPublished {
		var by *uuid.UUID
		if actor != nil {
			id := actor.ID
			by = &id
		}
		s.schedule("version_snapshot", s.delays.SnapshotDelay, func(ctx context.Context) error {
			_, err := s.versions.Snapshot(ctx, snapshot, by)
			return err
		})
	}

	if s.notifier != nil && product.Verdict == models.VerdictFlagged && hasAction(events, models.AuditActionPublished) {
		s.schedule("notify_flagged_published", s.delays.NotificationDelay, func(ctx context.Context) error {
			return s.notifier.FlaggedPublished(ctx, snapshot, actor)
		})
	}

	s.scheduleRecounts(previous, product)
}

// scheduleRecounts refreshes the aggregates of every category and brand the
// product belonged to before or after the change.
func (s *ProductService) scheduleRecounts(before, after *models.Product) {
	if s.aggregates == nil {
		return
	}

	categories := map[uuid.UUID]struct{}{}
	brands := map[uuid.UUID]struct{}{}
	for _, p := range []*models.Product{before, after} {
		if p == nil {
			continue
		}
		if p.CategoryID != nil {
			categories[*p.CategoryID] = struct{}{}
		}
		if p.BrandID != nil {
			brands[*p.BrandID] = struct{}{}
		}
	}

	for id := range categories {
		id := id
		s.schedule("recount_category", s.delays.RecountDelay, func(ctx context.Context) error {
			return s.aggregates.RecountCategory(ctx, id)
		})
	}
	for id := range brands {
		id := id
		s.schedule("recount_brand", s.delays.RecountDelay, func(ctx context.Context) error {
			return s.aggregates.RecountBrand(ctx, id)
		})
	}
}

func (s *ProductService) schedule(name string, delay time.Duration, fn jobs.Func) {
	if s.jobs == nil {
		return
	}
	s.jobs.After(name, delay, fn)
}

func (s *ProductService) record(ctx context.Context, events []rules.AuditEvent) {
	if s.audit == nil || len(events) == 0 {
		return
	}
	s.audit.Record(ctx, events)
}

func (s *ProductService) checkSlug(ctx context.Context, p *models.Product) error {
	if p.Slug == "" {
		return nil
	}
	taken, err := s.products.SlugTaken(ctx, p.Slug, p.ID)
	if err != nil {
		return fmt.Errorf("failed to check slug: %w", err)
	}
	if taken {
		return fmt.Errorf("%w: %s", ErrSlugTaken, p.Slug)
	}
	return nil
}

func (s *ProductService) crudEvent(actor *rules.Actor, action string, p *models.Product) rules.AuditEvent {
	id := p.ID
	e := rules.AuditEvent{
		Action:           action,
		Source:           models.AuditSourceSystem,
		TargetCollection: "products",
		TargetID:         &id,
		TargetName:       p.Title,
		At:               s.now(),
	}
	if actor != nil {
		actorID := actor.ID
		e.ActorID = &actorID
		e.Source = models.AuditSourceUser
	}
	return e
}

func productState(p *models.Product) map[string]interface{} {
	return map[string]interface{}{
		"title":            p.Title,
		"status":           string(p.Status),
		"verdict":          string(p.Verdict),
		"verdict_override": p.VerdictOverride,
	}
}

func hasAction(events []rules.AuditEvent, action string) bool {
	for _, e := range events {
		if e.Action == action {
			return true
		}
	}
	return false
}

func countConflicts(conflicts []models.Conflict) {
	for _, c := range conflicts {
		metrics.Conflicts.WithLabelValues(string(c.Severity)).Inc()
	}
}
