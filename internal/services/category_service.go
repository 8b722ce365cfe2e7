// internal/services/category_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/verdict-cms/internal/metrics"
	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/repository"
	"github.com/javajoker/verdict-cms/internal/rules"
	"github.com/javajoker/verdict-cms/internal/utils"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrBrandNotFound    = errors.New("brand not found")
)

type CategoryInput struct {
	Name                 string   `json:"name" validate:"required,min=2,max=100"`
	Slug                 string   `json:"slug,omitempty" validate:"omitempty,slug,max=100"`
	Description          string   `json:"description,omitempty"`
	AllowedVerdicts      []string `json:"allowed_verdicts,omitempty" validate:"dive,verdict"`
	ReviewVerdicts       []string `json:"review_verdicts,omitempty" validate:"dive,verdict"`
	RequiresOverrideNote bool     `json:"requires_override_note"`
}

type BrandInput struct {
	Name    string `json:"name" validate:"required,min=2,max=255"`
	Slug    string `json:"slug,omitempty" validate:"omitempty,slug,max=255"`
	Website string `json:"website,omitempty" validate:"omitempty,url"`
}

// CategoryService manages categories and brands and serves category
// policies to the conflict detector.
type CategoryService struct {
	categories repository.CategoryRepository
	brands     repository.BrandRepository
	audit      AuditRecorder
	log        logrus.FieldLogger
}

var (
	_ rules.CategoryRuleSource = (*CategoryService)(nil)
	_ AggregateCounter         = (*CategoryService)(nil)
)

func NewCategoryService(categories repository.CategoryRepository, brands repository.BrandRepository, audit AuditRecorder, log logrus.FieldLogger) *CategoryService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CategoryService{categories: categories, brands: brands, audit: audit, log: log}
}

// PolicyFor resolves a category id to its verdict policy.
func (s *CategoryService) PolicyFor(ctx context.Context, id uuid.UUID) (*rules.CategoryPolicy, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		metrics.CategoryLookupFailures.Inc()
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
		}
		return nil, err
	}
	return rules.PolicyFromCategory(category), nil
}

func (s *CategoryService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCategoryNotFound
	}
	return category, err
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

func (s *CategoryService) CreateCategory(ctx context.Context, actor *rules.Actor, in *CategoryInput) (*models.Category, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	category := &models.Category{}
	in.applyTo(category)
	category.ID = uuid.New()

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.recordCategory(ctx, actor, models.AuditActionCreate, nil, category)
	return category, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, actor *rules.Actor, id uuid.UUID, in *CategoryInput) (*models.Category, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	existing, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	before := categoryPolicyState(existing)

	updated := *existing
	in.applyTo(&updated)
	if err := s.categories.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	s.recordCategory(ctx, actor, models.AuditActionUpdate, before, &updated)
	return &updated, nil
}

func (in *CategoryInput) applyTo(c *models.Category) {
	c.Name = in.Name
	c.Slug = in.Slug
	if c.Slug == "" {
		c.Slug = utils.Slugify(in.Name)
	}
	c.Description = in.Description
	c.AllowedVerdicts = in.AllowedVerdicts
	c.ReviewVerdicts = in.ReviewVerdicts
	c.RequiresOverrideNote = in.RequiresOverrideNote
}

func (s *CategoryService) recordCategory(ctx context.Context, actor *rules.Actor, action string, before map[string]interface{}, c *models.Category) {
	if s.audit == nil {
		return
	}
	id := c.ID
	e := rules.AuditEvent{
		Action:           action,
		Source:           models.AuditSourceSystem,
		TargetCollection: "categories",
		TargetID:         &id,
		TargetName:       c.Name,
		Before:           before,
		After:            categoryPolicyState(c),
		At:               time.Now(),
	}
	if actor != nil {
		actorID := actor.ID
		e.ActorID = &actorID
		e.Source = models.AuditSourceUser
	}
	s.audit.Record(ctx, []rules.AuditEvent{e})
}

func categoryPolicyState(c *models.Category) map[string]interface{} {
	return map[string]interface{}{
		"allowed_verdicts":       []string(c.AllowedVerdicts),
		"review_verdicts":        []string(c.ReviewVerdicts),
		"requires_override_note": c.RequiresOverrideNote,
	}
}

func (s *CategoryService) RecountCategory(ctx context.Context, id uuid.UUID) error {
	return s.categories.RecountProducts(ctx, id)
}

func (s *CategoryService) GetBrand(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	brand, err := s.brands.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBrandNotFound
	}
	return brand, err
}

func (s *CategoryService) ListBrands(ctx context.Context, params utils.PaginationParams) ([]models.Brand, int64, error) {
	return s.brands.List(ctx, params)
}

func (s *CategoryService) CreateBrand(ctx context.Context, in *BrandInput) (*models.Brand, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	brand := &models.Brand{
		Name:    in.Name,
		Slug:    in.Slug,
		Website: in.Website,
	}
	brand.ID = uuid.New()
	if brand.Slug == "" {
		brand.Slug = utils.Slugify(in.Name)
	}

	if err := s.brands.Create(ctx, brand); err != nil {
		return nil, fmt.Errorf("failed to create brand: %w", err)
	}
	return brand, nil
}

func (s *CategoryService) RecountBrand(ctx context.Context, id uuid.UUID) error {
	return s.brands.RecountProducts(ctx, id)
}
