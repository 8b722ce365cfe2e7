// internal/repository/repository.go

// Package repository holds the gorm-backed persistence for products and the
// records around them. Services depend on the interfaces declared here so
// they can be exercised without a database.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/utils"
)

// ErrNotFound is returned when a lookup by id matches no live row.
var ErrNotFound = errors.New("record not found")

type ProductFilter struct {
	utils.PaginationParams
	Status       *models.ProductStatus
	Verdict      *models.Verdict
	CategoryID   *uuid.UUID
	BrandID      *uuid.UUID
	HasConflicts *bool
}

type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, f ProductFilter) ([]models.Product, int64, error)
	SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error)
}

type CategoryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Create(ctx context.Context, c *models.Category) error
	Update(ctx context.Context, c *models.Category) error
	RecountProducts(ctx context.Context, id uuid.UUID) error
}

type BrandRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Brand, error)
	List(ctx context.Context, params utils.PaginationParams) ([]models.Brand, int64, error)
	Create(ctx context.Context, b *models.Brand) error
	RecountProducts(ctx context.Context, id uuid.UUID) error
}

type AuditFilter struct {
	utils.PaginationParams
	Action           string
	TargetCollection string
	TargetID         *uuid.UUID
	UserID           *uuid.UUID
	Since            *time.Time
}

type AuditRepository interface {
	Create(ctx context.Context, logs []models.AuditLog) error
	List(ctx context.Context, f AuditFilter) ([]models.AuditLog, int64, error)
}

type VersionRepository interface {
	// Append runs build with the latest version of the product (nil when none)
	// and stores the version it returns, serialised per product.
	Append(ctx context.Context, productID uuid.UUID, build func(latest *models.ProductVersion) (*models.ProductVersion, error)) (*models.ProductVersion, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductVersion, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.AdminNotification) error
	ListForRecipient(ctx context.Context, recipientID uuid.UUID, params utils.PaginationParams) ([]models.AdminNotification, int64, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) error
}

type UserFilter struct {
	utils.PaginationParams
	Role   *models.UserRole
	Active *bool
}

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	List(ctx context.Context, f UserFilter) ([]models.User, int64, error)
}

// StatsRepository answers the aggregate queries behind the dashboard.
type StatsRepository interface {
	CountProductsBy(ctx context.Context, column string) (map[string]int64, error)
	CountOpenConflicts(ctx context.Context) (int64, error)
	CountAuditActions(ctx context.Context, action string, since time.Time) (int64, error)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
