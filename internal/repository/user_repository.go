// internal/repository/user_repository.go
package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/utils"
)

type GormUserRepository struct {
	db *gorm.DB
}

var _ UserRepository = (*GormUserRepository)(nil)

func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormUserRepository) Create(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *GormUserRepository) Update(ctx context.Context, u *models.User) error {
	res := r.db.WithContext(ctx).Save(u)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormUserRepository) List(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if f.Role != nil {
		query = query.Where("role = ?", *f.Role)
	}
	if f.Active != nil {
		query = query.Where("active = ?", *f.Active)
	}
	if f.Search != "" {
		term := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	query = utils.ApplySort(query, f.PaginationParams, []string{"created_at", "email", "name", "last_login_at"})
	if err := utils.ApplyPagination(query, f.PaginationParams).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
