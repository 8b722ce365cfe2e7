// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/repository"
	"github.com/javajoker/verdict-cms/internal/rules"
	"github.com/javajoker/verdict-cms/internal/utils"
)

var (
	ErrEmailTaken        = errors.New("user with this email already exists")
	ErrCannotDisableSelf = errors.New("you cannot deactivate your own account")
)

type UserService struct {
	users repository.UserRepository
	audit AuditRecorder
	log   logrus.FieldLogger
}

type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Name     string          `json:"name" validate:"required,min=2,max=100"`
	Password string          `json:"password" validate:"required,min=12"`
	Role     models.UserRole `json:"role" validate:"required,oneof=admin editor reviewer"`
}

type UpdateUserRequest struct {
	Name   string          `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Role   models.UserRole `json:"role,omitempty" validate:"omitempty,oneof=admin editor reviewer"`
	Active *bool           `json:"active,omitempty"`
}

func NewUserService(users repository.UserRepository, audit AuditRecorder, log logrus.FieldLogger) *UserService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &UserService{users: users, audit: audit, log: log}
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, filter repository.UserFilter) ([]models.User, int64, error) {
	return s.users.List(ctx, filter)
}

func (s *UserService) CreateUser(ctx context.Context, actor *rules.Actor, req *CreateUserRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	user := &models.User{
		Email:  email,
		Name:   req.Name,
		Role:   req.Role,
		Active: true,
	}
	user.ID = uuid.New()
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.record(ctx, actor, models.AuditActionCreate, user, nil, userState(user))
	return user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, actor *rules.Actor, id uuid.UUID, req *UpdateUserRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	before := userState(user)

	if req.Active != nil && !*req.Active && actor != nil && actor.ID == user.ID {
		return nil, ErrCannotDisableSelf
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.record(ctx, actor, models.AuditActionUpdate, user, before, userState(user))
	return user, nil
}

func (s *UserService) record(ctx context.Context, actor *rules.Actor, action string, u *models.User, before, after map[string]interface{}) {
	if s.audit == nil {
		return
	}
	id := u.ID
	e := rules.AuditEvent{
		Action:           action,
		Source:           models.AuditSourceSystem,
		TargetCollection: "users",
		TargetID:         &id,
		TargetName:       u.Email,
		Before:           before,
		After:            after,
		At:               time.Now(),
	}
	if actor != nil {
		actorID := actor.ID
		e.ActorID = &actorID
		e.Source = models.AuditSourceUser
	}
	s.audit.Record(ctx, []rules.AuditEvent{e})
}

func userState(u *models.User) map[string]interface{} {
	return map[string]interface{}{
		"name":   u.Name,
		"role":   string(u.Role),
		"active": u.Active,
	}
}
