package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"letterdesk/internal/cache"
	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/model"
	"letterdesk/internal/policy"
	"letterdesk/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// CreateUserInput is an admin request to add an account.
type CreateUserInput struct {
	Username string
	FullName string
	Email    string
	Password string
	Role     model.Role
}

// UpdateUserInput changes an account. Empty fields are left untouched.
type UpdateUserInput struct {
	FullName string
	Email    string
	Password string
	Role     model.Role
}

// UserService is admin user management. Every method checks OpManageUsers
// except GetUser, which any authenticated caller uses for their own profile.
type UserService interface {
	CreateUser(ctx context.Context, actor policy.Actor, in CreateUserInput) (*model.User, error)
	UpdateUser(ctx context.Context, actor policy.Actor, id uint, in UpdateUserInput) (*model.User, error)
	DeleteUser(ctx context.Context, actor policy.Actor, id uint) error
	GetUser(ctx context.Context, id uint) (*model.User, error)
	ListUsers(ctx context.Context, actor policy.Actor) ([]model.User, error)
}

type userService struct {
	repo   repository.UserRepository
	cache  *cache.Client
	logger *slog.Logger
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client, opts ...Option) UserService {
	o := buildOptions(opts)
	return &userService{repo: repo, cache: cache, logger: o.logger}
}

func (s *userService) cacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

func (s *userService) CreateUser(ctx context.Context, actor policy.Actor, in CreateUserInput) (*model.User, error) {
	if !policy.Can(actor, nil, policy.OpManageUsers) {
		return nil, apperrors.ErrForbidden
	}
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", apperrors.ErrValidation)
	}
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, in.Role)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:     in.Username,
		FullName:     strings.TrimSpace(in.FullName),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Role:         in.Role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user created", "user_id", user.ID, "username", user.Username, "role", user.Role, "by", actor.ID)
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor policy.Actor, id uint, in UpdateUserInput) (*model.User, error) {
	if !policy.Can(actor, nil, policy.OpManageUsers) {
		return nil, apperrors.ErrForbidden
	}
	if in.Role != "" && !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, in.Role)
	}
	if id == actor.ID && in.Role != "" && in.Role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: cannot remove your own admin role", apperrors.ErrValidation)
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(in.FullName); v != "" {
		user.FullName = v
	}
	if v := strings.TrimSpace(in.Email); v != "" {
		user.Email = v
	}
	if in.Role != "" {
		user.Role = in.Role
	}
	if in.Password != "" {
		hash, err := HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	s.logger.InfoContext(ctx, "user updated", "user_id", id, "by", actor.ID)
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, actor policy.Actor, id uint) error {
	if !policy.Can(actor, nil, policy.OpManageUsers) {
		return apperrors.ErrForbidden
	}
	if id == actor.ID {
		return fmt.Errorf("%w: cannot delete your own account", apperrors.ErrValidation)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	s.logger.InfoContext(ctx, "user deleted", "user_id", id, "by", actor.ID)
	return nil
}

func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(user); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, userCacheTTL)
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, actor policy.Actor) ([]model.User, error) {
	if !policy.Can(actor, nil, policy.OpManageUsers) {
		return nil, apperrors.ErrForbidden
	}
	return s.repo.List(ctx)
}
