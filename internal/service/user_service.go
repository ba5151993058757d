package service

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/packing-audit/internal/errors"
	"github.com/packing-audit/internal/logging"
	"github.com/packing-audit/internal/models"
	"github.com/packing-audit/internal/storage"
)

const minPasswordLength = 6

// UserStore persists user accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	ExistsByNameOrEmail(ctx context.Context, name, email, excludeID string) (bool, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts storage.ListOptions) ([]*models.User, int, error)
}

// RoleStore reads roles
type RoleStore interface {
	GetByID(ctx context.Context, id string) (*models.Role, error)
	List(ctx context.Context) ([]*models.Role, error)
}

// PasswordHasher hashes account passwords
type PasswordHasher interface {
	Hash(secret string) (string, error)
}

// CreateUserInput is the payload for creating a user
type CreateUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   string `json:"role_id"`
}

// UpdateUserInput is a partial user update
type UpdateUserInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	RoleID   *string `json:"role_id"`
}

// UserService manages user accounts
type UserService struct {
	users  UserStore
	roles  RoleStore
	hasher PasswordHasher
}

// NewUserService creates a user service
func NewUserService(users UserStore, roles RoleStore, hasher PasswordHasher) *UserService {
	return &UserService{users: users, roles: roles, hasher: hasher}
}

// List returns a page of users
func (s *UserService) List(ctx context.Context, page PageRequest) (*Page[*models.User], error) {
	users, total, err := s.users.List(ctx, page.ListOptions())
	if err != nil {
		return nil, apperrors.NewDatabaseError("list users", err)
	}
	return NewPage(users, page, total), nil
}

// GetByID returns one user
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFoundError(MsgUserNotFound)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(MsgUserNotFound)
		}
		return nil, apperrors.NewDatabaseError("get user", err)
	}
	return user, nil
}

// Create registers a user with a hashed password
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	v := fieldErrors{}
	v.require("name", in.Name)
	v.email("email", in.Email)
	v.minLen("password", in.Password, minPasswordLength)
	v.id("role_id", in.RoleID)
	if err := v.err(); err != nil {
		return nil, err
	}

	if err := s.checkRole(ctx, in.RoleID); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, in.Name, in.Email, ""); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(MsgInternalServerError, err)
	}

	user := &models.User{Name: in.Name, Email: in.Email, Password: hash, RoleID: in.RoleID}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperrors.NewConflictError(apperrors.CodeAlreadyExists, MsgUserExists)
		}
		return nil, apperrors.NewDatabaseError("create user", err)
	}

	logging.FromContext(ctx).WithField("userId", user.ID).Info("User created")
	return s.GetByID(ctx, user.ID)
}

// Update applies the fields present in in
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	v := fieldErrors{}
	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
		v.require("name", user.Name)
	}
	if in.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*in.Email))
		v.email("email", user.Email)
	}
	if in.Password != nil {
		v.minLen("password", *in.Password, minPasswordLength)
	}
	if in.RoleID != nil {
		user.RoleID = *in.RoleID
		v.id("role_id", user.RoleID)
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	if in.RoleID != nil {
		if err := s.checkRole(ctx, user.RoleID); err != nil {
			return nil, err
		}
	}
	if in.Name != nil || in.Email != nil {
		if err := s.checkUnique(ctx, user.Name, user.Email, user.ID); err != nil {
			return nil, err
		}
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, apperrors.NewInternalError(MsgInternalServerError, err)
		}
		user.Password = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, apperrors.NewNotFoundError(MsgUserNotFound)
		case errors.Is(err, storage.ErrDuplicate):
			return nil, apperrors.NewConflictError(apperrors.CodeAlreadyExists, MsgUserExists)
		default:
			return nil, apperrors.NewDatabaseError("update user", err)
		}
	}
	return s.GetByID(ctx, user.ID)
}

// Delete removes a user
func (s *UserService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return apperrors.NewNotFoundError(MsgUserNotFound)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return apperrors.NewNotFoundError(MsgUserNotFound)
		case errors.Is(err, storage.ErrInUse):
			return apperrors.NewConflictError(apperrors.CodeInvalidState, "User has recorded packing items")
		default:
			return apperrors.NewDatabaseError("delete user", err)
		}
	}
	logging.FromContext(ctx).WithField("userId", id).Info("User deleted")
	return nil
}

func (s *UserService) checkRole(ctx context.Context, roleID string) error {
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError(MsgRoleNotFound)
		}
		return apperrors.NewDatabaseError("get role", err)
	}
	return nil
}

func (s *UserService) checkUnique(ctx context.Context, name, email, excludeID string) error {
	exists, err := s.users.ExistsByNameOrEmail(ctx, name, email, excludeID)
	if err != nil {
		return apperrors.NewDatabaseError("check user", err)
	}
	if exists {
		return apperrors.NewConflictError(apperrors.CodeAlreadyExists, MsgUserExists)
	}
	return nil
}

// RoleService reads roles
type RoleService struct {
	roles RoleStore
}

// NewRoleService creates a role service
func NewRoleService(roles RoleStore) *RoleService {
	return &RoleService{roles: roles}
}

// List returns every role
func (s *RoleService) List(ctx context.Context) ([]*models.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list roles", err)
	}
	if roles == nil {
		roles = []*models.Role{}
	}
	return roles, nil
}

// GetByID returns one role
func (s *RoleService) GetByID(ctx context.Context, id string) (*models.Role, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFoundError(MsgRoleNotFound)
	}
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(MsgRoleNotFound)
		}
		return nil, apperrors.NewDatabaseError("get role", err)
	}
	return role, nil
}
