package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/nlsantiago/sis-api/internal/models"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
)

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

// CreateUserRequest describes the account creation payload.
type CreateUserRequest struct {
	Email     string          `json:"email" validate:"required,email"`
	Password  string          `json:"password" validate:"required,min=8"`
	FirstName string          `json:"first_name" validate:"required"`
	LastName  string          `json:"last_name" validate:"required"`
	Role      models.UserRole `json:"role" validate:"required"`
}

// UpdateUserRequest describes the account update payload.
type UpdateUserRequest struct {
	FirstName string          `json:"first_name" validate:"required"`
	LastName  string          `json:"last_name" validate:"required"`
	Role      models.UserRole `json:"role" validate:"required"`
	Status    string          `json:"status" validate:"required,oneof=active inactive"`
}

// UserService manages application accounts.
type UserService struct {
	users     userRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(users userRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, audit: audit, validator: validate, logger: logger}
}

// List returns accounts matching the filter.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one account.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create registers a new account with a bcrypt password hash.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, actorID, ip string) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if !validRole(req.Role) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "a user with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
		Status:       "active",
	}
	if err := s.users.Create(ctx, user); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "a user with this email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.writeAudit(ctx, models.AuditActionUserCreate, user.ID, nil, user, actorID, ip)
	return user, nil
}

// Update modifies an account's profile, role and status.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest, actorID, ip string) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if !validRole(req.Role) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	before := *user
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.Role = req.Role
	user.Status = req.Status
	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	s.writeAudit(ctx, models.AuditActionUserUpdate, user.ID, &before, user, actorID, ip)
	return user, nil
}

// Delete removes an account. A user may not delete themselves; the
// system must always retain the acting administrator.
func (s *UserService) Delete(ctx context.Context, id, actorID, ip string) error {
	if id == actorID {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot delete your own account")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	s.writeAudit(ctx, models.AuditActionUserDelete, user.ID, user, nil, actorID, ip)
	return nil
}

func (s *UserService) writeAudit(ctx context.Context, action, entityID string, before, after *models.User, actorID, ip string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:    &actorID,
		Action:    action,
		Module:    models.AuditModuleUsers,
		EntityID:  &entityID,
		IPAddress: ip,
		CreatedAt: time.Now().UTC(),
	}
	if before != nil {
		entry.BeforeValues, _ = json.Marshal(auditUserView(before))
	}
	if after != nil {
		entry.AfterValues, _ = json.Marshal(auditUserView(after))
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to write user audit entry", zap.String("entity_id", entityID), zap.Error(err))
	}
}

// auditUserView strips the password hash before serialising a user into
// the audit trail.
func auditUserView(user *models.User) map[string]interface{} {
	return map[string]interface{}{
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"role":       user.Role,
		"status":     user.Status,
	}
}

func validRole(role models.UserRole) bool {
	switch role {
	case models.RoleAdministrator, models.RoleTeacher, models.RoleStudent, models.RoleParent:
		return true
	}
	return false
}
