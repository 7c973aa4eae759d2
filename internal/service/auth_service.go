package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/nlsantiago/sis-api/internal/models"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

type auditWriter interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// AuthService issues and verifies access tokens.
type AuthService struct {
	users     authUserRepository
	audit     auditWriter
	secret    []byte
	expiry    time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs AuthService.
func NewAuthService(users authUserRepository, audit auditWriter, secret string, expiry time.Duration, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &AuthService{users: users, audit: audit, secret: []byte(secret), expiry: expiry, validator: validate, logger: logger}
}

// Login authenticates a user and returns a signed token. Invalid email
// and invalid password produce the same error so the response does not
// reveal which accounts exist.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Status != "active" {
		return nil, appErrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	if s.audit != nil {
		entry := &models.AuditLog{
			UserID:    &user.ID,
			Action:    models.AuditActionLogin,
			Module:    models.AuditModuleAuth,
			EntityID:  &user.ID,
			IPAddress: req.IP,
		}
		if err := s.audit.Create(ctx, entry); err != nil {
			s.logger.Warn("failed to write login audit entry", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	return &models.LoginResponse{Token: token, User: toUserInfo(user)}, nil
}

// Verify parses a token and returns the current user info, re-checking
// the account against the database so disabled users lose access
// immediately.
func (s *AuthService) Verify(ctx context.Context, token string) (*models.UserInfo, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnauthorized
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Status != "active" {
		return nil, appErrors.ErrUnauthorized
	}
	info := toUserInfo(user)
	return &info, nil
}

// ValidateToken parses and validates a signed access token.
func (s *AuthService) ValidateToken(token string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, appErrors.ErrUnauthorized
	}
	return claims, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := time.Now().UTC()
	claims := models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func toUserInfo(user *models.User) models.UserInfo {
	return models.UserInfo{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		Status:    user.Status,
	}
}
