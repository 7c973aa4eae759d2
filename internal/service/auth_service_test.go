package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nlsantiago/sis-api/internal/models"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
)

type mockUserRepo struct {
	users      map[string]models.User
	lastLogins map[string]time.Time
	created    *models.User
	updated    *models.User
	deleted    []string
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if m.lastLogins == nil {
		m.lastLogins = make(map[string]time.Time)
	}
	m.lastLogins[id] = ts
	return nil
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]models.User)
	}
	if user.ID == "" {
		user.ID = "new-user"
	}
	m.users[user.ID] = *user
	m.created = user
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = *user
	m.updated = user
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	delete(m.users, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockAuditRepo struct {
	entries []models.AuditLog
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func seedUser(t *testing.T, password string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return models.User{
		ID:           "user-1",
		Email:        "admin@school.test",
		PasswordHash: string(hash),
		FirstName:    "Ana",
		LastName:     "Reyes",
		Role:         models.RoleAdministrator,
		Status:       "active",
	}
}

func TestAuthServiceLogin(t *testing.T) {
	users := &mockUserRepo{users: map[string]models.User{"user-1": seedUser(t, "sekret-pass")}}
	audit := &mockAuditRepo{}
	svc := NewAuthService(users, audit, "test-secret", time.Hour, nil, nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@school.test",
		Password: "sekret-pass",
		IP:       "10.0.0.1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.RoleAdministrator, resp.User.Role)
	assert.Contains(t, users.lastLogins, "user-1")
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionLogin, audit.entries[0].Action)
	assert.Equal(t, "10.0.0.1", audit.entries[0].IPAddress)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdministrator, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	users := &mockUserRepo{users: map[string]models.User{"user-1": seedUser(t, "sekret-pass")}}
	svc := NewAuthService(users, nil, "test-secret", time.Hour, nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@school.test",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, nil, "test-secret", time.Hour, nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@school.test",
		Password: "whatever",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveUser(t *testing.T) {
	user := seedUser(t, "sekret-pass")
	user.Status = "inactive"
	users := &mockUserRepo{users: map[string]models.User{"user-1": user}}
	svc := NewAuthService(users, nil, "test-secret", time.Hour, nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@school.test",
		Password: "sekret-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceVerifyRejectsDisabledUser(t *testing.T) {
	users := &mockUserRepo{users: map[string]models.User{"user-1": seedUser(t, "sekret-pass")}}
	svc := NewAuthService(users, nil, "test-secret", time.Hour, nil, nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@school.test",
		Password: "sekret-pass",
	})
	require.NoError(t, err)

	disabled := users.users["user-1"]
	disabled.Status = "inactive"
	users.users["user-1"] = disabled

	_, err = svc.Verify(context.Background(), resp.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, nil, "test-secret", time.Hour, nil, nil)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)

	other := NewAuthService(&mockUserRepo{}, nil, "different-secret", time.Hour, nil, nil)
	token, err := other.issueToken(&models.User{ID: "user-1", Role: models.RoleTeacher})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}
