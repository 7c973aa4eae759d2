package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nlsantiago/sis-api/internal/models"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
)

func TestUserServiceCreateHashesPassword(t *testing.T) {
	users := &mockUserRepo{}
	audit := &mockAuditRepo{}
	svc := NewUserService(users, audit, nil, nil)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:     "teacher@school.test",
		Password:  "long-enough-pass",
		FirstName: "Luis",
		LastName:  "Garcia",
		Role:      models.RoleTeacher,
	}, "admin-1", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "active", user.Status)
	assert.NotEqual(t, "long-enough-pass", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("long-enough-pass")))

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionUserCreate, audit.entries[0].Action)
	assert.NotContains(t, string(audit.entries[0].AfterValues), user.PasswordHash)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	users := &mockUserRepo{users: map[string]models.User{
		"user-1": {ID: "user-1", Email: "teacher@school.test"},
	}}
	svc := NewUserService(users, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:     "teacher@school.test",
		Password:  "long-enough-pass",
		FirstName: "Luis",
		LastName:  "Garcia",
		Role:      models.RoleTeacher,
	}, "admin-1", "10.0.0.1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyExists.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateRejectsShortPassword(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:     "teacher@school.test",
		Password:  "short",
		FirstName: "Luis",
		LastName:  "Garcia",
		Role:      models.RoleTeacher,
	}, "admin-1", "10.0.0.1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:     "someone@school.test",
		Password:  "long-enough-pass",
		FirstName: "Some",
		LastName:  "One",
		Role:      "principal",
	}, "admin-1", "10.0.0.1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdateRecordsBeforeAndAfter(t *testing.T) {
	users := &mockUserRepo{users: map[string]models.User{
		"user-1": {ID: "user-1", Email: "teacher@school.test", FirstName: "Luis", LastName: "Garcia", Role: models.RoleTeacher, Status: "active"},
	}}
	audit := &mockAuditRepo{}
	svc := NewUserService(users, audit, nil, nil)

	updated, err := svc.Update(context.Background(), "user-1", UpdateUserRequest{
		FirstName: "Luisa",
		LastName:  "Garcia",
		Role:      models.RoleTeacher,
		Status:    "inactive",
	}, "admin-1", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "inactive", updated.Status)

	require.Len(t, audit.entries, 1)
	assert.Contains(t, string(audit.entries[0].BeforeValues), "Luis")
	assert.Contains(t, string(audit.entries[0].AfterValues), "Luisa")
}

func TestUserServiceDeleteSelfForbidden(t *testing.T) {
	users := &mockUserRepo{users: map[string]models.User{
		"admin-1": {ID: "admin-1", Role: models.RoleAdministrator},
	}}
	svc := NewUserService(users, nil, nil, nil)

	err := svc.Delete(context.Background(), "admin-1", "admin-1", "10.0.0.1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, users.deleted)
}

func TestUserServiceDelete(t *testing.T) {
	users := &mockUserRepo{users: map[string]models.User{
		"user-2": {ID: "user-2", Role: models.RoleTeacher},
	}}
	audit := &mockAuditRepo{}
	svc := NewUserService(users, audit, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "user-2", "admin-1", "10.0.0.1"))
	assert.Equal(t, []string{"user-2"}, users.deleted)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionUserDelete, audit.entries[0].Action)
}
