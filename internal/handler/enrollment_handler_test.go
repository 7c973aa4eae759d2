package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlsantiago/sis-api/internal/models"
	"github.com/nlsantiago/sis-api/internal/repository"
	"github.com/nlsantiago/sis-api/internal/service"
	"github.com/nlsantiago/sis-api/pkg/response"
)

type applicationStoreMock struct {
	apps map[string]*models.EnrollmentApplication
}

func newApplicationStoreMock() *applicationStoreMock {
	return &applicationStoreMock{apps: make(map[string]*models.EnrollmentApplication)}
}

func (m *applicationStoreMock) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	return nil, 0, nil
}

func (m *applicationStoreMock) FindByID(ctx context.Context, id string) (*models.EnrollmentApplication, error) {
	app, ok := m.apps[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return app, nil
}

func (m *applicationStoreMock) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	for _, app := range m.apps {
		if app.ApplicationNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (m *applicationStoreMock) Create(ctx context.Context, app *models.EnrollmentApplication) error {
	app.ID = fmt.Sprintf("app-%d", len(m.apps)+1)
	m.apps[app.ID] = app
	return nil
}

func (m *applicationStoreMock) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, sectionID *string) error {
	return nil
}

func (m *applicationStoreMock) BulkUpdateStatus(ctx context.Context, ids []string, status models.ApplicationStatus) error {
	return nil
}

func (m *applicationStoreMock) CountsByYear(ctx context.Context, schoolYearID string) (*models.ApplicationStatusCounts, error) {
	return &models.ApplicationStatusCounts{}, nil
}

func (m *applicationStoreMock) Approve(ctx context.Context, app *models.EnrollmentApplication, actorID, ip string) (*repository.ApprovalResult, error) {
	return nil, sql.ErrNoRows
}

type openYearResolver struct{}

func (openYearResolver) Resolve(ctx context.Context, requestedID string) (*models.SchoolYear, error) {
	now := time.Now()
	return &models.SchoolYear{
		ID:              "sy-1",
		YearName:        "2025-2026",
		StartDate:       now.AddDate(0, 1, 0),
		EndDate:         now.AddDate(1, 0, 0),
		EnrollmentStart: now.AddDate(0, 0, -7),
		EnrollmentEnd:   now.AddDate(0, 0, 7),
		IsActive:        true,
	}, nil
}

type notifierMock struct{}

func (notifierMock) Notify(notice service.AdmissionNotice) {}

func submitBody(t *testing.T) string {
	t.Helper()
	payload := service.SubmitApplicationRequest{
		StudentFirstName: "Juan",
		StudentLastName:  "Dela Cruz",
		DateOfBirth:      time.Date(2013, 1, 15, 0, 0, 0, 0, time.UTC),
		Gender:           "male",
		GradeLevel:       "7",
		LRN:              "123456789012",
		ParentEmail:      "parent@example.com",
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(body)
}

func TestEnrollmentHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newApplicationStoreMock()
	svc := service.NewEnrollmentService(store, openYearResolver{}, notifierMock{}, nil, nil, nil)
	h := NewEnrollmentHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/enrollment/submit", strings.NewReader(submitBody(t)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)

	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	number, _ := data["application_number"].(string)
	assert.Regexp(t, regexp.MustCompile(`^ENR-\d{4}-\d{4}$`), number)
	assert.Equal(t, string(models.ApplicationStatusPreRegistered), data["status"])
}

func TestEnrollmentHandlerSubmitBadLRN(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewEnrollmentService(newApplicationStoreMock(), openYearResolver{}, notifierMock{}, nil, nil, nil)
	h := NewEnrollmentHandler(svc)

	payload := `{"student_first_name":"Juan","student_last_name":"Dela Cruz","date_of_birth":"2013-01-15T00:00:00Z","gender":"male","grade_level":"7","lrn":"12345","parent_email":"parent@example.com"}`

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/enrollment/submit", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerGetMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewEnrollmentService(newApplicationStoreMock(), openYearResolver{}, notifierMock{}, nil, nil, nil)
	h := NewEnrollmentHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/enrollment/applications/app-404", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "app-404"}}

	h.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
