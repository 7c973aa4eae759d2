package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlsantiago/sis-api/internal/models"
	"github.com/nlsantiago/sis-api/internal/service"
	"github.com/nlsantiago/sis-api/pkg/response"
)

type schoolYearStoreMock struct {
	years  []models.SchoolYear
	active *models.SchoolYear
}

func (m *schoolYearStoreMock) List(ctx context.Context) ([]models.SchoolYear, error) {
	return m.years, nil
}

func (m *schoolYearStoreMock) FindByID(ctx context.Context, id string) (*models.SchoolYear, error) {
	for i := range m.years {
		if m.years[i].ID == id {
			return &m.years[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *schoolYearStoreMock) FindActive(ctx context.Context) (*models.SchoolYear, error) {
	if m.active == nil {
		return nil, sql.ErrNoRows
	}
	return m.active, nil
}

func (m *schoolYearStoreMock) ExistsByName(ctx context.Context, yearName, excludeID string) (bool, error) {
	for _, year := range m.years {
		if year.YearName == yearName && year.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *schoolYearStoreMock) Create(ctx context.Context, year *models.SchoolYear) error {
	year.ID = "sy-new"
	m.years = append(m.years, *year)
	return nil
}

func (m *schoolYearStoreMock) Update(ctx context.Context, year *models.SchoolYear) error {
	return nil
}

func (m *schoolYearStoreMock) SetActive(ctx context.Context, id string) error {
	for i := range m.years {
		if m.years[i].ID == id {
			m.years[i].IsActive = true
			m.active = &m.years[i]
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *schoolYearStoreMock) CountEnrollments(ctx context.Context, id string) (int, error) {
	return 0, nil
}

func (m *schoolYearStoreMock) Delete(ctx context.Context, id string) error {
	for i := range m.years {
		if m.years[i].ID == id {
			m.years = append(m.years[:i], m.years[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type auditSinkMock struct {
	entries []models.AuditLog
}

func (m *auditSinkMock) Create(ctx context.Context, entry *models.AuditLog) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func newSchoolYearHandler(store *schoolYearStoreMock) *SchoolYearHandler {
	svc := service.NewSchoolYearService(store, &auditSinkMock{}, nil, nil)
	return NewSchoolYearHandler(svc)
}

func TestSchoolYearHandlerActive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &schoolYearStoreMock{
		active: &models.SchoolYear{ID: "sy-1", YearName: "2025-2026", IsActive: true},
	}
	h := newSchoolYearHandler(store)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/enrollment/school-years/active", nil)
	c.Request = req

	h.Active(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)

	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2025-2026", data["year_name"])
}

func TestSchoolYearHandlerActiveNone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newSchoolYearHandler(&schoolYearStoreMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/enrollment/school-years/active", nil)
	c.Request = req

	h.Active(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "NO_ACTIVE_SCHOOL_YEAR", envelope.Code)
}

func TestSchoolYearHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &schoolYearStoreMock{}
	h := newSchoolYearHandler(store)

	payload := service.SchoolYearRequest{
		YearName:        "2026-2027",
		StartDate:       time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC),
		EnrollmentStart: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EnrollmentEnd:   time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC),
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/enrollment/school-years", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.years, 1)
	assert.False(t, store.years[0].IsActive)
}

func TestSchoolYearHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newSchoolYearHandler(&schoolYearStoreMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/enrollment/school-years", strings.NewReader(`{"year_name":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
