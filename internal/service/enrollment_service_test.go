package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlsantiago/sis-api/internal/models"
	"github.com/nlsantiago/sis-api/internal/repository"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
)

type mockYearResolver struct {
	year *models.SchoolYear
	err  error
}

func (m *mockYearResolver) Resolve(ctx context.Context, requestedID string) (*models.SchoolYear, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.year, nil
}

func openYear() *models.SchoolYear {
	now := time.Now()
	return &models.SchoolYear{
		ID:              "sy-1",
		YearName:        "2025-2026",
		StartDate:       now.AddDate(0, -1, 0),
		EndDate:         now.AddDate(0, 9, 0),
		EnrollmentStart: now.AddDate(0, 0, -7),
		EnrollmentEnd:   now.AddDate(0, 0, 7),
		IsActive:        true,
	}
}

type mockApplicationRepo struct {
	mu           sync.Mutex
	apps         map[string]models.EnrollmentApplication
	takenNumbers map[string]bool
	created      *models.EnrollmentApplication
	approved     []string
	bulkIDs      []string
	bulkStatus   models.ApplicationStatus
	approveErr   error
}

func (m *mockApplicationRepo) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	var out []models.ApplicationDetail
	for _, app := range m.apps {
		out = append(out, models.ApplicationDetail{EnrollmentApplication: app})
	}
	return out, len(out), nil
}

func (m *mockApplicationRepo) FindByID(ctx context.Context, id string) (*models.EnrollmentApplication, error) {
	if app, ok := m.apps[id]; ok {
		return &app, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicationRepo) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.takenNumbers[number], nil
}

func (m *mockApplicationRepo) Create(ctx context.Context, app *models.EnrollmentApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.apps == nil {
		m.apps = make(map[string]models.EnrollmentApplication)
	}
	if app.ID == "" {
		app.ID = fmt.Sprintf("app-%d", len(m.apps)+1)
	}
	m.apps[app.ID] = *app
	m.created = app
	return nil
}

func (m *mockApplicationRepo) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, sectionID *string) error {
	if app, ok := m.apps[id]; ok {
		app.Status = status
		if sectionID != nil {
			app.SectionID = sectionID
		}
		m.apps[id] = app
	}
	return nil
}

func (m *mockApplicationRepo) BulkUpdateStatus(ctx context.Context, ids []string, status models.ApplicationStatus) error {
	m.bulkIDs = ids
	m.bulkStatus = status
	return nil
}

func (m *mockApplicationRepo) CountsByYear(ctx context.Context, schoolYearID string) (*models.ApplicationStatusCounts, error) {
	return &models.ApplicationStatusCounts{Total: len(m.apps)}, nil
}

func (m *mockApplicationRepo) Approve(ctx context.Context, app *models.EnrollmentApplication, actorID, ip string) (*repository.ApprovalResult, error) {
	if m.approveErr != nil {
		return nil, m.approveErr
	}
	stored := m.apps[app.ID]
	stored.Status = models.ApplicationStatusEnrolled
	m.apps[app.ID] = stored
	m.approved = append(m.approved, app.ID)
	return &repository.ApprovalResult{StudentID: "stu-1", StudentCreated: true}, nil
}

type mockNotifier struct {
	notices []AdmissionNotice
}

func (m *mockNotifier) Notify(notice AdmissionNotice) {
	m.notices = append(m.notices, notice)
}

func validSubmitRequest() SubmitApplicationRequest {
	return SubmitApplicationRequest{
		StudentFirstName: "Juan",
		StudentLastName:  "Dela Cruz",
		DateOfBirth:      time.Date(2012, 3, 14, 0, 0, 0, 0, time.UTC),
		Gender:           "Male",
		GradeLevel:       "Grade 7",
		LRN:              "123456789012",
		ParentEmail:      "parent@example.com",
	}
}

func TestEnrollmentServiceSubmit(t *testing.T) {
	repo := &mockApplicationRepo{}
	svc := NewEnrollmentService(repo, &mockYearResolver{year: openYear()}, nil, nil, nil, nil)

	app, err := svc.Submit(context.Background(), validSubmitRequest())
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPreRegistered, app.Status)
	assert.Equal(t, "sy-1", app.SchoolYearID)
	assert.Regexp(t, `^ENR-\d{4}-\d{4}$`, app.ApplicationNumber)
}

func TestEnrollmentServiceSubmitAcceptsOutsideEnrollmentPeriod(t *testing.T) {
	// transferees apply year-round; the enrollment period dates are
	// informational, not a gate
	year := openYear()
	year.EnrollmentEnd = time.Now().AddDate(0, 0, -1)
	svc := NewEnrollmentService(&mockApplicationRepo{}, &mockYearResolver{year: year}, nil, nil, nil, nil)

	app, err := svc.Submit(context.Background(), validSubmitRequest())
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPreRegistered, app.Status)
}

func TestEnrollmentServiceSubmitConcurrent(t *testing.T) {
	repo := &mockApplicationRepo{}
	svc := NewEnrollmentService(repo, &mockYearResolver{year: openYear()}, nil, nil, nil, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), validSubmitRequest())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, repo.apps, 16)
}

func TestEnrollmentServiceSubmitRejectsBadLRN(t *testing.T) {
	svc := NewEnrollmentService(&mockApplicationRepo{}, &mockYearResolver{year: openYear()}, nil, nil, nil, nil)

	req := validSubmitRequest()
	req.LRN = "1234"
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceSubmitNumberExhausted(t *testing.T) {
	repo := &mockApplicationRepo{takenNumbers: map[string]bool{}}
	currentYear := time.Now().Year()
	for i := 0; i < 10000; i++ {
		repo.takenNumbers[formatApplicationNumber(currentYear, i)] = true
	}
	svc := NewEnrollmentService(repo, &mockYearResolver{year: openYear()}, nil, nil, nil, nil)

	_, err := svc.Submit(context.Background(), validSubmitRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrApplicationNumber.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceApproveNotifies(t *testing.T) {
	repo := &mockApplicationRepo{apps: map[string]models.EnrollmentApplication{
		"app-1": {
			ID:                "app-1",
			ApplicationNumber: "ENR-2025-0042",
			StudentFirstName:  "Juan",
			StudentLastName:   "Dela Cruz",
			GradeLevel:        "Grade 7",
			LRN:               "123456789012",
			ParentEmail:       "parent@example.com",
			Status:            models.ApplicationStatusPreRegistered,
			SchoolYearID:      "sy-1",
		},
	}}
	notifier := &mockNotifier{}
	svc := NewEnrollmentService(repo, &mockYearResolver{year: openYear()}, notifier, nil, nil, nil)

	app, err := svc.Approve(context.Background(), "app-1", "admin-1", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusEnrolled, app.Status)
	require.Len(t, notifier.notices, 1)
	assert.Equal(t, "ENR-2025-0042", notifier.notices[0].ApplicationNumber)
	assert.Equal(t, "parent@example.com", notifier.notices[0].ParentEmail)
}

func TestEnrollmentServiceReApproveIsIdempotent(t *testing.T) {
	repo := &mockApplicationRepo{apps: map[string]models.EnrollmentApplication{
		"app-1": {
			ID:                "app-1",
			ApplicationNumber: "ENR-2025-0042",
			ParentEmail:       "parent@example.com",
			Status:            models.ApplicationStatusEnrolled,
			SchoolYearID:      "sy-1",
		},
	}}
	notifier := &mockNotifier{}
	svc := NewEnrollmentService(repo, &mockYearResolver{year: openYear()}, notifier, nil, nil, nil)

	app, err := svc.Approve(context.Background(), "app-1", "admin-1", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusEnrolled, app.Status)
	assert.Equal(t, []string{"app-1"}, repo.approved)
	require.Len(t, notifier.notices, 1)
	assert.Equal(t, "ENR-2025-0042", notifier.notices[0].ApplicationNumber)
}

func TestEnrollmentServiceApproveMissing(t *testing.T) {
	svc := NewEnrollmentService(&mockApplicationRepo{}, &mockYearResolver{year: openYear()}, nil, nil, nil, nil)

	_, err := svc.Approve(context.Background(), "ghost", "admin-1", "10.0.0.1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

type auditTrailMock struct {
	entries []models.AuditLog
	seenID  string
}

func (m *auditTrailMock) ListByEntity(ctx context.Context, entityID string, limit int) ([]models.AuditLog, error) {
	m.seenID = entityID
	return m.entries, nil
}

func TestEnrollmentServiceAuditTrail(t *testing.T) {
	repo := &mockApplicationRepo{apps: map[string]models.EnrollmentApplication{
		"app-1": {ID: "app-1", Status: models.ApplicationStatusEnrolled},
	}}
	audit := &auditTrailMock{entries: []models.AuditLog{{Action: models.AuditActionApproveEnrollment}}}
	svc := NewEnrollmentService(repo, &mockYearResolver{year: openYear()}, nil, audit, nil, nil)

	entries, err := svc.AuditTrail(context.Background(), "app-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionApproveEnrollment, entries[0].Action)
	assert.Equal(t, "app-1", audit.seenID)
}

func TestEnrollmentServiceAuditTrailUnknownApplication(t *testing.T) {
	svc := NewEnrollmentService(&mockApplicationRepo{}, &mockYearResolver{year: openYear()}, nil, &auditTrailMock{}, nil, nil)

	_, err := svc.AuditTrail(context.Background(), "ghost", 10)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceChangeStatusRejectsUnknown(t *testing.T) {
	repo := &mockApplicationRepo{apps: map[string]models.EnrollmentApplication{
		"app-1": {ID: "app-1", Status: models.ApplicationStatusPreRegistered},
	}}
	svc := NewEnrollmentService(repo, &mockYearResolver{year: openYear()}, nil, nil, nil, nil)

	_, err := svc.ChangeStatus(context.Background(), "app-1", StatusChangeRequest{Status: "graduated"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceBulkChangeStatus(t *testing.T) {
	repo := &mockApplicationRepo{}
	svc := NewEnrollmentService(repo, &mockYearResolver{year: openYear()}, nil, nil, nil, nil)

	err := svc.BulkChangeStatus(context.Background(), BulkStatusRequest{
		IDs:    []string{"app-1", "app-2"},
		Status: models.ApplicationStatusTransferred,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"app-1", "app-2"}, repo.bulkIDs)
	assert.Equal(t, models.ApplicationStatusTransferred, repo.bulkStatus)
}
