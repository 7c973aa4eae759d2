package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlsantiago/sis-api/internal/models"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
)

type mockAttendanceRepo struct {
	roster    []models.RosterEntry
	savedDate time.Time
	savedYear string
	saved     []models.AttendanceMark
	history   []models.Attendance
}

func (m *mockAttendanceRepo) Roster(ctx context.Context, sectionID string, date time.Time, schoolYearID string) ([]models.RosterEntry, error) {
	return m.roster, nil
}

func (m *mockAttendanceRepo) BulkUpsert(ctx context.Context, date time.Time, schoolYearID string, marks []models.AttendanceMark) error {
	m.savedDate = date
	m.savedYear = schoolYearID
	m.saved = marks
	return nil
}

func (m *mockAttendanceRepo) ListByStudent(ctx context.Context, studentID, schoolYearID string, limit int) ([]models.Attendance, error) {
	return m.history, nil
}

func (m *mockAttendanceRepo) TallyByStudent(ctx context.Context, studentID, schoolYearID string) (*models.AttendanceTally, error) {
	return &models.AttendanceTally{}, nil
}

func TestAttendanceServiceSave(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := NewAttendanceService(repo, &mockYearResolver{year: openYear()}, nil, nil)

	err := svc.Save(context.Background(), SaveAttendanceRequest{
		SectionID: "sec-1",
		Date:      time.Date(2025, 9, 1, 14, 30, 0, 0, time.UTC),
		Records: []models.AttendanceMark{
			{StudentID: "stu-1", Status: models.AttendancePresent},
			{StudentID: "stu-2", Status: models.AttendanceAbsent},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "sy-1", repo.savedYear)
	assert.Len(t, repo.saved, 2)
	// the time of day is dropped; attendance is keyed per calendar day
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), repo.savedDate)
}

type invalidatorMock struct {
	patterns []string
}

func (m *invalidatorMock) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func TestAttendanceServiceSaveInvalidatesDashboardCache(t *testing.T) {
	invalidator := &invalidatorMock{}
	svc := NewAttendanceService(&mockAttendanceRepo{}, &mockYearResolver{year: openYear()}, nil, nil)
	svc.BindCache(invalidator)

	err := svc.Save(context.Background(), SaveAttendanceRequest{
		SectionID: "sec-1",
		Date:      time.Now(),
		Records:   []models.AttendanceMark{{StudentID: "stu-1", Status: models.AttendancePresent}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"dashboard:teacher:*"}, invalidator.patterns)
}

func TestAttendanceServiceSaveRejectsUnknownStatus(t *testing.T) {
	svc := NewAttendanceService(&mockAttendanceRepo{}, &mockYearResolver{year: openYear()}, nil, nil)

	err := svc.Save(context.Background(), SaveAttendanceRequest{
		SectionID: "sec-1",
		Date:      time.Now(),
		Records:   []models.AttendanceMark{{StudentID: "stu-1", Status: "Vacation"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceSaveRequiresRecords(t *testing.T) {
	svc := NewAttendanceService(&mockAttendanceRepo{}, &mockYearResolver{year: openYear()}, nil, nil)

	err := svc.Save(context.Background(), SaveAttendanceRequest{
		SectionID: "sec-1",
		Date:      time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceRosterRequiresSection(t *testing.T) {
	svc := NewAttendanceService(&mockAttendanceRepo{}, &mockYearResolver{year: openYear()}, nil, nil)

	_, err := svc.Roster(context.Background(), "", time.Now(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceRosterPropagatesYearError(t *testing.T) {
	svc := NewAttendanceService(&mockAttendanceRepo{}, &mockYearResolver{err: appErrors.ErrNoActiveSchoolYear}, nil, nil)

	_, err := svc.Roster(context.Background(), "sec-1", time.Now(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoActiveSchoolYear.Code, appErrors.FromError(err).Code)
}
