package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nlsantiago/sis-api/internal/models"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
)

type dashboardRepository interface {
	CountEnrolledStudents(ctx context.Context, schoolYearID, adviserID string) (int, error)
	CountSections(ctx context.Context, schoolYearID, adviserID string) (int, error)
	AverageAttendance(ctx context.Context, schoolYearID, adviserID string) (int, error)
	FindStudentIDByEmail(ctx context.Context, email string) (string, error)
	TallyByStudent(ctx context.Context, studentID, schoolYearID string) (models.AttendanceTally, error)
	ListEvents(ctx context.Context, limit int) ([]models.Event, error)
	ListNotices(ctx context.Context, limit int) ([]models.Notice, error)
}

type rosterReader interface {
	FindByStudentAndYear(ctx context.Context, studentID, schoolYearID string) (*models.Enrollment, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardService serves the role-specific landing views. Aggregates
// are optionally cached; the cache is a read accelerator only and every
// value remains derivable from the database.
type DashboardService struct {
	repo   dashboardRepository
	roster rosterReader
	grades gradeReader
	years  yearResolver
	cache  dashboardCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewDashboardService constructs DashboardService. A nil cache disables
// caching entirely.
func NewDashboardService(repo dashboardRepository, roster rosterReader, grades gradeReader, years yearResolver, cache dashboardCache, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{repo: repo, roster: roster, grades: grades, years: years, cache: cache, ttl: ttl, logger: logger}
}

// TeacherStats aggregates the adviser view for the effective year. An
// empty adviserID (an administrator's request) aggregates school-wide;
// a teacher's request is scoped to the sections they advise.
func (s *DashboardService) TeacherStats(ctx context.Context, schoolYearID, adviserID string) (*models.TeacherDashboardStats, error) {
	year, err := s.years.Resolve(ctx, schoolYearID)
	if err != nil {
		return nil, err
	}

	scope := adviserID
	if scope == "" {
		scope = "all"
	}
	cacheKey := fmt.Sprintf("dashboard:teacher:%s:%s", year.ID, scope)
	if s.cache != nil {
		var cached models.TeacherDashboardStats
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	students, err := s.repo.CountEnrolledStudents(ctx, year.ID, adviserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	sections, err := s.repo.CountSections(ctx, year.ID, adviserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sections")
	}
	attendance, err := s.repo.AverageAttendance(ctx, year.ID, adviserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute attendance average")
	}

	stats := &models.TeacherDashboardStats{
		TotalStudents:     students,
		TotalClasses:      sections,
		AverageAttendance: attendance,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, s.ttl); err != nil {
			s.logger.Warn("failed to cache teacher dashboard", zap.Error(err))
		}
	}
	return stats, nil
}

// StudentOverview builds the student/parent landing view for the account
// email, resolving the linked student record first.
func (s *DashboardService) StudentOverview(ctx context.Context, email, schoolYearID string) (*models.StudentDashboard, error) {
	year, err := s.years.Resolve(ctx, schoolYearID)
	if err != nil {
		return nil, err
	}

	studentID, err := s.repo.FindStudentIDByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no student record linked to this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
	}

	tally, err := s.repo.TallyByStudent(ctx, studentID, year.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance summary")
	}
	grades, err := s.grades.ListWithSubjectByStudent(ctx, studentID, year.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}

	dashboard := &models.StudentDashboard{Attendance: tally, Grades: grades}

	// a student without a roster row this year still gets the view
	enrollment, err := s.roster.FindByStudentAndYear(ctx, studentID, year.ID)
	switch {
	case err == nil:
		dashboard.Enrollment = enrollment
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	return dashboard, nil
}

// Events lists upcoming school calendar entries.
func (s *DashboardService) Events(ctx context.Context, limit int) ([]models.Event, error) {
	events, err := s.repo.ListEvents(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, nil
}

// Notices lists the latest notice-board entries.
func (s *DashboardService) Notices(ctx context.Context, limit int) ([]models.Notice, error) {
	notices, err := s.repo.ListNotices(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notices")
	}
	return notices, nil
}
