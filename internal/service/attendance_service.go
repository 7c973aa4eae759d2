package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nlsantiago/sis-api/internal/models"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
)

type attendanceRepository interface {
	Roster(ctx context.Context, sectionID string, date time.Time, schoolYearID string) ([]models.RosterEntry, error)
	BulkUpsert(ctx context.Context, date time.Time, schoolYearID string, marks []models.AttendanceMark) error
	ListByStudent(ctx context.Context, studentID, schoolYearID string, limit int) ([]models.Attendance, error)
	TallyByStudent(ctx context.Context, studentID, schoolYearID string) (*models.AttendanceTally, error)
}

// SaveAttendanceRequest is a bulk save for one section and date.
type SaveAttendanceRequest struct {
	SectionID    string                  `json:"section_id" validate:"required"`
	Date         time.Time               `json:"date" validate:"required"`
	SchoolYearID string                  `json:"school_year_id"`
	Records      []models.AttendanceMark `json:"records" validate:"required,min=1,dive"`
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AttendanceService manages the day-to-day attendance ledger.
type AttendanceService struct {
	attendance attendanceRepository
	years      yearResolver
	cache      cacheInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(attendance attendanceRepository, years yearResolver, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{attendance: attendance, years: years, validator: validate, logger: logger}
}

// BindCache attaches the dashboard cache so saved marks invalidate the
// attendance aggregates. Optional.
func (s *AttendanceService) BindCache(cache cacheInvalidator) {
	s.cache = cache
}

// Roster returns the attendance sheet for a section and date: every
// enrolled student with any recorded mark, defaulting to Present.
func (s *AttendanceService) Roster(ctx context.Context, sectionID string, date time.Time, schoolYearID string) ([]models.RosterEntry, error) {
	if sectionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section_id is required")
	}
	year, err := s.years.Resolve(ctx, schoolYearID)
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = time.Now()
	}
	roster, err := s.attendance.Roster(ctx, sectionID, truncateToDay(date), year.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance roster")
	}
	return roster, nil
}

// Save records a whole batch of marks atomically. Saving twice for the
// same (student, date, year) replaces the earlier mark.
func (s *AttendanceService) Save(ctx context.Context, req SaveAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	for _, mark := range req.Records {
		if !mark.Status.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
		}
	}
	year, err := s.years.Resolve(ctx, req.SchoolYearID)
	if err != nil {
		return err
	}
	if err := s.attendance.BulkUpsert(ctx, truncateToDay(req.Date), year.ID, req.Records); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "dashboard:teacher:*"); err != nil {
			s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
		}
	}
	s.logger.Info("attendance saved",
		zap.String("section_id", req.SectionID),
		zap.Time("date", req.Date),
		zap.Int("records", len(req.Records)))
	return nil
}

// StudentHistory returns a student's recent marks in the effective year.
func (s *AttendanceService) StudentHistory(ctx context.Context, studentID, schoolYearID string, limit int) ([]models.Attendance, error) {
	year, err := s.years.Resolve(ctx, schoolYearID)
	if err != nil {
		return nil, err
	}
	rows, err := s.attendance.ListByStudent(ctx, studentID, year.ID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student attendance")
	}
	return rows, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
