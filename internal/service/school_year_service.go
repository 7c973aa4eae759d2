package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nlsantiago/sis-api/internal/models"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
)

type schoolYearRepository interface {
	List(ctx context.Context) ([]models.SchoolYear, error)
	FindByID(ctx context.Context, id string) (*models.SchoolYear, error)
	FindActive(ctx context.Context) (*models.SchoolYear, error)
	ExistsByName(ctx context.Context, yearName, excludeID string) (bool, error)
	Create(ctx context.Context, year *models.SchoolYear) error
	Update(ctx context.Context, year *models.SchoolYear) error
	SetActive(ctx context.Context, id string) error
	CountEnrollments(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

// SchoolYearRequest describes a create or update payload.
type SchoolYearRequest struct {
	YearName        string    `json:"year_name" validate:"required"`
	StartDate       time.Time `json:"start_date" validate:"required"`
	EndDate         time.Time `json:"end_date" validate:"required"`
	EnrollmentStart time.Time `json:"enrollment_start" validate:"required"`
	EnrollmentEnd   time.Time `json:"enrollment_end" validate:"required"`
}

// SchoolYearService manages academic years and resolves the effective
// year for scoped requests.
type SchoolYearService struct {
	repo      schoolYearRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolYearService constructs SchoolYearService.
func NewSchoolYearService(repo schoolYearRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *SchoolYearService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolYearService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns all academic years, newest first.
func (s *SchoolYearService) List(ctx context.Context) ([]models.SchoolYear, error) {
	years, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list school years")
	}
	return years, nil
}

// Get returns one school year.
func (s *SchoolYearService) Get(ctx context.Context, id string) (*models.SchoolYear, error) {
	year, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school year")
	}
	return year, nil
}

// Active returns the currently active school year.
func (s *SchoolYearService) Active(ctx context.Context) (*models.SchoolYear, error) {
	year, err := s.repo.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNoActiveSchoolYear
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active school year")
	}
	return year, nil
}

// Resolve returns the effective school year for a request: the explicit
// year when an ID is supplied, otherwise the active year. Year-scoped
// endpoints fail with NO_ACTIVE_SCHOOL_YEAR rather than silently reading
// an arbitrary year.
func (s *SchoolYearService) Resolve(ctx context.Context, requestedID string) (*models.SchoolYear, error) {
	if requestedID != "" {
		return s.Get(ctx, requestedID)
	}
	return s.Active(ctx)
}

// Create registers a new school year. New years always start inactive.
func (s *SchoolYearService) Create(ctx context.Context, req SchoolYearRequest) (*models.SchoolYear, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByName(ctx, req.YearName, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check school year name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "a school year with this name already exists")
	}

	year := &models.SchoolYear{
		YearName:        req.YearName,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		EnrollmentStart: req.EnrollmentStart,
		EnrollmentEnd:   req.EnrollmentEnd,
	}
	if err := s.repo.Create(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school year")
	}
	return year, nil
}

// Update modifies the name and window dates of a school year.
func (s *SchoolYearService) Update(ctx context.Context, id string, req SchoolYearRequest) (*models.SchoolYear, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	year, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByName(ctx, req.YearName, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check school year name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "a school year with this name already exists")
	}

	year.YearName = req.YearName
	year.StartDate = req.StartDate
	year.EndDate = req.EndDate
	year.EnrollmentStart = req.EnrollmentStart
	year.EnrollmentEnd = req.EnrollmentEnd
	if err := s.repo.Update(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school year")
	}
	return year, nil
}

// Delete removes a school year. The active year and any year already
// carrying roster rows stay; those hold live records.
func (s *SchoolYearService) Delete(ctx context.Context, id string) error {
	year, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if year.IsActive {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot delete the active school year")
	}
	count, err := s.repo.CountEnrollments(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count year enrollments")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "school year has enrollment records")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "school year not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete school year")
	}
	s.logger.Info("school year deleted", zap.String("school_year_id", id), zap.String("year_name", year.YearName))
	return nil
}

// SetActive switches the active year to the given one and records an
// audit entry naming the previous and new year.
func (s *SchoolYearService) SetActive(ctx context.Context, id, actorID, ip string) (*models.SchoolYear, error) {
	previous, err := s.repo.FindActive(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active school year")
	}

	if err := s.repo.SetActive(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate school year")
	}

	year, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		var before []byte
		if previous != nil {
			before, _ = json.Marshal(map[string]string{"active_year": previous.YearName})
		}
		after, _ := json.Marshal(map[string]string{"active_year": year.YearName})
		entry := &models.AuditLog{
			UserID:       &actorID,
			Action:       models.AuditActionSetActiveYear,
			Module:       models.AuditModuleSchoolYear,
			EntityID:     &year.ID,
			BeforeValues: before,
			AfterValues:  after,
			IPAddress:    ip,
		}
		if err := s.audit.Create(ctx, entry); err != nil {
			s.logger.Warn("failed to write school year audit entry", zap.String("school_year_id", id), zap.Error(err))
		}
	}
	return year, nil
}

func (s *SchoolYearService) validateRequest(req SchoolYearRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school year payload")
	}
	if !req.EndDate.After(req.StartDate) {
		return appErrors.Clone(appErrors.ErrValidation, "end_date must be after start_date")
	}
	if req.EnrollmentEnd.Before(req.EnrollmentStart) {
		return appErrors.Clone(appErrors.ErrValidation, "enrollment_end must not precede enrollment_start")
	}
	return nil
}
