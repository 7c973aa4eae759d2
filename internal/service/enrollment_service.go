package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nlsantiago/sis-api/internal/models"
	"github.com/nlsantiago/sis-api/internal/repository"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
)

type applicationRepository interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.EnrollmentApplication, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	Create(ctx context.Context, app *models.EnrollmentApplication) error
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, sectionID *string) error
	BulkUpdateStatus(ctx context.Context, ids []string, status models.ApplicationStatus) error
	CountsByYear(ctx context.Context, schoolYearID string) (*models.ApplicationStatusCounts, error)
	Approve(ctx context.Context, app *models.EnrollmentApplication, actorID, ip string) (*repository.ApprovalResult, error)
}

type yearResolver interface {
	Resolve(ctx context.Context, requestedID string) (*models.SchoolYear, error)
}

type admissionNotifier interface {
	Notify(notice AdmissionNotice)
}

type auditReader interface {
	ListByEntity(ctx context.Context, entityID string, limit int) ([]models.AuditLog, error)
}

// SubmitApplicationRequest is the public enrollment submission payload.
type SubmitApplicationRequest struct {
	StudentFirstName  string    `json:"student_first_name" validate:"required"`
	StudentMiddleName *string   `json:"student_middle_name"`
	StudentLastName   string    `json:"student_last_name" validate:"required"`
	DateOfBirth       time.Time `json:"date_of_birth" validate:"required"`
	Gender            string    `json:"gender" validate:"required"`
	GradeLevel        string    `json:"grade_level" validate:"required"`
	LRN               string    `json:"lrn" validate:"required,len=12,numeric"`
	ParentEmail       string    `json:"parent_email" validate:"required,email"`
	SchoolYearID      string    `json:"school_year_id"`
}

// StatusChangeRequest updates one application's status.
type StatusChangeRequest struct {
	Status    models.ApplicationStatus `json:"status" validate:"required"`
	SectionID *string                  `json:"section_id"`
}

// BulkStatusRequest updates the status of several applications at once.
type BulkStatusRequest struct {
	IDs    []string                 `json:"ids" validate:"required,min=1,dive,required"`
	Status models.ApplicationStatus `json:"status" validate:"required"`
}

// applicationNumberAttempts bounds the collision retry loop when
// allocating ENR-<year>-<nnnn> numbers.
const applicationNumberAttempts = 5

// EnrollmentService orchestrates the application intake and approval
// workflow.
type EnrollmentService struct {
	apps      applicationRepository
	years     yearResolver
	notifier  admissionNotifier
	audit     auditReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(apps applicationRepository, years yearResolver, notifier admissionNotifier, audit auditReader, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		apps:      apps,
		years:     years,
		notifier:  notifier,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// Submit accepts a public enrollment application, allocating a unique
// human-readable application number for the submission year.
func (s *EnrollmentService) Submit(ctx context.Context, req SubmitApplicationRequest) (*models.EnrollmentApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}

	year, err := s.years.Resolve(ctx, req.SchoolYearID)
	if err != nil {
		return nil, err
	}
	number, err := s.allocateApplicationNumber(ctx, time.Now().Year())
	if err != nil {
		return nil, err
	}

	app := &models.EnrollmentApplication{
		ApplicationNumber: number,
		StudentFirstName:  req.StudentFirstName,
		StudentMiddleName: req.StudentMiddleName,
		StudentLastName:   req.StudentLastName,
		DateOfBirth:       req.DateOfBirth,
		Gender:            req.Gender,
		GradeLevel:        req.GradeLevel,
		LRN:               req.LRN,
		ParentEmail:       req.ParentEmail,
		Status:            models.ApplicationStatusPreRegistered,
		SchoolYearID:      year.ID,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "an application with this LRN already exists for the school year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	s.logger.Info("enrollment application submitted",
		zap.String("application_number", app.ApplicationNumber),
		zap.String("school_year_id", year.ID))
	return app, nil
}

// List returns applications in the effective school year.
func (s *EnrollmentService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, *models.Pagination, error) {
	year, err := s.years.Resolve(ctx, filter.SchoolYearID)
	if err != nil {
		return nil, nil, err
	}
	filter.SchoolYearID = year.ID
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown application status")
	}

	applications, total, err := s.apps.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return applications, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one application.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentApplication, error) {
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return app, nil
}

// ChangeStatus moves an application to any known status. No transition
// matrix is enforced; administrators may correct mistakes freely.
func (s *EnrollmentService) ChangeStatus(ctx context.Context, id string, req StatusChangeRequest) (*models.EnrollmentApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown application status")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.apps.UpdateStatus(ctx, id, req.Status, req.SectionID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application status")
	}
	return s.Get(ctx, id)
}

// BulkChangeStatus applies one status to a batch of applications.
func (s *EnrollmentService) BulkChangeStatus(ctx context.Context, req BulkStatusRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk status payload")
	}
	if !req.Status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown application status")
	}
	if err := s.apps.BulkUpdateStatus(ctx, req.IDs, req.Status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application statuses")
	}
	return nil
}

// Approve runs the full admission pipeline for one application: the
// transactional state change first, then the detached certificate and
// email notification. Re-approving an already-enrolled application
// re-runs the pipeline idempotently; the roster write is an upsert and
// a fresh notice is sent. The approval succeeds even when the notice
// later fails; delivery is retried on the queue and failures only
// logged.
func (s *EnrollmentService) Approve(ctx context.Context, id, actorID, ip string) (*models.EnrollmentApplication, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := s.apps.Approve(ctx, app, actorID, ip)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve application")
	}
	s.logger.Info("application approved",
		zap.String("application_number", app.ApplicationNumber),
		zap.String("student_id", result.StudentID),
		zap.Bool("student_created", result.StudentCreated))

	if s.notifier != nil {
		middle := ""
		if app.StudentMiddleName != nil {
			middle = *app.StudentMiddleName
		}
		s.notifier.Notify(AdmissionNotice{
			ApplicationID:     app.ID,
			ApplicationNumber: app.ApplicationNumber,
			FirstName:         app.StudentFirstName,
			MiddleName:        middle,
			LastName:          app.StudentLastName,
			GradeLevel:        app.GradeLevel,
			ParentEmail:       app.ParentEmail,
			ApprovedAt:        time.Now().UTC(),
		})
	}
	return s.Get(ctx, id)
}

// AuditTrail returns the audit entries recorded against one application,
// most recent first.
func (s *EnrollmentService) AuditTrail(ctx context.Context, id string, limit int) ([]models.AuditLog, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return nil, nil
	}
	entries, err := s.audit.ListByEntity(ctx, id, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application audit trail")
	}
	return entries, nil
}

// Statistics aggregates application counts per status for the effective
// year.
func (s *EnrollmentService) Statistics(ctx context.Context, schoolYearID string) (*models.ApplicationStatusCounts, error) {
	year, err := s.years.Resolve(ctx, schoolYearID)
	if err != nil {
		return nil, err
	}
	counts, err := s.apps.CountsByYear(ctx, year.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate applications")
	}
	return counts, nil
}

// allocateApplicationNumber generates ENR-<year>-<nnnn> and retries on
// collision. The top-level rand source is safe for the concurrent
// public submit path. The 4-digit space is small on purpose; exhaustion
// surfaces as an explicit error rather than an unbounded loop.
func (s *EnrollmentService) allocateApplicationNumber(ctx context.Context, year int) (string, error) {
	for attempt := 0; attempt < applicationNumberAttempts; attempt++ {
		number := formatApplicationNumber(year, rand.Intn(10000))
		taken, err := s.apps.ExistsByNumber(ctx, number)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check application number")
		}
		if !taken {
			return number, nil
		}
	}
	return "", appErrors.ErrApplicationNumber
}

func formatApplicationNumber(year, n int) string {
	return fmt.Sprintf("ENR-%d-%04d", year, n)
}
