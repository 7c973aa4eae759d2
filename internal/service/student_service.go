package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nlsantiago/sis-api/internal/models"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRow, int, error)
	FindByID(ctx context.Context, id, schoolYearID string) (*models.StudentRow, error)
	FindByLRN(ctx context.Context, lrn string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type enrollmentHistoryReader interface {
	HistoryByStudent(ctx context.Context, studentID string) ([]models.EnrollmentHistoryEntry, error)
}

type gradeReader interface {
	ListWithSubjectByStudent(ctx context.Context, studentID, schoolYearID string) ([]models.GradeWithSubject, error)
}

type attendanceTallier interface {
	TallyByStudent(ctx context.Context, studentID, schoolYearID string) (*models.AttendanceTally, error)
}

// StudentDetail is the composed per-student view: the record plus the
// year's grades, attendance summary and cross-year enrollment history.
type StudentDetail struct {
	models.StudentRow
	Grades     []models.GradeWithSubject       `json:"grades"`
	Attendance models.AttendanceTally          `json:"attendance"`
	History    []models.EnrollmentHistoryEntry `json:"enrollment_history"`
}

// CreateStudentRequest registers a student directly, outside the
// application workflow (transferees with paper records).
type CreateStudentRequest struct {
	LRN               string     `json:"lrn" validate:"required,len=12,numeric"`
	FirstName         string     `json:"first_name" validate:"required"`
	LastName          string     `json:"last_name" validate:"required"`
	MiddleName        *string    `json:"middle_name"`
	DateOfBirth       *time.Time `json:"date_of_birth"`
	Gender            *string    `json:"gender"`
	Email             *string    `json:"email" validate:"omitempty,email"`
	CurrentGradeLevel *string    `json:"current_grade_level"`
}

// UpdateStudentRequest carries editable student fields.
type UpdateStudentRequest struct {
	FirstName  string  `json:"first_name" validate:"required"`
	LastName   string  `json:"last_name" validate:"required"`
	MiddleName *string `json:"middle_name"`
	Email      *string `json:"email" validate:"omitempty,email"`
}

// StudentService exposes the student directory.
type StudentService struct {
	students  studentRepository
	history   enrollmentHistoryReader
	grades    gradeReader
	tallies   attendanceTallier
	years     yearResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(students studentRepository, history enrollmentHistoryReader, grades gradeReader, tallies attendanceTallier, years yearResolver, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, history: history, grades: grades, tallies: tallies, years: years, validator: validate, logger: logger}
}

// List returns students enrolled in the effective year.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRow, *models.Pagination, error) {
	year, err := s.years.Resolve(ctx, filter.SchoolYearID)
	if err != nil {
		return nil, nil, err
	}
	filter.SchoolYearID = year.ID

	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Detail composes the full student view for the effective year.
func (s *StudentService) Detail(ctx context.Context, id, schoolYearID string) (*StudentDetail, error) {
	year, err := s.years.Resolve(ctx, schoolYearID)
	if err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, id, year.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	detail := &StudentDetail{StudentRow: *student}

	grades, err := s.grades.ListWithSubjectByStudent(ctx, id, year.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student grades")
	}
	detail.Grades = grades

	tally, err := s.tallies.TallyByStudent(ctx, id, year.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student attendance")
	}
	detail.Attendance = *tally

	history, err := s.history.HistoryByStudent(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment history")
	}
	detail.History = history

	return detail, nil
}

// Create registers a new student record keyed by LRN.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	if _, err := s.students.FindByLRN(ctx, req.LRN); err == nil {
		return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "a student with this LRN already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check LRN")
	}

	student := &models.Student{
		LRN:               req.LRN,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		MiddleName:        req.MiddleName,
		DateOfBirth:       req.DateOfBirth,
		Gender:            req.Gender,
		Email:             req.Email,
		CurrentGradeLevel: req.CurrentGradeLevel,
	}
	if err := s.students.Create(ctx, student); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "a student with this LRN already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("lrn", student.LRN))
	return student, nil
}

// Update modifies the editable fields of a student record. The LRN is
// immutable; it is the natural key linking applications to students.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentRow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	row, err := s.students.FindByID(ctx, id, "")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	student := row.Student
	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.MiddleName = req.MiddleName
	student.Email = req.Email
	if err := s.students.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	row.Student = student
	return row, nil
}

// Delete removes a student and, through cascading constraints, the
// dependent roster and ledger rows.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.students.FindByID(ctx, id, ""); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.students.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}
