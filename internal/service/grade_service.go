package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nlsantiago/sis-api/internal/models"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
)

type gradeRepository interface {
	ListByStudentAndSubject(ctx context.Context, studentID, subjectID, schoolYearID string) ([]models.Grade, error)
	ListByStudent(ctx context.Context, studentID, schoolYearID string) ([]models.Grade, error)
	ListWithSubjectByStudent(ctx context.Context, studentID, schoolYearID string) ([]models.GradeWithSubject, error)
}

// RecordScoreRequest is the payload for the score recording endpoint.
type RecordScoreRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	SubjectID string  `json:"subject_id" validate:"required"`
	Quarter   int     `json:"quarter" validate:"required,min=1,max=4"`
	Score     float64 `json:"score" validate:"gte=0,lte=100"`
}

// GradeService exposes read access to quarterly grades.
type GradeService struct {
	grades    gradeRepository
	years     yearResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(grades gradeRepository, years yearResolver, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{grades: grades, years: years, validator: validate, logger: logger}
}

// ListByStudent returns a student's grades in the effective year,
// optionally narrowed to one subject.
func (s *GradeService) ListByStudent(ctx context.Context, studentID, subjectID, schoolYearID string) ([]models.Grade, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	year, err := s.years.Resolve(ctx, schoolYearID)
	if err != nil {
		return nil, err
	}

	var grades []models.Grade
	if subjectID != "" {
		grades, err = s.grades.ListByStudentAndSubject(ctx, studentID, subjectID, year.ID)
	} else {
		grades, err = s.grades.ListByStudent(ctx, studentID, year.ID)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// RecordScore validates the payload and acknowledges it without
// persisting anything. Grade entry is handled by the DepEd e-Class
// Record upload flow; this endpoint exists so the UI contract stays
// stable until that flow lands.
//
// TODO: persist scores once the e-Class Record import is in place.
func (s *GradeService) RecordScore(ctx context.Context, req RecordScoreRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}
	s.logger.Info("score recording acknowledged without persistence",
		zap.String("student_id", req.StudentID),
		zap.String("subject_id", req.SubjectID),
		zap.Int("quarter", req.Quarter))
	return nil
}
