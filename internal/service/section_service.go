package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nlsantiago/sis-api/internal/models"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
)

type sectionRepository interface {
	List(ctx context.Context, schoolYearID string) ([]models.SectionDetail, error)
	FindByID(ctx context.Context, id string) (*models.SectionDetail, error)
	Create(ctx context.Context, section *models.Section) error
	Update(ctx context.Context, section *models.Section) error
	Delete(ctx context.Context, id string) error
	ListSubjects(ctx context.Context, gradeLevel string) ([]models.Subject, error)
}

type rosterCounter interface {
	CountBySection(ctx context.Context, sectionID, schoolYearID string) (int, error)
}

// DefaultSectionCapacity is applied when a section is created without an
// explicit capacity.
const DefaultSectionCapacity = 45

// SectionRequest is the create/update payload for a section.
type SectionRequest struct {
	Name         string  `json:"name" validate:"required"`
	GradeLevel   string  `json:"grade_level" validate:"required"`
	AdviserID    *string `json:"adviser_id"`
	RoomNumber   *string `json:"room_number"`
	Capacity     int     `json:"capacity" validate:"gte=0"`
	SchoolYearID string  `json:"school_year_id"`
}

// SectionService manages classroom sections and the read-only curriculum.
type SectionService struct {
	sections  sectionRepository
	roster    rosterCounter
	years     yearResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSectionService constructs SectionService.
func NewSectionService(sections sectionRepository, roster rosterCounter, years yearResolver, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{sections: sections, roster: roster, years: years, validator: validate, logger: logger}
}

// List returns sections for the effective school year with adviser names
// and derived enrollment counts.
func (s *SectionService) List(ctx context.Context, schoolYearID string) ([]models.SectionDetail, error) {
	year, err := s.years.Resolve(ctx, schoolYearID)
	if err != nil {
		return nil, err
	}
	sections, err := s.sections.List(ctx, year.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return sections, nil
}

// Get returns one section.
func (s *SectionService) Get(ctx context.Context, id string) (*models.SectionDetail, error) {
	section, err := s.sections.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// Create registers a new section in the effective school year.
func (s *SectionService) Create(ctx context.Context, req SectionRequest) (*models.SectionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	year, err := s.years.Resolve(ctx, req.SchoolYearID)
	if err != nil {
		return nil, err
	}

	capacity := req.Capacity
	if capacity == 0 {
		capacity = DefaultSectionCapacity
	}
	section := &models.Section{
		Name:         req.Name,
		GradeLevel:   req.GradeLevel,
		AdviserID:    req.AdviserID,
		RoomNumber:   req.RoomNumber,
		Capacity:     capacity,
		SchoolYearID: year.ID,
	}
	if err := s.sections.Create(ctx, section); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "a section with this name already exists for the school year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	return s.Get(ctx, section.ID)
}

// Update modifies a section's attributes. The school year binding is
// immutable; sections never move between years.
func (s *SectionService) Update(ctx context.Context, id string, req SectionRequest) (*models.SectionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	section := existing.Section
	section.Name = req.Name
	section.GradeLevel = req.GradeLevel
	section.AdviserID = req.AdviserID
	section.RoomNumber = req.RoomNumber
	if req.Capacity > 0 {
		section.Capacity = req.Capacity
	}
	if err := s.sections.Update(ctx, &section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}
	return s.Get(ctx, id)
}

// Delete removes a section. Sections with enrolled students cannot be
// deleted; the roster rows would dangle.
func (s *SectionService) Delete(ctx context.Context, id string) error {
	section, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.roster.CountBySection(ctx, id, section.SchoolYearID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count section roster")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "section still has enrolled students")
	}
	if err := s.sections.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section")
	}
	return nil
}

// ListSubjects returns the curriculum, optionally filtered by grade
// level. Subjects are read-only reference data.
func (s *SectionService) ListSubjects(ctx context.Context, gradeLevel string) ([]models.Subject, error) {
	subjects, err := s.sections.ListSubjects(ctx, gradeLevel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}
