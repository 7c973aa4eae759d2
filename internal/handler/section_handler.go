package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nlsantiago/sis-api/internal/service"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
	"github.com/nlsantiago/sis-api/pkg/response"
)

// SectionHandler exposes section and curriculum endpoints.
type SectionHandler struct {
	sections *service.SectionService
}

// NewSectionHandler constructs SectionHandler.
func NewSectionHandler(sections *service.SectionService) *SectionHandler {
	return &SectionHandler{sections: sections}
}

// List godoc
// @Summary List sections
// @Tags Sections
// @Produce json
// @Security BearerAuth
// @Param schoolYearId query string false "School year (defaults to active)"
// @Success 200 {object} response.Envelope
// @Router /sections [get]
func (h *SectionHandler) List(c *gin.Context) {
	sections, err := h.sections.List(c.Request.Context(), c.Query("schoolYearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sections)
}

// Get godoc
// @Summary Get one section
// @Tags Sections
// @Produce json
// @Security BearerAuth
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sections/{id} [get]
func (h *SectionHandler) Get(c *gin.Context) {
	section, err := h.sections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, section)
}

// Create godoc
// @Summary Create a section
// @Tags Sections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.SectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Router /sections [post]
func (h *SectionHandler) Create(c *gin.Context) {
	var req service.SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.sections.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// Update godoc
// @Summary Update a section
// @Tags Sections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Section ID"
// @Param payload body service.SectionRequest true "Section payload"
// @Success 200 {object} response.Envelope
// @Router /sections/{id} [put]
func (h *SectionHandler) Update(c *gin.Context) {
	var req service.SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.sections.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, section)
}

// Delete godoc
// @Summary Delete a section
// @Tags Sections
// @Produce json
// @Security BearerAuth
// @Param id path string true "Section ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /sections/{id} [delete]
func (h *SectionHandler) Delete(c *gin.Context) {
	if err := h.sections.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSubjects godoc
// @Summary List subjects
// @Tags Sections
// @Produce json
// @Security BearerAuth
// @Param gradeLevel query string false "Filter by grade level"
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *SectionHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.sections.ListSubjects(c.Request.Context(), c.Query("gradeLevel"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, subjects)
}
