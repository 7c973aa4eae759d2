package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nlsantiago/sis-api/internal/service"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
	"github.com/nlsantiago/sis-api/pkg/response"
)

// SchoolYearHandler exposes academic year management endpoints.
type SchoolYearHandler struct {
	years *service.SchoolYearService
}

// NewSchoolYearHandler constructs SchoolYearHandler.
func NewSchoolYearHandler(years *service.SchoolYearService) *SchoolYearHandler {
	return &SchoolYearHandler{years: years}
}

// List godoc
// @Summary List school years
// @Tags SchoolYears
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /enrollment/school-years [get]
func (h *SchoolYearHandler) List(c *gin.Context) {
	years, err := h.years.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, years)
}

// Active godoc
// @Summary Get the active school year
// @Tags SchoolYears
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /enrollment/school-years/active [get]
func (h *SchoolYearHandler) Active(c *gin.Context) {
	year, err := h.years.Active(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, year)
}

// Create godoc
// @Summary Create a school year
// @Tags SchoolYears
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.SchoolYearRequest true "School year payload"
// @Success 201 {object} response.Envelope
// @Router /enrollment/school-years [post]
func (h *SchoolYearHandler) Create(c *gin.Context) {
	var req service.SchoolYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	year, err := h.years.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// Update godoc
// @Summary Update a school year
// @Tags SchoolYears
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "School year ID"
// @Param payload body service.SchoolYearRequest true "School year payload"
// @Success 200 {object} response.Envelope
// @Router /enrollment/school-years/{id} [put]
func (h *SchoolYearHandler) Update(c *gin.Context) {
	var req service.SchoolYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	year, err := h.years.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, year)
}

// Delete godoc
// @Summary Delete a school year
// @Tags SchoolYears
// @Produce json
// @Security BearerAuth
// @Param id path string true "School year ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollment/school-years/{id} [delete]
func (h *SchoolYearHandler) Delete(c *gin.Context) {
	if err := h.years.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetActive godoc
// @Summary Activate a school year
// @Tags SchoolYears
// @Produce json
// @Security BearerAuth
// @Param id path string true "School year ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollment/school-years/{id}/activate [post]
func (h *SchoolYearHandler) SetActive(c *gin.Context) {
	year, err := h.years.SetActive(c.Request.Context(), c.Param("id"), actorID(c), c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, year)
}
