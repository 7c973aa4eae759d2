package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nlsantiago/sis-api/internal/service"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
	"github.com/nlsantiago/sis-api/pkg/response"
)

// GradeHandler exposes grade read endpoints.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// ListByStudent godoc
// @Summary A student's grades
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param subjectId query string false "Filter by subject"
// @Param schoolYearId query string false "School year (defaults to active)"
// @Success 200 {object} response.Envelope
// @Router /grades/student/{id} [get]
func (h *GradeHandler) ListByStudent(c *gin.Context) {
	grades, err := h.grades.ListByStudent(c.Request.Context(), c.Param("id"), c.Query("subjectId"), c.Query("schoolYearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grades)
}

// RecordScore godoc
// @Summary Acknowledge a score entry
// @Description Validates and acknowledges the score without storing it; grade entry is handled through the e-Class Record upload flow.
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.RecordScoreRequest true "Score payload"
// @Success 200 {object} response.Envelope
// @Router /grades/record [post]
func (h *GradeHandler) RecordScore(c *gin.Context) {
	var req service.RecordScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.grades.RecordScore(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "score received; grades are finalized through the e-Class Record upload"})
}
