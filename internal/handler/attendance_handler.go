package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nlsantiago/sis-api/internal/service"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
	"github.com/nlsantiago/sis-api/pkg/response"
)

// AttendanceHandler exposes the attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Roster godoc
// @Summary Attendance sheet for a section and date
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param sectionId query string true "Section ID"
// @Param date query string false "Date (YYYY-MM-DD, defaults to today)"
// @Param schoolYearId query string false "School year (defaults to active)"
// @Success 200 {object} response.Envelope
// @Router /attendance/roster [get]
func (h *AttendanceHandler) Roster(c *gin.Context) {
	var date time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		date = parsed
	}

	roster, err := h.attendance.Roster(c.Request.Context(), c.Query("sectionId"), date, c.Query("schoolYearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, roster)
}

// Save godoc
// @Summary Save attendance for a section and date
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.SaveAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Save(c *gin.Context) {
	var req service.SaveAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.attendance.Save(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"saved": len(req.Records)})
}

// StudentHistory godoc
// @Summary A student's recent attendance
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param schoolYearId query string false "School year (defaults to active)"
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /attendance/student/{id} [get]
func (h *AttendanceHandler) StudentHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	rows, err := h.attendance.StudentHistory(c.Request.Context(), c.Param("id"), c.Query("schoolYearId"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}
