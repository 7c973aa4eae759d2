package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nlsantiago/sis-api/internal/models"
	"github.com/nlsantiago/sis-api/internal/service"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
	"github.com/nlsantiago/sis-api/pkg/response"
)

// DashboardHandler exposes the role-specific landing views.
type DashboardHandler struct {
	dashboards *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboards *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

// TeacherStats godoc
// @Summary Teacher dashboard aggregates, scoped to the adviser's sections
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param schoolYearId query string false "School year (defaults to active)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/teacher [get]
func (h *DashboardHandler) TeacherStats(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	adviserID := ""
	if claims.Role == models.RoleTeacher {
		adviserID = claims.UserID
	}
	stats, err := h.dashboards.TeacherStats(c.Request.Context(), c.Query("schoolYearId"), adviserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// StudentOverview godoc
// @Summary Student/parent dashboard
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param schoolYearId query string false "School year (defaults to active)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /dashboard/student [get]
func (h *DashboardHandler) StudentOverview(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	overview, err := h.dashboards.StudentOverview(c.Request.Context(), claims.Email, c.Query("schoolYearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, overview)
}

// Events godoc
// @Summary Upcoming school events
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /dashboard/events [get]
func (h *DashboardHandler) Events(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	events, err := h.dashboards.Events(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, events)
}

// Notices godoc
// @Summary Latest notice-board entries
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /dashboard/notices [get]
func (h *DashboardHandler) Notices(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	notices, err := h.dashboards.Notices(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, notices)
}
