package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nlsantiago/sis-api/internal/models"
	"github.com/nlsantiago/sis-api/internal/service"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
	"github.com/nlsantiago/sis-api/pkg/response"
)

// EnrollmentHandler exposes the application intake and approval endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Submit godoc
// @Summary Submit an enrollment application
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body service.SubmitApplicationRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /enrollment/submit [post]
func (h *EnrollmentHandler) Submit(c *gin.Context) {
	var req service.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	app, err := h.enrollments.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// List godoc
// @Summary List enrollment applications
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param gradeLevel query string false "Filter by grade level"
// @Param search query string false "Search name, LRN or application number"
// @Param schoolYearId query string false "School year (defaults to active)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollment/applications [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.ApplicationFilter
	filter.Status = models.ApplicationStatus(c.Query("status"))
	filter.GradeLevel = c.Query("gradeLevel")
	filter.Search = c.Query("search")
	filter.SchoolYearID = c.Query("schoolYearId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	applications, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applications, pagination)
}

// Get godoc
// @Summary Get one application
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollment/applications/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	app, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, app)
}

// ChangeStatus godoc
// @Summary Change an application's status
// @Tags Enrollment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param payload body service.StatusChangeRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /enrollment/applications/{id}/status [put]
func (h *EnrollmentHandler) ChangeStatus(c *gin.Context) {
	var req service.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	app, err := h.enrollments.ChangeStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, app)
}

// BulkChangeStatus godoc
// @Summary Change the status of several applications
// @Tags Enrollment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.BulkStatusRequest true "Bulk status payload"
// @Success 200 {object} response.Envelope
// @Router /enrollment/applications/bulk-status [put]
func (h *EnrollmentHandler) BulkChangeStatus(c *gin.Context) {
	var req service.BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.enrollments.BulkChangeStatus(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"updated": len(req.IDs)})
}

// AuditTrail godoc
// @Summary Audit entries for an application
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollment/applications/{id}/audit [get]
func (h *EnrollmentHandler) AuditTrail(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.enrollments.AuditTrail(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// Approve godoc
// @Summary Approve an application
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollment/applications/{id}/approve [post]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	app, err := h.enrollments.Approve(c.Request.Context(), c.Param("id"), actorID(c), c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, app)
}

// Statistics godoc
// @Summary Application counts per status
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Param schoolYearId query string false "School year (defaults to active)"
// @Success 200 {object} response.Envelope
// @Router /enrollment/statistics [get]
func (h *EnrollmentHandler) Statistics(c *gin.Context) {
	counts, err := h.enrollments.Statistics(c.Request.Context(), c.Query("schoolYearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, counts)
}
