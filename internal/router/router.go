package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nlsantiago/sis-api/internal/handler"
	"github.com/nlsantiago/sis-api/internal/middleware"
	"github.com/nlsantiago/sis-api/internal/models"
	"github.com/nlsantiago/sis-api/internal/service"
)

// Handlers carries every HTTP handler the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Enrollment  *handler.EnrollmentHandler
	SchoolYears *handler.SchoolYearHandler
	Sections    *handler.SectionHandler
	Attendance  *handler.AttendanceHandler
	Grades      *handler.GradeHandler
	Students    *handler.StudentHandler
	Users       *handler.UserHandler
	Dashboard   *handler.DashboardHandler
}

// Register mounts the API route table under the given prefix. The public
// surface is deliberately small: login, the application submission, the
// active school year, and everything else sits behind JWT + RBAC.
func Register(r *gin.Engine, prefix string, h Handlers, auth *service.AuthService, metrics *service.MetricsService, uploadsDir string) {
	api := r.Group(prefix)
	authed := middleware.JWT(auth)

	admin := middleware.RequireRoles(models.RoleAdministrator)
	staff := middleware.RequireRoles(models.RoleAdministrator, models.RoleTeacher)
	family := middleware.RequireRoles(models.RoleStudent, models.RoleParent, models.RoleAdministrator)
	selfOrStaff := middleware.RBAC(string(models.RoleAdministrator), string(models.RoleTeacher), "SELF")

	// auth
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/verify", h.Auth.Verify)

	// enrollment intake and approval
	enrollment := api.Group("/enrollment")
	{
		enrollment.POST("/submit", h.Enrollment.Submit)
		enrollment.GET("/applications", authed, staff, h.Enrollment.List)
		enrollment.GET("/applications/:id", authed, admin, h.Enrollment.Get)
		enrollment.PUT("/applications/:id/status", authed, admin, h.Enrollment.ChangeStatus)
		enrollment.PUT("/applications/bulk-status", authed, admin, h.Enrollment.BulkChangeStatus)
		enrollment.POST("/applications/:id/approve", authed, admin, h.Enrollment.Approve)
		enrollment.GET("/applications/:id/audit", authed, admin, h.Enrollment.AuditTrail)
		enrollment.GET("/statistics", authed, admin, h.Enrollment.Statistics)

		enrollment.GET("/school-years", authed, h.SchoolYears.List)
		enrollment.GET("/school-years/active", h.SchoolYears.Active)
		enrollment.POST("/school-years", authed, admin, h.SchoolYears.Create)
		enrollment.PUT("/school-years/:id", authed, admin, h.SchoolYears.Update)
		enrollment.DELETE("/school-years/:id", authed, admin, h.SchoolYears.Delete)
		enrollment.POST("/school-years/:id/activate", authed, admin, h.SchoolYears.SetActive)
	}

	// sections and curriculum
	api.GET("/sections", authed, staff, h.Sections.List)
	api.GET("/sections/:id", authed, staff, h.Sections.Get)
	api.POST("/sections", authed, admin, h.Sections.Create)
	api.PUT("/sections/:id", authed, admin, h.Sections.Update)
	api.DELETE("/sections/:id", authed, admin, h.Sections.Delete)
	api.GET("/subjects", authed, h.Sections.ListSubjects)

	// attendance
	api.GET("/attendance/roster", authed, staff, h.Attendance.Roster)
	api.POST("/attendance", authed, staff, h.Attendance.Save)
	api.GET("/attendance/student/:id", authed, selfOrStaff, h.Attendance.StudentHistory)

	// grades
	api.GET("/grades/student/:id", authed, selfOrStaff, h.Grades.ListByStudent)
	api.POST("/grades/record", authed, staff, h.Grades.RecordScore)

	// students
	api.GET("/students", authed, staff, h.Students.List)
	api.GET("/students/:id", authed, selfOrStaff, h.Students.Detail)
	api.POST("/students", authed, admin, h.Students.Create)
	api.PUT("/students/:id", authed, admin, h.Students.Update)
	api.DELETE("/students/:id", authed, admin, h.Students.Delete)

	// users
	api.GET("/users", authed, admin, h.Users.List)
	api.GET("/users/:id", authed, middleware.RBAC(string(models.RoleAdministrator), "SELF"), h.Users.Get)
	api.POST("/users", authed, admin, h.Users.Create)
	api.PUT("/users/:id", authed, admin, h.Users.Update)
	api.DELETE("/users/:id", authed, admin, h.Users.Delete)

	// dashboards
	api.GET("/dashboard/teacher", authed, staff, h.Dashboard.TeacherStats)
	api.GET("/dashboard/student", authed, family, h.Dashboard.StudentOverview)
	api.GET("/dashboard/events", h.Dashboard.Events)
	api.GET("/dashboard/notices", h.Dashboard.Notices)

	// generated certificates
	if uploadsDir != "" {
		r.Static("/uploads", uploadsDir)
	}

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
