package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/nlsantiago/sis-api/api/swagger"
	"github.com/nlsantiago/sis-api/internal/handler"
	"github.com/nlsantiago/sis-api/internal/middleware"
	"github.com/nlsantiago/sis-api/internal/repository"
	"github.com/nlsantiago/sis-api/internal/router"
	"github.com/nlsantiago/sis-api/internal/service"
	"github.com/nlsantiago/sis-api/pkg/cache"
	"github.com/nlsantiago/sis-api/pkg/config"
	"github.com/nlsantiago/sis-api/pkg/database"
	"github.com/nlsantiago/sis-api/pkg/export"
	"github.com/nlsantiago/sis-api/pkg/jobs"
	"github.com/nlsantiago/sis-api/pkg/logger"
	"github.com/nlsantiago/sis-api/pkg/mailer"
	corsmiddleware "github.com/nlsantiago/sis-api/pkg/middleware/cors"
	reqidmiddleware "github.com/nlsantiago/sis-api/pkg/middleware/requestid"
	"github.com/nlsantiago/sis-api/pkg/storage"
)

// @title School Information System API
// @version 1.0.0
// @description Enrollment intake, student records, attendance, grades and dashboards
// @BasePath /api
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	uploads, err := storage.NewUploads(cfg.Uploads.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare uploads directory", "error", err)
	}

	validate := validator.New()

	// repositories
	schoolYearRepo := repository.NewSchoolYearRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	// outbound mail is optional; without an API key the admission notice
	// still renders a certificate, it just is not emailed.
	var mail mailer.Mailer
	if cfg.Mail.SendgridAPIKey != "" {
		mail = mailer.NewSendgridMailer(cfg.Mail.SendgridAPIKey, cfg.Mail.FromName, cfg.Mail.FromAddress)
	}

	metricsSvc := service.NewMetricsService()

	notificationSvc := service.NewNotificationService(export.NewCertificateRenderer(), uploads, mail, cfg.Mail.SchoolAddress, logr)
	notificationQueue := jobs.NewQueue("notifications", notificationSvc.Process, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		DepthGauge: metricsSvc.SetQueueDepth,
		Logger:     logr,
	})
	notificationSvc.BindQueue(notificationQueue)
	notificationSvc.BindMetrics(metricsSvc)
	notificationQueue.Start(ctx)
	defer notificationQueue.Stop()

	// services
	authSvc := service.NewAuthService(userRepo, auditRepo, cfg.JWT.Secret, cfg.JWT.Expiration, validate, logr)
	schoolYearSvc := service.NewSchoolYearService(schoolYearRepo, auditRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(applicationRepo, schoolYearSvc, notificationSvc, auditRepo, validate, logr)
	sectionSvc := service.NewSectionService(sectionRepo, enrollmentRepo, schoolYearSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, schoolYearSvc, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, schoolYearSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, enrollmentRepo, gradeRepo, attendanceRepo, schoolYearSvc, validate, logr)
	userSvc := service.NewUserService(userRepo, auditRepo, validate, logr)

	var dashboardSvc *service.DashboardService
	if cfg.Dashboard.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close() //nolint:errcheck
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		dashboardSvc = service.NewDashboardService(dashboardRepo, enrollmentRepo, gradeRepo, schoolYearSvc, cacheRepo, cfg.Dashboard.CacheTTL, logr)
		// attendance writes feed the cached aggregates
		attendanceSvc.BindCache(cacheRepo)
	} else {
		dashboardSvc = service.NewDashboardService(dashboardRepo, enrollmentRepo, gradeRepo, schoolYearSvc, nil, cfg.Dashboard.CacheTTL, logr)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handlers := router.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Enrollment:  handler.NewEnrollmentHandler(enrollmentSvc),
		SchoolYears: handler.NewSchoolYearHandler(schoolYearSvc),
		Sections:    handler.NewSectionHandler(sectionSvc),
		Attendance:  handler.NewAttendanceHandler(attendanceSvc),
		Grades:      handler.NewGradeHandler(gradeSvc),
		Students:    handler.NewStudentHandler(studentSvc),
		Users:       handler.NewUserHandler(userSvc),
		Dashboard:   handler.NewDashboardHandler(dashboardSvc),
	}
	router.Register(r, cfg.APIPrefix, handlers, authSvc, metricsSvc, uploads.Dir())

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
