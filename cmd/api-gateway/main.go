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

	_ "github.com/campusworks/roster-api/api/swagger"
	"github.com/campusworks/roster-api/internal/clock"
	"github.com/campusworks/roster-api/internal/handler"
	"github.com/campusworks/roster-api/internal/middleware"
	"github.com/campusworks/roster-api/internal/repository"
	"github.com/campusworks/roster-api/internal/service"
	"github.com/campusworks/roster-api/pkg/cache"
	"github.com/campusworks/roster-api/pkg/config"
	"github.com/campusworks/roster-api/pkg/database"
	"github.com/campusworks/roster-api/pkg/jobs"
	"github.com/campusworks/roster-api/pkg/logger"
	corsmiddleware "github.com/campusworks/roster-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusworks/roster-api/pkg/middleware/requestid"
	"github.com/campusworks/roster-api/pkg/storage"
)

const (
	exportDir        = "data/exports"
	exportLinkTTL    = 15 * time.Minute
	exportRetention  = 24 * time.Hour
	exportSweepEvery = time.Hour
	shutdownTimeout  = 10 * time.Second
)

// @title Roster API
// @version 1.0.0
// @description Student assistant rostering: schedule generation, editing, attendance and availability.
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	exportStore, err := storage.NewExportStore(exportDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	exportSigner := storage.NewDownloadSigner(cfg.JWT.Secret, exportLinkTTL)

	clk := clock.System(cfg.Clock.UTCOffsetHours)
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	assistantRepo := repository.NewAssistantRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	timeEntryRepo := repository.NewTimeEntryRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	metricsService := service.NewMetricsService()
	notificationService := service.NewNotificationService(notificationRepo, clk, logr)
	authService := service.NewAuthService(userRepo, studentRepo, assistantRepo, notificationService, clk, cfg.JWT, validate, logr)
	availabilityService := service.NewAvailabilityService(availabilityRepo, assistantRepo, allocationRepo, studentRepo, db, redisClient, cfg.Resolver.CacheTTL, metricsService, validate, logr)
	attendanceService := service.NewAttendanceService(timeEntryRepo, scheduleRepo, allocationRepo, assistantRepo, notificationService, metricsService, clk, cfg.Attendance, validate, logr)
	schedulerService := service.NewSchedulerService(scheduleRepo, allocationRepo, assistantRepo, courseRepo, availabilityRepo, metricsService, clk, cfg.Scheduler, validate, logr)
	editorService := service.NewEditorService(scheduleRepo, allocationRepo, availabilityRepo, assistantRepo, notificationService, clk, validate, logr)
	requestService := service.NewRequestService(requestRepo, allocationRepo, notificationService, clk, validate, logr)
	viewService := service.NewScheduleViewService(scheduleRepo, allocationRepo, studentRepo, availabilityService, attendanceService, clk, logr)

	authHandler := handler.NewAuthHandler(authService)
	scheduleHandler := handler.NewScheduleHandler(viewService, exportStore, exportSigner)
	schedulerHandler := handler.NewSchedulerHandler(schedulerService)
	editorHandler := handler.NewEditorHandler(editorService)
	availabilityHandler := handler.NewAvailabilityHandler(availabilityService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService)
	requestHandler := handler.NewRequestHandler(requestService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/register", authHandler.Register)

	// Download links carry their own signed token.
	api.GET("/schedule/export/download", scheduleHandler.Download)

	authed := api.Group("", middleware.JWT(authService))
	{
		authed.POST("/auth/change-password", authHandler.ChangePassword)

		authed.GET("/schedule/current", scheduleHandler.Current)
		authed.GET("/schedule/export", scheduleHandler.Export)
		authed.GET("/volunteer/dashboard", scheduleHandler.Dashboard)

		authed.GET("/staff/availability", availabilityHandler.ListWindows)
		authed.POST("/staff/availability", availabilityHandler.AddWindow)
		authed.DELETE("/staff/availability/:id", availabilityHandler.RemoveWindow)

		authed.POST("/time-tracking/clock-in", attendanceHandler.ClockIn)
		authed.POST("/time-tracking/clock-out", attendanceHandler.ClockOut)
		authed.GET("/time-tracking/today", attendanceHandler.Today)
		authed.GET("/time-tracking/stats", attendanceHandler.Stats)
		authed.GET("/time-tracking/history", attendanceHandler.History)
		authed.GET("/time-tracking/distribution", attendanceHandler.Distribution)

		authed.POST("/requests", requestHandler.Submit)
		authed.GET("/requests", requestHandler.ListMine)
		authed.DELETE("/requests/:id", requestHandler.Cancel)

		authed.GET("/notifications", notificationHandler.List)
		authed.POST("/notifications/:id/read", notificationHandler.MarkRead)
	}

	admin := authed.Group("", middleware.AdminOnly())
	{
		admin.POST("/auth/registrations/:id", authHandler.ResolveRegistration)

		admin.POST("/schedule/generate", schedulerHandler.Generate)
		admin.POST("/schedule/save", editorHandler.Save)
		admin.POST("/schedule/add-staff", editorHandler.AddStaff)
		admin.POST("/schedule/remove-staff", editorHandler.RemoveStaff)
		admin.POST("/schedule/clear", editorHandler.Clear)
		admin.POST("/schedule/:id/publish", editorHandler.Publish)

		admin.GET("/staff/available", availabilityHandler.Available)
		admin.GET("/staff/check-availability", availabilityHandler.Check)
		admin.POST("/staff/check-availability/batch", availabilityHandler.CheckBatch)

		admin.POST("/time-tracking/mark-missed", attendanceHandler.MarkMissed)

		admin.GET("/requests/pending", requestHandler.ListPending)
		admin.POST("/requests/:id/resolve", requestHandler.Resolve)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	attendanceSweeper := jobs.NewSweeper("attendance-auto-complete", cfg.Attendance.SweepInterval, func(ctx context.Context) error {
		_, err := attendanceService.AutoCompleteSweep(ctx)
		return err
	}, logr)
	attendanceSweeper.Start(ctx)
	defer attendanceSweeper.Stop()

	exportSweeper := jobs.NewSweeper("export-cleanup", exportSweepEvery, func(context.Context) error {
		_, err := exportStore.CleanupOlderThan(exportRetention)
		return err
	}, logr)
	exportSweeper.Start(ctx)
	defer exportSweeper.Stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
