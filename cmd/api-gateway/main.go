package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/examdesk/exam-duty-api/internal/handler"
	"github.com/examdesk/exam-duty-api/internal/middleware"
	"github.com/examdesk/exam-duty-api/internal/repository"
	"github.com/examdesk/exam-duty-api/internal/service"
	"github.com/examdesk/exam-duty-api/pkg/cache"
	"github.com/examdesk/exam-duty-api/pkg/config"
	"github.com/examdesk/exam-duty-api/pkg/database"
	"github.com/examdesk/exam-duty-api/pkg/jobs"
	"github.com/examdesk/exam-duty-api/pkg/logger"
	corsmiddleware "github.com/examdesk/exam-duty-api/pkg/middleware/cors"
	reqidmiddleware "github.com/examdesk/exam-duty-api/pkg/middleware/requestid"
)

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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	var cacheRepo service.CacheRepository
	cacheEnabled := cfg.Directory.CacheEnabled
	if cacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, directory cache disabled", "error", err)
			cacheEnabled = false
		} else {
			repo := repository.NewCacheRepository(redisClient, logr)
			cacheRepo = repo
			defer repo.Close()
		}
	}

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Directory.CacheTTL, logr, cacheEnabled)

	examRepo := repository.NewExamRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	validate := validator.New()

	notificationSvc := service.NewNotificationService(notificationRepo, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)
	notificationSvc.StartQueue(context.Background())
	defer notificationSvc.StopQueue()

	examSvc := service.NewExamService(examRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, cacheSvc, logr)
	allocationSvc := service.NewAllocationService(examRepo, teacherRepo, notificationSvc, metricsSvc, logr, cfg.Allocator)
	exportSvc := service.NewExportService(examRepo, teacherRepo, logr)

	examHandler := handler.NewExamHandler(examSvc, allocationSvc, exportSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc, notificationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := buildRouter(cfg, logr, metricsSvc, examHandler, teacherHandler, metricsHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func buildRouter(
	cfg *config.Config,
	logr *zap.Logger,
	metricsSvc *service.MetricsService,
	examHandler *handler.ExamHandler,
	teacherHandler *handler.TeacherHandler,
	metricsHandler *handler.MetricsHandler,
) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)

	teachers := api.Group("/teachers")
	{
		teachers.GET("", teacherHandler.List)
		teachers.GET("/:id", teacherHandler.Get)
		teachers.GET("/:id/notifications", teacherHandler.Notifications)
		teachers.POST("/:id/notifications/:notificationId/read", teacherHandler.MarkNotificationRead)
	}

	exams := api.Group("/exams")
	{
		exams.POST("", examHandler.Create)
		exams.GET("", examHandler.List)
		exams.GET("/:id", examHandler.Get)
		exams.PATCH("/:id", examHandler.Update)
		exams.DELETE("/:id", examHandler.Delete)
		exams.POST("/:id/blocks", examHandler.AddBlock)
		exams.PATCH("/:id/blocks/:number", examHandler.UpdateBlock)
		exams.POST("/:id/blocks/:number/complete", examHandler.CompleteBlock)
		exams.PUT("/:id/blocks/:number/invigilator", examHandler.AssignInvigilator)
		exams.POST("/:id/allocate", examHandler.Allocate)
		exams.GET("/:id/duty-roster", examHandler.DutyRoster)
	}

	return r
}
