package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/claudyne/claudyne-content-api/api/swagger"
	"github.com/claudyne/claudyne-content-api/internal/handler"
	"github.com/claudyne/claudyne-content-api/internal/middleware"
	"github.com/claudyne/claudyne-content-api/internal/models"
	"github.com/claudyne/claudyne-content-api/internal/repository"
	"github.com/claudyne/claudyne-content-api/internal/service"
	"github.com/claudyne/claudyne-content-api/pkg/cache"
	"github.com/claudyne/claudyne-content-api/pkg/config"
	"github.com/claudyne/claudyne-content-api/pkg/database"
	"github.com/claudyne/claudyne-content-api/pkg/export"
	"github.com/claudyne/claudyne-content-api/pkg/jobs"
	"github.com/claudyne/claudyne-content-api/pkg/logger"
	corsmiddleware "github.com/claudyne/claudyne-content-api/pkg/middleware/cors"
	reqidmiddleware "github.com/claudyne/claudyne-content-api/pkg/middleware/requestid"
	"github.com/claudyne/claudyne-content-api/pkg/storage"
)

// @title Claudyne Content API
// @version 1.0.0
// @description Level-aware content catalog with an editorial publication pipeline
// @BasePath /api/v1
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

	// Refuse to start with an incomplete level mapping; a gap here would
	// silently hide content from a whole grade of students.
	levelSvc := service.NewLevelService(logr)
	if err := levelSvc.Verify(); err != nil {
		logr.Sugar().Fatalw("level mapping incomplete", "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, public catalog caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsSvc := service.NewMetricsService()

	subjectRepo := repository.NewSubjectRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, metricsSvc, logr)

	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "claudyne-content-api",
		Audience:           []string{"claudyne"},
	})

	catalogOpts := []service.CatalogServiceOption{service.WithCatalogMetrics(metricsSvc)}
	if redisClient != nil {
		catalogOpts = append(catalogOpts, service.WithCatalogCache(cacheRepo, cfg.Catalog.PublicCacheTTL))
	}
	catalogSvc := service.NewCatalogService(subjectRepo, lessonRepo, levelSvc, logr, catalogOpts...)
	publicationSvc := service.NewPublicationService(subjectRepo, lessonRepo, auditRepo, cacheRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, auditRepo, cacheRepo, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, subjectRepo, auditRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, auditRepo, validate, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportRepo := repository.NewExportRepository(db)
		exportSvc = service.NewExportService(exportRepo, subjectRepo, lessonRepo, store, signer, auditRepo, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, export.NewCSVExporter(), export.NewPDFExporter())

		queue := jobs.NewQueue("exports", exportSvc.ProcessJob, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		exportSvc.AttachQueue(queue)
		exportSvc.StartCleanup(ctx, cfg.Exports.CleanupInterval)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc, studentSvc, levelSvc, metricsSvc)
	contentHandler := handler.NewContentHandler(subjectSvc, lessonSvc, publicationSvc, metricsSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

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
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	catalog := api.Group("")
	catalog.Use(middleware.OptionalJWT(authSvc))
	{
		catalog.GET("/subjects", catalogHandler.ListSubjects)
		catalog.GET("/subjects/:id/lessons", catalogHandler.ListLessons)
		catalog.GET("/mapping", catalogHandler.ListMappings)
		catalog.GET("/mapping/:code", catalogHandler.GetMapping)
	}

	content := api.Group("/content")
	content.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		content.POST("/subjects", contentHandler.CreateSubject)
		content.POST("/subjects/:id/lessons", contentHandler.CreateLesson)
		content.DELETE("/subjects/:id", contentHandler.DeleteSubject)
		content.POST("/:type/:id/transition", contentHandler.Transition)
		content.PATCH("/:type/:id/active", contentHandler.SetActive)
	}

	students := api.Group("/students")
	students.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent))
	{
		students.GET("/me", studentHandler.Me)
		students.PATCH("/me/settings", studentHandler.UpdateSettings)
	}

	if exportSvc != nil {
		exportHandler := handler.NewExportHandler(exportSvc)
		exports := api.Group("/exports")
		exports.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
		{
			exports.POST("", exportHandler.Create)
			exports.GET("/:id", exportHandler.Status)
		}
		// Download is authorized by the signed token alone.
		api.GET("/export/:token",
			middleware.Audit(auditRepo, models.AuditActionExportDownload, "export"),
			exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
