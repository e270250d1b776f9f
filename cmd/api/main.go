package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campus-hub/clearance-api/api/swagger"
	"github.com/campus-hub/clearance-api/internal/handler"
	"github.com/campus-hub/clearance-api/internal/middleware"
	"github.com/campus-hub/clearance-api/internal/models"
	"github.com/campus-hub/clearance-api/internal/repository"
	"github.com/campus-hub/clearance-api/internal/service"
	"github.com/campus-hub/clearance-api/internal/workflow"
	"github.com/campus-hub/clearance-api/pkg/cache"
	"github.com/campus-hub/clearance-api/pkg/certificate"
	"github.com/campus-hub/clearance-api/pkg/config"
	"github.com/campus-hub/clearance-api/pkg/database"
	"github.com/campus-hub/clearance-api/pkg/logger"
	corsmiddleware "github.com/campus-hub/clearance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-hub/clearance-api/pkg/middleware/requestid"
	"github.com/campus-hub/clearance-api/pkg/storage"
)

// @title Campus Clearance API
// @version 1.0.0
// @description Approval workflow backend for university clearance requests
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The API degrades without Redis: no stats cache, no password resets.
		logr.Sugar().Warnw("redis unavailable", "error", err)
		redisClient = nil
	}

	documents, err := storage.NewDocumentStore(cfg.Uploads.StorageDir, cfg.Uploads.AllowedExtensions)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare uploads directory", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	workflowRepo := repository.NewWorkflowRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	resetCodes := repository.NewResetCodeRepository(redisClient)

	catalog := workflow.NewCatalog(workflowRepo, workflow.DefaultRules())
	renderer := certificate.NewRenderer()

	authService := service.NewAuthService(userRepo, resetCodes, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "clearance-api",
		ResetCodeTTL:       cfg.PasswordReset.CodeTTL,
	})
	statsService := service.NewStatsService(requestRepo, userRepo, cacheRepo, auditRepo, logr, cfg.Stats.CacheTTL)
	requestService := service.NewRequestService(requestRepo, userRepo, catalog, renderer, auditRepo, statsService, validate, logr, service.RequestConfig{
		Institution:    cfg.Certificates.Institution,
		IssuingOffice:  cfg.Certificates.IssuingOffice,
		ValidityMonths: cfg.Certificates.ValidityMonths,
	})
	workflowService := service.NewWorkflowService(workflowRepo, requestRepo, catalog, auditRepo, validate, logr)
	userService := service.NewUserService(userRepo, auditRepo, validate, logr)
	registrationService := service.NewRegistrationService(registrationRepo, userRepo, auditRepo, validate, logr)
	metricsService := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authService)
	requestHandler := handler.NewRequestHandler(requestService, documents, metricsService, cfg.Uploads.MaxFilesPerUpload)
	workflowHandler := handler.NewWorkflowHandler(workflowService)
	userHandler := handler.NewUserHandler(userService)
	registrationHandler := handler.NewRegistrationHandler(registrationService)
	adminHandler := handler.NewAdminHandler(statsService)
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
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/register", registrationHandler.Register)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/verify-reset-code", authHandler.VerifyResetCode)
		auth.POST("/reset-password", authHandler.ResetPassword)

		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authService), authHandler.ChangePassword)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))
	{
		protected.GET("/me", userHandler.Me)
		protected.PUT("/me", userHandler.UpdateMe)

		requests := protected.Group("/requests")
		{
			requests.POST("", middleware.RequireRoles(models.RoleStudent), requestHandler.Create)
			requests.GET("", requestHandler.List)
			requests.GET("/pending", middleware.RequireRoles(models.RoleApprover, models.RoleTeacher, models.RoleAdmin), requestHandler.ListPending)
			requests.GET("/:id", requestHandler.Get)
			requests.POST("/:id/decision", middleware.RequireRoles(models.RoleApprover, models.RoleTeacher, models.RoleAdmin), requestHandler.Decide)
			requests.POST("/:id/cancel", middleware.RequireRoles(models.RoleStudent), requestHandler.Cancel)
			requests.POST("/:id/reassign", middleware.RequireRoles(models.RoleAdmin), requestHandler.Reassign)
			requests.POST("/:id/documents", middleware.RequireRoles(models.RoleStudent), middleware.Audit(auditRepo, models.AuditActionDocumentUpload, "request"), requestHandler.UploadDocuments)
			requests.GET("/:id/certificate", middleware.Audit(auditRepo, models.AuditActionCertificateDownload, "request"), requestHandler.Certificate)
		}

		workflows := protected.Group("/workflows")
		{
			workflows.GET("/resolve", workflowHandler.Resolve)
			workflows.GET("", middleware.RequireRoles(models.RoleAdmin), workflowHandler.List)
			workflows.PUT("", middleware.RequireRoles(models.RoleAdmin), workflowHandler.Update)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("/users", userHandler.List)
			admin.POST("/users", userHandler.Create)
			admin.PATCH("/users/:id/status", userHandler.UpdateStatus)
			admin.DELETE("/users/:id", userHandler.Delete)
			admin.GET("/registrations", registrationHandler.List)
			admin.POST("/registrations/:id/review", registrationHandler.Review)
			admin.GET("/stats", adminHandler.Stats)
			admin.GET("/audit-logs", adminHandler.AuditLogs)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
