package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campusd/admission-api/api/swagger"
	"github.com/campusd/admission-api/internal/handler"
	"github.com/campusd/admission-api/internal/middleware"
	"github.com/campusd/admission-api/internal/models"
	"github.com/campusd/admission-api/internal/repository"
	"github.com/campusd/admission-api/internal/rules"
	"github.com/campusd/admission-api/internal/service"
	"github.com/campusd/admission-api/internal/verification"
	"github.com/campusd/admission-api/pkg/cache"
	"github.com/campusd/admission-api/pkg/config"
	"github.com/campusd/admission-api/pkg/database"
	"github.com/campusd/admission-api/pkg/logger"
	corsmiddleware "github.com/campusd/admission-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusd/admission-api/pkg/middleware/requestid"
)

// @title Admission Decision API
// @version 1.0.0
// @description Enrollment-approval backend: eligibility rules, seat capacity and verification-gated decisions
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, capacity cache disabled", "error", err)
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()

	ruleRepo := repository.NewRuleRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	waitlistRepo := repository.NewWaitlistRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	loadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	entries, err := ruleRepo.LoadAll(loadCtx)
	cancel()
	if err != nil {
		logr.Sugar().Warnw("failed to load admission rules, default rule applies to all courses", "error", err)
	}
	catalog := rules.NewCatalog(entries)
	logr.Sugar().Infow("admission rule catalog loaded", "entries", catalog.Len())

	decisionStore := repository.NewDecisionStore(db, cfg.Admissions.DecisionRetries, logr)
	decisionStore.SetRetryHook(metricsSvc.RecordDecisionRetry)

	verifier := verification.NewClient(cfg.Verification, logr)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "admission-api",
	})
	requestSvc := service.NewRequestService(requestRepo, studentRepo, nil, logr)
	capacitySvc := service.NewCapacityService(enrollmentRepo, waitlistRepo, catalog, cacheRepo, metricsSvc, cfg.Admissions.CapacityCacheTTL, logr)
	admissionSvc := service.NewAdmissionService(
		requestRepo,
		studentRepo,
		enrollmentRepo,
		decisionStore,
		catalog,
		verifier,
		capacitySvc,
		metricsSvc,
		logr,
		cfg.Admissions.RequireVerification,
	)

	authHandler := handler.NewAuthHandler(authSvc)
	requestHandler := handler.NewRequestHandler(requestSvc)
	decisionHandler := handler.NewDecisionHandler(admissionSvc)
	capacityHandler := handler.NewCapacityHandler(capacitySvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.POST("/enrollment-requests", requestHandler.Create)
	authed.GET("/enrollment-requests/:id", requestHandler.Get)
	authed.GET("/courses/:course/capacity", capacityHandler.Snapshot)

	admin := authed.Group("")
	admin.Use(middleware.RBAC(models.RoleAdmin))
	admin.GET("/enrollment-requests", requestHandler.List)
	admin.POST("/enrollment-requests/:id/decision", decisionHandler.Decide)
	admin.GET("/courses/:course/waitlist", capacityHandler.Waitlist)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "verification_gated", cfg.Admissions.RequireVerification)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
