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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/rtdacademy/rtd-connect-api/api/swagger"
	"github.com/rtdacademy/rtd-connect-api/internal/eligibility"
	"github.com/rtdacademy/rtd-connect-api/internal/handler"
	"github.com/rtdacademy/rtd-connect-api/internal/middleware"
	"github.com/rtdacademy/rtd-connect-api/internal/models"
	"github.com/rtdacademy/rtd-connect-api/internal/repository"
	"github.com/rtdacademy/rtd-connect-api/internal/service"
	"github.com/rtdacademy/rtd-connect-api/pkg/cache"
	"github.com/rtdacademy/rtd-connect-api/pkg/config"
	"github.com/rtdacademy/rtd-connect-api/pkg/database"
	"github.com/rtdacademy/rtd-connect-api/pkg/jobs"
	"github.com/rtdacademy/rtd-connect-api/pkg/logger"
	corsmiddleware "github.com/rtdacademy/rtd-connect-api/pkg/middleware/cors"
	reqidmiddleware "github.com/rtdacademy/rtd-connect-api/pkg/middleware/requestid"
	"github.com/rtdacademy/rtd-connect-api/pkg/scheduler"
	"github.com/rtdacademy/rtd-connect-api/pkg/validation"
)

// @title RTD Connect Eligibility API
// @version 1.0.0
// @description Term reconciliation against PASI and home education funding eligibility.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, running without cache", zap.Error(err))
		}
	}

	validate := validation.New()
	metricsSvc := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, cfg.Cache.KeyPrefix, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TermMappingTTL, logr, redisClient != nil)

	configurationSvc := service.NewConfigurationService(repository.NewConfigurationRepository(db), validate, logr, service.ConfigurationServiceConfig{
		Defaults: map[string]string{
			service.SettingTermCutoffDate: cfg.Eligibility.TermCutoffDate,
		},
	})
	termMappingSvc := service.NewTermMappingService(repository.NewTermMappingRepository(db), cacheSvc, cfg.Cache.TermMappingTTL, logr)
	termSvc := service.NewTermReconciliationService(
		repository.NewEnrollmentRepository(db),
		repository.NewCourseRepository(db),
		termMappingSvc,
		configurationSvc,
		eligibility.NewTermEvaluator(cfg.Eligibility.Location()),
		validate,
		logr,
		service.TermReconciliationConfig{Cache: cacheSvc, CourseTTL: cfg.Cache.CourseListTTL, Metrics: metricsSvc},
	)
	fundingSvc := service.NewFundingService(
		repository.NewStudentRepository(db),
		configurationSvc,
		eligibility.NewFundingEvaluator(eligibility.FundingRates{
			Kindergarten: cfg.Eligibility.KindergartenRate,
			Grades1To12:  cfg.Eligibility.GradesRate,
		}),
		validate,
		logr,
		service.FundingServiceConfig{Metrics: metricsSvc},
	)
	authSvc := service.NewAuthService(service.AuthConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	fundingQueue := jobs.NewQueue("funding", fundingSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Funding.WorkerConcurrency,
		MaxRetries: cfg.Funding.WorkerRetries,
		RetryDelay: 30 * time.Second,
		Logger:     logr,
	})
	fundingSvc.AttachQueue(fundingQueue)
	if err := metricsSvc.RegisterQueue(fundingQueue); err != nil {
		logr.Warn("failed to register queue metrics", zap.Error(err))
	}
	fundingQueue.Start(ctx)
	defer fundingQueue.Stop()

	cronScheduler := scheduler.New(logr)
	if err := cronScheduler.Register("funding-recompute", cfg.Funding.RecomputeSchedule, fundingSvc.ScheduledRecompute); err != nil {
		logr.Fatal("invalid funding recompute schedule", zap.Error(err))
	}
	cronScheduler.Start(ctx)
	defer cronScheduler.Stop()

	dependencies := map[string]handler.Pinger{"postgres": db, "redis": nil}
	if redisClient != nil {
		dependencies["redis"] = handler.PingFunc(cacheRepo.Ping)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	registerRoutes(r, cfg, routeHandlers{
		auth:          authSvc,
		metrics:       handler.NewMetricsHandler(metricsSvc, dependencies),
		funding:       handler.NewFundingHandler(fundingSvc),
		terms:         handler.NewTermHandler(termSvc),
		termMappings:  handler.NewTermMappingHandler(termMappingSvc),
		configuration: handler.NewConfigurationHandler(configurationSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type routeHandlers struct {
	auth          *service.AuthService
	metrics       *handler.MetricsHandler
	funding       *handler.FundingHandler
	terms         *handler.TermHandler
	termMappings  *handler.TermMappingHandler
	configuration *handler.ConfigurationHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, h routeHandlers) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, middleware.JWT(h.auth))
	staff := middleware.RequireRoles(models.RoleStaff)
	admin := middleware.RequireRoles()

	api.POST("/funding/eligibility", middleware.RequireRoles(models.RoleStaff, models.RoleParent), h.funding.Determine)
	api.GET("/students/:id/funding-eligibility", middleware.RequireRoles(models.RoleStaff, models.RoleParent), h.funding.ForStudent)
	api.POST("/funding/recompute", admin, h.funding.Recompute)

	terms := api.Group("/terms", staff)
	terms.POST("/evaluate", h.terms.Evaluate)
	terms.GET("/reconciliation", h.terms.List)
	terms.GET("/reconciliation/summary", h.terms.Summary)
	terms.GET("/reconciliation/export", h.terms.Export)
	terms.PUT("/reconciliation/:id/review", h.terms.Review)
	terms.GET("/mappings", h.termMappings.Get)
	terms.PUT("/mappings", admin, h.termMappings.Replace)

	configuration := api.Group("/configuration", staff)
	configuration.GET("", h.configuration.List)
	configuration.GET("/:key", h.configuration.Get)
	configuration.PUT("", admin, h.configuration.BulkUpdate)
	configuration.PUT("/:key", admin, h.configuration.Update)
	configuration.DELETE("/:key", admin, h.configuration.Reset)
}
