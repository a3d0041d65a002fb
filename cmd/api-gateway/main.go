package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lms-grading-api/api/swagger"
	"github.com/noah-isme/lms-grading-api/internal/handler"
	"github.com/noah-isme/lms-grading-api/internal/middleware"
	"github.com/noah-isme/lms-grading-api/internal/repository"
	"github.com/noah-isme/lms-grading-api/internal/service"
	"github.com/noah-isme/lms-grading-api/pkg/cache"
	"github.com/noah-isme/lms-grading-api/pkg/config"
	"github.com/noah-isme/lms-grading-api/pkg/database"
	"github.com/noah-isme/lms-grading-api/pkg/jobs"
	"github.com/noah-isme/lms-grading-api/pkg/logger"
	"github.com/noah-isme/lms-grading-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/lms-grading-api/pkg/middleware/requestid"
	"github.com/noah-isme/lms-grading-api/pkg/tracing"
)

// @title LMS Grading API
// @version 1.0.0
// @description Activity scoring, course grade aggregation and materia grade propagation.
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.Env, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init tracing", "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metricsSvc, cfg.Grading.ActivityCacheTTL, logr, redisClient != nil)

	activityRepo := repository.NewActivityRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	gradeSvc := service.NewGradeService(
		repository.NewParameterRepository(db),
		repository.NewMateriaRepository(db),
		progressRepo,
		activityRepo,
		repository.NewGradeSummaryRepository(db),
		cacheSvc,
		metricsSvc,
		validate,
		logr,
	)

	queue := jobs.NewQueue("propagation", service.NewPropagationHandler(gradeSvc, logr), jobs.QueueConfig{
		Workers:    cfg.Grading.PropagationWorkers,
		MaxRetries: cfg.Grading.PropagationRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
		OnResult: func(job jobs.Job, err error) {
			metricsSvc.RecordJob(job.Type, err)
		},
	})
	queue.Start(ctx)
	defer queue.Stop()

	activitySvc := service.NewActivityService(activityRepo, progressRepo, cacheSvc, service.NewPropagationScheduler(queue, logr), metricsSvc, validate, logr, service.ActivityConfig{
		MaxAttempts:      cfg.Grading.MaxAttempts,
		PassingScore:     cfg.Grading.PassingScore,
		ActivityCacheTTL: cfg.Grading.ActivityCacheTTL,
		ResultsTTL:       cfg.Grading.ResultsTTL,
		SubmissionTTL:    cfg.Grading.SubmissionTTL,
	})
	authSvc := service.NewAuthService(service.AuthConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Audience: cfg.JWT.Audience})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(tracing.GinMiddleware(cfg.Tracing.ServiceName))
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(cors.New(corsConfig(cfg.CORS.AllowedOrigins)))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
		go limiter.Run(ctx.Done())
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	registerRoutes(api, handler.NewActivityHandler(activitySvc), handler.NewGradeHandler(gradeSvc, cfg.Grading.PropagateOnRead, logr), metricsHandler, limiter)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logr.Error("tracing shutdown failed", zap.Error(err))
	}
}

func registerRoutes(api *gin.RouterGroup, activities *handler.ActivityHandler, grades *handler.GradeHandler, metrics *handler.MetricsHandler, limiter *ratelimit.Limiter) {
	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if limiter == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{limiter.Middleware(), h}
	}

	activityRoutes := api.Group("/activities")
	activityRoutes.POST("/answers", limited(activities.SubmitAnswers)...)
	activityRoutes.GET("/attempts", activities.Attempts)
	activityRoutes.POST("/submissions/file", limited(activities.SubmitFile)...)
	activityRoutes.POST("/submissions/url", limited(activities.SubmitURL)...)

	gradeRoutes := api.Group("/grades")
	gradeRoutes.GET("/summary", grades.Summary)
	gradeRoutes.GET("/summary/export", grades.Export)
	gradeRoutes.GET("/materias", grades.Materias)
	gradeRoutes.POST("/propagate", grades.Propagate)
	gradeRoutes.POST("/update", middleware.RequireStaff(), grades.Update)

	api.GET("/metrics/summary", middleware.RequireStaff(), metrics.Summary)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", reqidmiddleware.Header)
	cfg.ExposeHeaders = []string{reqidmiddleware.Header, "Content-Disposition"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

