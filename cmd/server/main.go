package main

import (
	"context"
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

	_ "github.com/evandijk/tutorbase-api/api/swagger"
	"github.com/evandijk/tutorbase-api/internal/handler"
	"github.com/evandijk/tutorbase-api/internal/middleware"
	"github.com/evandijk/tutorbase-api/internal/repository"
	"github.com/evandijk/tutorbase-api/internal/service"
	"github.com/evandijk/tutorbase-api/pkg/cache"
	"github.com/evandijk/tutorbase-api/pkg/config"
	"github.com/evandijk/tutorbase-api/pkg/database"
	"github.com/evandijk/tutorbase-api/pkg/logger"
	corsmiddleware "github.com/evandijk/tutorbase-api/pkg/middleware/cors"
	reqidmiddleware "github.com/evandijk/tutorbase-api/pkg/middleware/requestid"
)

// @title TutorBase API
// @version 1.0.0
// @description Private tutoring management: students, classes, calendar and income reports
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
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "tutorbase-api",
	})
	reportSvc := service.NewReportService(classRepo, cacheRepo, cfg.Reports, logr)
	studentSvc := service.NewStudentService(studentRepo, reportSvc, validate, logr)
	classSvc := service.NewClassService(classRepo, studentRepo, reportSvc, validate, logr)
	calendarSvc := service.NewCalendarService(classRepo, logr)
	scheduleSvc := service.NewScheduleService(cacheRepo, calendarSvc, classRepo, reportSvc, cfg.Calendar, logr)
	metricsSvc := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	classHandler := handler.NewClassHandler(classSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc, scheduleSvc)
	reportHandler := handler.NewReportHandler(reportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "cache unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	students := protected.Group("/students")
	{
		students.GET("", studentHandler.List)
		students.POST("", studentHandler.Create)
		students.GET("/:id", studentHandler.Get)
		students.PUT("/:id", studentHandler.Update)
		students.DELETE("/:id", studentHandler.Delete)
	}

	classes := protected.Group("/classes")
	{
		classes.GET("", classHandler.List)
		classes.POST("", classHandler.Create)
		classes.GET("/:id", classHandler.Get)
		classes.PUT("/:id", classHandler.Update)
		classes.DELETE("/:id", classHandler.Delete)
	}

	calendar := protected.Group("/calendar")
	{
		calendar.GET("/events", calendarHandler.Events)
		calendar.GET("/state", calendarHandler.State)
		calendar.PUT("/state", calendarHandler.UpdateState)
		calendar.POST("/navigate", calendarHandler.Navigate)
		calendar.POST("/today", calendarHandler.Today)
		calendar.POST("/slot", calendarHandler.SelectSlot)
		calendar.POST("/editor/close", calendarHandler.CloseEditor)
		calendar.POST("/delete/request", calendarHandler.RequestDelete)
		calendar.POST("/delete/confirm", calendarHandler.ConfirmDelete)
		calendar.POST("/delete/cancel", calendarHandler.CancelDelete)
	}

	reports := protected.Group("/reports")
	{
		reports.GET("/monthly", reportHandler.Monthly)
		reports.GET("/monthly/:key/export", reportHandler.Export)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown error", "error", err)
	}
}
