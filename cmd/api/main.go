package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/asiste-app/asiste-api/api/swagger"
	"github.com/asiste-app/asiste-api/internal/handler"
	internalmiddleware "github.com/asiste-app/asiste-api/internal/middleware"
	"github.com/asiste-app/asiste-api/internal/models"
	"github.com/asiste-app/asiste-api/internal/repository"
	"github.com/asiste-app/asiste-api/internal/service"
	"github.com/asiste-app/asiste-api/pkg/cache"
	"github.com/asiste-app/asiste-api/pkg/config"
	"github.com/asiste-app/asiste-api/pkg/database"
	"github.com/asiste-app/asiste-api/pkg/logger"
	corsmiddleware "github.com/asiste-app/asiste-api/pkg/middleware/cors"
	reqidmiddleware "github.com/asiste-app/asiste-api/pkg/middleware/requestid"
)

// @title Asiste API
// @version 1.0.0
// @description QR-based class attendance with geofence validation
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
		// The dashboard cache is an optimisation; run without it.
		logr.Warn("redis unavailable, dashboard caching disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	sessionSvc := service.NewSessionService(sessionRepo, logr, metricsSvc, cfg.Attendance.QRImageSize)
	attendanceSvc := service.NewAttendanceService(
		attendanceRepo, userRepo, sessionRepo, validate, logr, metricsSvc,
		cfg.Attendance.ThresholdMeters())
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr,
		cfg.Dashboard.CacheEnabled && redisClient != nil)
	statsSvc := service.NewStatsService(attendanceRepo, sessionRepo, userRepo, cacheSvc, logr)
	exportSvc := service.NewExportService(statsSvc, logr)

	r := buildRouter(cfg, logr, routerDeps{
		auth:       authSvc,
		metrics:    metricsSvc,
		authH:      handler.NewAuthHandler(authSvc),
		sessionH:   handler.NewSessionHandler(sessionSvc),
		attendH:    handler.NewAttendanceHandler(attendanceSvc),
		dashboardH: handler.NewDashboardHandler(statsSvc),
		exportH:    handler.NewExportHandler(exportSvc),
		metricsH:   handler.NewMetricsHandler(metricsSvc),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

type routerDeps struct {
	auth       *service.AuthService
	metrics    *service.MetricsService
	authH      *handler.AuthHandler
	sessionH   *handler.SessionHandler
	attendH    *handler.AttendanceHandler
	dashboardH *handler.DashboardHandler
	exportH    *handler.ExportHandler
	metricsH   *handler.MetricsHandler
}

func buildRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(deps.metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", deps.metricsH.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	teacher := string(models.RoleTeacher)
	student := string(models.RoleStudent)

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/register", deps.authH.Register)
	api.POST("/auth/login", deps.authH.Login)
	api.POST("/auth/device/verify", deps.authH.VerifyDevice)

	protected := api.Group("")
	protected.Use(internalmiddleware.JWT(deps.auth))

	protected.POST("/sessions", internalmiddleware.RequireRoles(teacher), deps.sessionH.Open)
	protected.GET("/sessions/open", deps.sessionH.GetOpen)
	protected.POST("/sessions/:id/close", internalmiddleware.RequireRoles(teacher), deps.sessionH.Close)
	protected.GET("/sessions/:id/attendance", internalmiddleware.RequireRoles(teacher), deps.dashboardH.ClassRoster)
	protected.GET("/sessions/:id/attendance/export", internalmiddleware.RequireRoles(teacher), deps.exportH.SessionRoster)

	protected.POST("/attendance", internalmiddleware.RequireRoles(student), deps.attendH.Record)
	protected.POST("/attendance/:id/justify", internalmiddleware.RequireRoles(teacher), deps.attendH.Justify)

	protected.GET("/students/:id/stats", internalmiddleware.RequireRoles(teacher, "SELF"), deps.dashboardH.StudentStats)
	protected.GET("/students/:id/activity", internalmiddleware.RequireRoles(teacher, "SELF"), deps.attendH.Activity)
	protected.GET("/teachers/:id/dashboard", internalmiddleware.RequireRoles(teacher), deps.dashboardH.TeacherDashboard)

	return r
}
