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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/kiosk-attendance-api/api/swagger"
	"github.com/noah-isme/kiosk-attendance-api/internal/handler"
	"github.com/noah-isme/kiosk-attendance-api/internal/middleware"
	"github.com/noah-isme/kiosk-attendance-api/internal/repository"
	"github.com/noah-isme/kiosk-attendance-api/internal/service"
	"github.com/noah-isme/kiosk-attendance-api/pkg/cache"
	"github.com/noah-isme/kiosk-attendance-api/pkg/cloudinary"
	"github.com/noah-isme/kiosk-attendance-api/pkg/config"
	"github.com/noah-isme/kiosk-attendance-api/pkg/database"
	"github.com/noah-isme/kiosk-attendance-api/pkg/jobs"
	"github.com/noah-isme/kiosk-attendance-api/pkg/logger"
	"github.com/noah-isme/kiosk-attendance-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/kiosk-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/kiosk-attendance-api/pkg/middleware/requestid"
	"github.com/noah-isme/kiosk-attendance-api/pkg/sheets"
)

// @title Kiosk Attendance API
// @version 1.0.0
// @description Front-desk check-in, student directory and ID cards
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	sender, err := mailer.New(cfg.Mail, cfg.School.Name, logr.Named("mailer"))
	if err != nil {
		return err
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	loc := cfg.Attendance.Location

	students := repository.NewStudentRepository(db)
	ledger := repository.NewAttendanceRepository(db)
	sessions := repository.NewSessionRepository(redisClient)
	defer sessions.Close() //nolint:errcheck

	mirror, err := newMirror(ctx, cfg, ledger, metrics, logr)
	if err != nil {
		return err
	}

	notifier := service.NewNotificationService(sender, validate, cfg.School.Name, loc, logr.Named("notifier"))
	effects := service.NewSideEffectService(mirror, notifier, metrics, logr.Named("outbox"))
	outbox, err := newDispatcher(cfg.Outbox, redisClient, effects.Handle, logr.Named("outbox"))
	if err != nil {
		return err
	}
	outbox.Start(ctx)
	defer outbox.Stop()

	images := cloudinary.New(cfg.Cloudinary)
	studentSvc := service.NewStudentService(students, images, validate, logr.Named("students"))
	cardSvc := service.NewCardService(studentSvc, images, nil, cfg.School.Name, cfg.School.Tagline, logr.Named("cards"))
	attendanceSvc := service.NewAttendanceService(students, ledger, mirror, outbox, validate, metrics, loc, logr.Named("attendance"))
	exportSvc := service.NewExportService(ledger, nil, nil, validate, loc, logr.Named("export"))
	authSvc := service.NewAuthService(sessions, validate, logr.Named("auth"), service.AuthConfig{
		Secret:      cfg.Session.Secret,
		SecretHash:  cfg.Session.SecretHash,
		TokenSecret: cfg.Session.TokenSecret,
		TokenTTL:    cfg.Session.TTL,
		Issuer:      cfg.Session.Issuer,
	})
	if cfg.Session.Secret == "" && cfg.Session.SecretHash == "" {
		logr.Warn("no access secret configured, kiosks cannot be unlocked")
	}

	r := newRouter(cfg, logr, routes{
		db:         db,
		metrics:    metrics,
		auth:       handler.NewAuthHandler(authSvc),
		authSvc:    authSvc,
		attendance: handler.NewAttendanceHandler(attendanceSvc, exportSvc),
		students:   handler.NewStudentHandler(studentSvc, cardSvc),
		media:      handler.NewMediaHandler(studentSvc),
		legacy:     handler.NewLegacyHandler(mirror, attendanceSvc, notifier),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("outbox", cfg.Outbox.Backend), zap.Bool("mirror", mirror.Enabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type routes struct {
	db         *sqlx.DB
	metrics    *service.MetricsService
	authSvc    *service.AuthService
	auth       *handler.AuthHandler
	attendance *handler.AttendanceHandler
	students   *handler.StudentHandler
	media      *handler.MediaHandler
	legacy     *handler.LegacyHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, h routes) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logr.Warn("invalid trusted proxies, trusting none", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(h.metrics))

	probes := handler.NewMetricsHandler(h.metrics, h.db)
	r.GET("/health", probes.Health)
	r.GET("/ready", probes.Ready)
	r.GET("/metrics", probes.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	session := middleware.Session(h.authSvc)
	limiter := middleware.NewTokenBucket(cfg.RateLimit.UnlockBurst, cfg.RateLimit.UnlockPerMinute)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/unlock", middleware.RateLimit(limiter), h.auth.Unlock)

	secured := api.Group("", session)
	secured.POST("/auth/lock", h.auth.Lock)
	secured.GET("/auth/session", h.auth.Session)

	secured.POST("/attendance/check-in", h.attendance.CheckIn)
	secured.POST("/attendance/undo", h.attendance.Undo)
	secured.GET("/attendance/export", h.attendance.Export)

	secured.GET("/students", h.students.List)
	secured.POST("/students", h.students.Create)
	secured.GET("/students/:id", h.students.Get)
	secured.PUT("/students/:id", h.students.Update)
	secured.DELETE("/students/:id", h.students.Delete)
	secured.GET("/students/:id/card", h.students.Card)
	secured.GET("/students/:id/attendance", h.attendance.History)
	secured.DELETE("/photos", h.media.DeletePhoto)

	legacy := r.Group("", session)
	legacy.POST("/syncAsistencias", h.legacy.SyncAttendance)
	legacy.POST("/eliminarAsistencia", h.legacy.DeleteAttendance)
	legacy.POST("/eliminarFoto", h.media.DeletePhoto)
	legacy.POST("/enviarCorreo", h.legacy.SendMail)

	return r
}

func newMirror(ctx context.Context, cfg *config.Config, ledger *repository.AttendanceRepository, metrics *service.MetricsService, logr *zap.Logger) (*service.MirrorService, error) {
	if !cfg.Mirror.Enabled {
		logr.Info("spreadsheet mirror disabled")
		return service.NewMirrorService(ledger, nil, cfg.Attendance.Location, metrics, logr.Named("mirror")), nil
	}
	client, err := sheets.New(ctx, cfg.Mirror)
	if err != nil {
		return nil, fmt.Errorf("init spreadsheet mirror: %w", err)
	}
	return service.NewMirrorService(ledger, client, cfg.Attendance.Location, metrics, logr.Named("mirror")), nil
}

func newDispatcher(cfg config.OutboxConfig, client *redis.Client, handle jobs.Handler, logr *zap.Logger) (jobs.Dispatcher, error) {
	queueCfg := jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logr,
	}
	switch cfg.Backend {
	case "", config.OutboxInline:
		return jobs.NewInline(handle, queueCfg), nil
	case config.OutboxMemory:
		return jobs.NewQueue("side-effects", handle, queueCfg), nil
	case config.OutboxRedis:
		if client == nil {
			return nil, fmt.Errorf("redis outbox requires REDIS_ENABLED=true")
		}
		return jobs.NewRedisOutbox(client, cfg.RedisKey, handle, queueCfg), nil
	default:
		return nil, fmt.Errorf("unsupported outbox backend %q", cfg.Backend)
	}
}
