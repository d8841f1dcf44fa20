package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tahfidz-admin-api/api/swagger"
	"github.com/noah-isme/tahfidz-admin-api/internal/handler"
	internalmiddleware "github.com/noah-isme/tahfidz-admin-api/internal/middleware"
	"github.com/noah-isme/tahfidz-admin-api/internal/repository"
	"github.com/noah-isme/tahfidz-admin-api/internal/service"
	"github.com/noah-isme/tahfidz-admin-api/pkg/cache"
	"github.com/noah-isme/tahfidz-admin-api/pkg/config"
	"github.com/noah-isme/tahfidz-admin-api/pkg/database"
	"github.com/noah-isme/tahfidz-admin-api/pkg/export"
	"github.com/noah-isme/tahfidz-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tahfidz-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tahfidz-admin-api/pkg/middleware/requestid"
	"github.com/noah-isme/tahfidz-admin-api/pkg/storage"
)

// @title Tahfidz Admin API
// @version 1.0.0
// @description Administration API for a Qur'an boarding school: students, scores, memorization, attendance, budget and reports.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	metrics := service.NewMetricsService()
	validate := service.NewValidator()

	studentRepo := repository.NewStudentRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	memorizationRepo := repository.NewMemorizationRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	budgetRepo := repository.NewBudgetRepository(db)
	violationRepo := repository.NewViolationRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, "tahfidz", logr)

	auditSvc := service.NewAuditService(auditRepo, metrics, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.ReportTTL, logr, cfg.Cache.Enabled && redisClient != nil)

	studentSvc := service.NewStudentService(studentRepo, auditSvc, cacheSvc, validate, logr)
	referenceSvc := service.NewReferenceService(referenceRepo, auditSvc, cacheSvc, validate, logr)
	periodSvc := service.NewPeriodService(periodRepo, auditSvc, cacheSvc, validate, logr)
	scoreSvc := service.NewScoreService(scoreRepo, studentRepo, auditSvc, cacheSvc, validate, logr)
	memorizationSvc := service.NewMemorizationService(memorizationRepo, periodRepo, studentRepo, auditSvc, validate, logr)
	semesterSvc := service.NewSemesterReportService(periodRepo, studentRepo, referenceRepo, scoreRepo, memorizationSvc, cacheSvc, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, auditSvc, cacheSvc, validate, logr)
	budgetSvc := service.NewBudgetService(budgetRepo, auditSvc, validate, logr)
	violationSvc := service.NewViolationService(violationRepo, auditSvc, validate, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, auditSvc, validate, logr)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("export storage unavailable", zap.Error(err))
	}
	pdf := export.NewPDFExporter(export.Letterhead{
		Name:    cfg.School.Name,
		Address: cfg.School.Address,
		LogoURL: cfg.School.LogoURL,
	}, cfg.School.LogoFetchTimeout, logr)
	exportSvc := service.NewExportService(service.ExportSources{
		Students:     studentRepo,
		Scores:       scoreSvc,
		Semester:     semesterSvc,
		Memorization: memorizationSvc,
		Attendance:   attendanceSvc,
		Violations:   violationSvc,
		Budget:       budgetSvc,
	}, exportStorage, storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL), pdf, metrics,
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL}, validate, logr)

	var sender service.MessageSender = service.LinkSender{}
	if cfg.Broadcast.GatewayURL != "" {
		sender = service.NewGatewaySender(cfg.Broadcast.GatewayURL, cfg.Broadcast.GatewayToken, 10*time.Second)
	}
	broadcastSvc := service.NewBroadcastService(studentRepo, semesterSvc, sender, cacheRepo, auditSvc, metrics,
		service.BroadcastConfig{Interval: cfg.Broadcast.Interval, Workers: cfg.Broadcast.Workers}, validate, logr)
	broadcastSvc.Run(ctx)
	defer broadcastSvc.Stop()

	reportViewSvc := service.NewReportViewService(service.ReportViewSources{
		Scores:       scoreSvc,
		Semester:     semesterSvc,
		Memorization: memorizationSvc,
		Attendance:   attendanceSvc,
	}, cfg.ReportViews.IdleTTL, logr)
	go reportViewSvc.RunJanitor(ctx, time.Minute)
	go runExportCleanup(ctx, exportSvc, cfg.Exports.CleanupInterval, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	checks := map[string]handler.Pinger{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	system := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", system.Health)
	r.GET("/ready", system.Ready)
	r.GET("/metrics", system.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	handler.RegisterRoutes(r.Group(prefix), handler.Handlers{
		Auth:          handler.NewAuthHandler(),
		Students:      handler.NewStudentHandler(studentSvc),
		Reference:     handler.NewReferenceHandler(referenceSvc),
		Periods:       handler.NewPeriodHandler(periodSvc),
		Scores:        handler.NewScoreHandler(scoreSvc),
		Memorization:  handler.NewMemorizationHandler(memorizationSvc),
		Semester:      handler.NewSemesterReportHandler(semesterSvc),
		Attendance:    handler.NewAttendanceHandler(attendanceSvc),
		Budgets:       handler.NewBudgetHandler(budgetSvc),
		Violations:    handler.NewViolationHandler(violationSvc),
		Announcements: handler.NewAnnouncementHandler(announcementSvc),
		Audit:         handler.NewAuditHandler(auditSvc),
		Exports:       handler.NewExportHandler(exportSvc),
		Broadcasts:    handler.NewBroadcastHandler(broadcastSvc),
		ReportViews:   handler.NewReportViewHandler(reportViewSvc),
	}, tokenSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("shutdown error", zap.Error(err))
	}
}

// runExportCleanup removes expired export files until ctx is done.
func runExportCleanup(ctx context.Context, exports *service.ExportService, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup(0)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}
