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

	"github.com/go-playground/validator/v10"

	_ "github.com/formacademy/formacademy-api/api/swagger"
	"github.com/formacademy/formacademy-api/internal/handler"
	"github.com/formacademy/formacademy-api/internal/policy"
	"github.com/formacademy/formacademy-api/internal/repository"
	"github.com/formacademy/formacademy-api/internal/router"
	"github.com/formacademy/formacademy-api/internal/service"
	"github.com/formacademy/formacademy-api/pkg/cache"
	"github.com/formacademy/formacademy-api/pkg/config"
	"github.com/formacademy/formacademy-api/pkg/database"
	"github.com/formacademy/formacademy-api/pkg/export"
	"github.com/formacademy/formacademy-api/pkg/jobs"
	"github.com/formacademy/formacademy-api/pkg/logger"
	"github.com/formacademy/formacademy-api/pkg/storage"
)

// @title FormAcademy API
// @version 1.0.0
// @description Plateforme de formation en ligne: formations, inscriptions, progression et certificats
// @BasePath /api/v1
// @schemes http
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	domainRepo := repository.NewDomainRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	moduleRepo := repository.NewModuleRepository(db)
	chapterRepo := repository.NewChapterRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "formacademy-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	domainSvc := service.NewDomainService(domainRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, domainRepo, userRepo, userRepo, validate, logr)
	moduleSvc := service.NewModuleService(moduleRepo, chapterRepo, courseRepo, userRepo, validate, logr)
	chapterSvc := service.NewChapterService(chapterRepo, moduleRepo, courseRepo, userRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, userRepo, userRepo, validate, logr)

	renderer := export.NewCertificateRenderer()
	store, err := storage.NewLocalStorage(cfg.Certificates.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("certificate storage init failed", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Certificates.SignedURLSecret, cfg.Certificates.SignedURLTTL)
	certificateSvc := service.NewCertificateService(certificateRepo, courseRepo, userRepo, renderer, store, signer, metricsSvc, cfg.Certificates.IssuerName, logr)

	queue := jobs.NewQueue("certificates", certificateSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Certificates.WorkerConcurrency,
		MaxRetries: cfg.Certificates.WorkerRetries,
		Logger:     logr,
	})
	certificateSvc.AttachQueue(queue)

	progressSvc := service.NewProgressService(progressRepo, enrollmentRepo, chapterRepo, moduleRepo, certificateSvc, logr)
	quizSvc := service.NewQuizService(quizRepo, chapterRepo, moduleRepo, courseRepo, enrollmentRepo, progressSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(statsRepo, enrollmentRepo, progressRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	exportSvc := service.NewExportService(enrollmentRepo, courseRepo, progressRepo, export.NewCSVExporter(), logr)

	policyTable := policy.NewTable(policy.Options{TrainerContent: cfg.Policy.TrainerContent})

	engine := router.New(router.Dependencies{
		Config:  cfg,
		Logger:  logr,
		Policy:  policyTable,
		Auth:    authSvc,
		Metrics: metricsSvc,
		Audit:   userRepo,

		AuthHandler:        handler.NewAuthHandler(authSvc),
		UserHandler:        handler.NewUserHandler(userSvc),
		DomainHandler:      handler.NewDomainHandler(domainSvc),
		CourseHandler:      handler.NewCourseHandler(courseSvc),
		ModuleHandler:      handler.NewModuleHandler(moduleSvc),
		ChapterHandler:     handler.NewChapterHandler(chapterSvc),
		EnrollmentHandler:  handler.NewEnrollmentHandler(enrollmentSvc, dashboardSvc),
		ProgressHandler:    handler.NewProgressHandler(progressSvc, dashboardSvc),
		QuizHandler:        handler.NewQuizHandler(quizSvc),
		CertificateHandler: handler.NewCertificateHandler(certificateSvc),
		DashboardHandler:   handler.NewDashboardHandler(dashboardSvc, exportSvc),
		MetricsHandler:     handler.NewMetricsHandler(metricsSvc),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	queue.Stop()
}
