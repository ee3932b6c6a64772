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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Otsikow/unidoxia-sub010/api/swagger"
	"github.com/Otsikow/unidoxia-sub010/internal/handler"
	"github.com/Otsikow/unidoxia-sub010/internal/repository"
	"github.com/Otsikow/unidoxia-sub010/internal/service"
	"github.com/Otsikow/unidoxia-sub010/pkg/cache"
	"github.com/Otsikow/unidoxia-sub010/pkg/config"
	"github.com/Otsikow/unidoxia-sub010/pkg/database"
	"github.com/Otsikow/unidoxia-sub010/pkg/export"
	"github.com/Otsikow/unidoxia-sub010/pkg/jobs"
	"github.com/Otsikow/unidoxia-sub010/pkg/logger"
	"github.com/Otsikow/unidoxia-sub010/pkg/mailer"
	corsmiddleware "github.com/Otsikow/unidoxia-sub010/pkg/middleware/cors"
	reqidmiddleware "github.com/Otsikow/unidoxia-sub010/pkg/middleware/requestid"
	"github.com/Otsikow/unidoxia-sub010/pkg/storage"
)

// @title Unidoxia API
// @version 1.0.0
// @description Study-abroad admissions platform: students, agents and universities.
// @BasePath /api/v1
// @schemes http https

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsService := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	var cachePinger handler.Pinger
	cacheEnabled := false
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		redisRepo := repository.NewCacheRepository(redisClient, logr)
		cacheRepo = redisRepo
		cachePinger = redisRepo
		cacheEnabled = true
	}
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Catalog.CacheTTL, logr, cacheEnabled)

	documentStorage, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document storage", "error", err)
	}
	reportStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	agentRepo := repository.NewAgentRepository(db)
	universityRepo := repository.NewUniversityRepository(db)
	programRepo := repository.NewProgramRepository(db)
	draftRepo := repository.NewDraftRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db, metricsService)
	reportRepo := repository.NewReportRepository(db)

	validate := validator.New()
	notificationService := service.NewNotificationService(mailer.New(cfg.Mailer, logr), logr, service.NotificationConfig{
		PublicBaseURL: cfg.PublicBaseURL,
	})

	authService := service.NewAuthService(userRepo, studentRepo, agentRepo, notificationService, validate, logr, service.AuthConfig{
		AccessTokenSecret:     cfg.JWT.Secret,
		AccessTokenExpiry:     cfg.JWT.Expiration,
		RefreshTokenExpiry:    cfg.JWT.RefreshExpiration,
		Issuer:                cfg.JWT.Issuer,
		DefaultCommissionRate: cfg.Commissions.DefaultRate,
	})
	userService := service.NewUserService(userRepo, universityRepo, validate, logr)
	studentService := service.NewStudentService(studentRepo, validate, logr)
	agentService := service.NewAgentService(agentRepo, validate, logr, cfg.PublicBaseURL)
	universityService := service.NewUniversityService(universityRepo, userRepo, validate, logr)
	catalogService := service.NewCatalogService(programRepo, userRepo, cacheService, validate, logr, cfg.Catalog)
	wizardService := service.NewWizardService(draftRepo, studentRepo, programRepo, documentRepo, applicationRepo, userRepo, notificationService, validate, logr)
	documentService := service.NewDocumentService(
		documentRepo,
		draftRepo,
		studentRepo,
		agentRepo,
		applicationRepo,
		documentStorage,
		storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL),
		userRepo,
		logr,
		service.DocumentServiceConfig{
			MaxFileSize:  cfg.Documents.MaxFileSizeBytes,
			AllowedMIMEs: cfg.Documents.AllowedMIMEs,
			APIPrefix:    cfg.APIPrefix,
		},
	)
	applicationService := service.NewApplicationService(
		applicationRepo,
		studentRepo,
		agentRepo,
		programRepo,
		commissionRepo,
		userRepo,
		notificationService,
		validate,
		logr,
		cfg.Commissions,
	)
	messageService := service.NewMessageService(messageRepo, userRepo, applicationRepo, notificationService, validate, logr)
	commissionService := service.NewCommissionService(commissionRepo, agentRepo, userRepo, logr)
	paymentService := service.NewPaymentService(paymentRepo, studentRepo, applicationRepo, userRepo, validate, logr)
	dashboardService := service.NewDashboardService(service.DashboardServiceParams{
		Repo:        dashboardRepo,
		Students:    studentRepo,
		Agents:      agentRepo,
		Drafts:      draftRepo,
		Messages:    messageRepo,
		Commissions: commissionRepo,
		Cache:       cacheService,
		Metrics:     metricsService,
		Logger:      logr,
		Config:      service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	exportService := service.NewExportService(service.ExportServiceParams{
		Applications: applicationRepo,
		Students:     studentRepo,
		Agents:       agentRepo,
		Commissions:  commissionRepo,
		Payments:     paymentRepo,
		Programs:     programRepo,
		Storage:      reportStorage,
		Signer:       storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL),
		CSV:          export.NewCSVExporter(),
		PDF:          export.NewPDFExporter(),
		Logger:       logr,
		Config:       service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.ResultTTL},
	})
	reportWorker := service.NewReportWorker(reportRepo, exportService, cfg.Reports.WorkerRetries, metricsService, logr)
	reportQueue := jobs.NewQueue("reports", reportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportService := service.NewReportService(reportRepo, agentRepo, userRepo, reportQueue, exportService, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.ResultTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Reports.Enabled {
		reportQueue.Start(ctx)
		defer reportQueue.Stop()
		reportService.RecoverPendingJobs(ctx)
		reportService.StartCleanup(ctx)
	}

	metricsHandler := handler.NewMetricsHandler(metricsService, db, cachePinger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, handler.Deps{
		Auth:           handler.NewAuthHandler(authService),
		Users:          handler.NewUserHandler(userService),
		Students:       handler.NewStudentHandler(studentService, agentService),
		Agents:         handler.NewAgentHandler(agentService),
		Universities:   handler.NewUniversityHandler(universityService),
		Catalog:        handler.NewCatalogHandler(catalogService),
		Wizard:         handler.NewWizardHandler(wizardService),
		Documents:      handler.NewDocumentHandler(documentService),
		Applications:   handler.NewApplicationHandler(applicationService),
		Messages:       handler.NewMessageHandler(messageService),
		Commissions:    handler.NewCommissionHandler(commissionService),
		Payments:       handler.NewPaymentHandler(paymentService),
		Dashboard:      handler.NewDashboardHandler(dashboardService),
		Reports:        handler.NewReportHandler(reportService),
		AuthService:    authService,
		MetricsService: metricsService,
		UserRepo:       userRepo,
		Logger:         logr,
		APIPrefix:      cfg.APIPrefix,
	})

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
		logr.Sugar().Errorw("forced shutdown", "error", err)
	}
}
