package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fieldline/casework-api/docs"
	"github.com/fieldline/casework-api/internal/auth"
	"github.com/fieldline/casework-api/internal/config"
	"github.com/fieldline/casework-api/internal/database"
	"github.com/fieldline/casework-api/internal/datawarehouse"
	"github.com/fieldline/casework-api/internal/docgen"
	"github.com/fieldline/casework-api/internal/http/handler"
	"github.com/fieldline/casework-api/internal/http/middleware"
	"github.com/fieldline/casework-api/internal/http/router"
	"github.com/fieldline/casework-api/internal/jobs"
	"github.com/fieldline/casework-api/internal/logger"
	"github.com/fieldline/casework-api/internal/repository"
	"github.com/fieldline/casework-api/internal/service"
	"github.com/fieldline/casework-api/internal/storage"
)

// @title Fieldline Casework API
// @version 1.0
// @description Case workflow and double-entry ledger API for contracting operations

// @contact.name API Support
// @contact.email support@fieldline.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations
// @Security BearerAuth
// @Security ApiKeyAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Configure Swagger host based on environment
	switch basicCfg.App.Environment {
	case "staging":
		docs.SwaggerInfo.Host = "casework-staging.fieldline.io"
	case "production":
		docs.SwaggerInfo.Host = "api.fieldline.io"
	default:
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	// Connect to database with retry logic
	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize storage
	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Initialize the ERP warehouse connection (optional, reconciliation only)
	// The connection is read-only and the app continues without it if not configured
	var dwClient *datawarehouse.Client
	if cfg.DataWarehouse.Enabled {
		dwClient, err = datawarehouse.NewClient(&cfg.DataWarehouse, log)
		if err != nil {
			log.Warn("ERP warehouse connection failed, continuing without it",
				zap.Error(err),
			)
		} else if dwClient != nil {
			log.Info("ERP warehouse connected successfully",
				zap.Int("max_open_conns", cfg.DataWarehouse.MaxOpenConns),
				zap.Int("query_timeout_seconds", cfg.DataWarehouse.QueryTimeout),
			)
		}
	} else {
		log.Info("ERP warehouse not configured, skipping",
			zap.Bool("enabled", cfg.DataWarehouse.Enabled),
		)
	}

	// Initialize the document generator client (optional)
	docgenClient := docgen.NewClient(&cfg.DocGen, log)
	if docgenClient != nil {
		log.Info("Document generator configured", zap.String("base_url", cfg.DocGen.BaseURL))
	} else {
		log.Info("Document generator not configured, PDF generation queued only")
	}

	// Initialize repositories
	orgRepo := repository.NewOrganizationRepository(db)
	caseRepo := repository.NewCaseRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	boqRepo := repository.NewBOQRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	sequenceRepo := repository.NewNumberSequenceRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	fileRepo := repository.NewFileRepository(db)

	// Initialize services
	documentService := service.NewDocumentService(documentRepo, boqRepo, quotationRepo, caseRepo, docgenClient, cfg.DocGen.MaxAttempts, log)
	caseService := service.NewCaseService(db, caseRepo, taskRepo, activityRepo, documentService, log)
	pipelineService := service.NewPipelineService(db, taskRepo, caseRepo, activityRepo, log)
	boqService := service.NewBOQService(db, boqRepo, caseRepo, taskRepo, documentService, log)
	quotationService := service.NewQuotationService(db, quotationRepo, boqRepo, caseRepo, documentService, log)
	ledgerService := service.NewLedgerService(db, invoiceRepo, ledgerRepo, caseRepo, sequenceRepo, activityRepo, log)
	fileService := service.NewFileService(fileRepo, caseRepo, activityRepo, fileStorage, log)
	organizationService := service.NewOrganizationService(orgRepo, log)
	reconciliationService := service.NewReconciliationService(ledgerRepo, orgRepo, dwClient, log)

	// Initialize middleware
	authMiddleware := auth.NewMiddleware(cfg, log)
	orgFilterMiddleware := middleware.NewOrgFilterMiddleware(log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	caseHandler := handler.NewCaseHandler(caseService, log)
	taskHandler := handler.NewTaskHandler(pipelineService, log)
	boqHandler := handler.NewBOQHandler(boqService, log)
	quotationHandler := handler.NewQuotationHandler(quotationService, log)
	ledgerHandler := handler.NewLedgerHandler(ledgerService, log)
	fileHandler := handler.NewFileHandler(fileService, cfg.Storage.MaxUploadSizeMB, log)
	authHandler := handler.NewAuthHandler(log)
	organizationHandler := handler.NewOrganizationHandler(organizationService, log)

	// Setup router
	rt := router.NewRouter(
		cfg,
		log,
		db,
		dwClient,
		authMiddleware,
		orgFilterMiddleware,
		rateLimiter,
		caseHandler,
		taskHandler,
		boqHandler,
		quotationHandler,
		ledgerHandler,
		fileHandler,
		authHandler,
		organizationHandler,
	)

	// Initialize and start scheduler for background jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)

		if err := jobs.RegisterDocGenJob(
			scheduler,
			documentService,
			cfg.Jobs.DocGenBatchSize,
			log,
			cfg.Jobs.DocGenSchedule,
			5*time.Minute,
		); err != nil {
			log.Error("Failed to register docgen retry job", zap.Error(err))
		}

		if err := jobs.RegisterOverdueJob(
			scheduler,
			pipelineService,
			log,
			cfg.Jobs.OverdueSchedule,
			2*time.Minute,
		); err != nil {
			log.Error("Failed to register overdue sweep job", zap.Error(err))
		}

		if dwClient != nil && dwClient.IsEnabled() {
			if err := jobs.RegisterReconciliationJob(
				scheduler,
				reconciliationService,
				log,
				cfg.Jobs.ReconciliationSchedule,
				10*time.Minute,
			); err != nil {
				log.Error("Failed to register reconciliation job", zap.Error(err))
			}
		}

		scheduler.Start()
		log.Info("Scheduler started",
			zap.String("docgen_schedule", cfg.Jobs.DocGenSchedule),
			zap.String("overdue_schedule", cfg.Jobs.OverdueSchedule),
			zap.String("reconciliation_schedule", cfg.Jobs.ReconciliationSchedule),
		)
	} else {
		log.Info("Background jobs disabled")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Stop scheduler if running
		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		// Close warehouse connection if initialized
		if dwClient != nil {
			if err := dwClient.Close(); err != nil {
				log.Warn("Error closing ERP warehouse connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
