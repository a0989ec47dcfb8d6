package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fieldline/casework-api/internal/auth"
	"github.com/fieldline/casework-api/internal/config"
	"github.com/fieldline/casework-api/internal/database"
	"github.com/fieldline/casework-api/internal/datawarehouse"
	"github.com/fieldline/casework-api/internal/http/handler"
	"github.com/fieldline/casework-api/internal/http/middleware"

	_ "github.com/fieldline/casework-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg                 *config.Config
	logger              *zap.Logger
	db                  *gorm.DB
	dwClient            *datawarehouse.Client
	authMiddleware      *auth.Middleware
	orgFilterMiddleware *middleware.OrgFilterMiddleware
	rateLimiter         *middleware.RateLimiter
	caseHandler         *handler.CaseHandler
	taskHandler         *handler.TaskHandler
	boqHandler          *handler.BOQHandler
	quotationHandler    *handler.QuotationHandler
	ledgerHandler       *handler.LedgerHandler
	fileHandler         *handler.FileHandler
	authHandler         *handler.AuthHandler
	organizationHandler *handler.OrganizationHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	dwClient *datawarehouse.Client,
	authMiddleware *auth.Middleware,
	orgFilterMiddleware *middleware.OrgFilterMiddleware,
	rateLimiter *middleware.RateLimiter,
	caseHandler *handler.CaseHandler,
	taskHandler *handler.TaskHandler,
	boqHandler *handler.BOQHandler,
	quotationHandler *handler.QuotationHandler,
	ledgerHandler *handler.LedgerHandler,
	fileHandler *handler.FileHandler,
	authHandler *handler.AuthHandler,
	organizationHandler *handler.OrganizationHandler,
) *Router {
	return &Router{
		cfg:                 cfg,
		logger:              logger,
		db:                  db,
		dwClient:            dwClient,
		authMiddleware:      authMiddleware,
		orgFilterMiddleware: orgFilterMiddleware,
		rateLimiter:         rateLimiter,
		caseHandler:         caseHandler,
		taskHandler:         taskHandler,
		boqHandler:          boqHandler,
		quotationHandler:    quotationHandler,
		ledgerHandler:       ledgerHandler,
		fileHandler:         fileHandler,
		authHandler:         authHandler,
		organizationHandler: organizationHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with pool stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(r.Context(), rt.db)
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpen,
				"open_connections":     stats.Open,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_time_ms":         stats.WaitTimeMs,
			},
		})
	})

	// Combined readiness check (checks all dependencies)
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		if err := database.HealthCheck(r.Context(), rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{
				"status": "healthy",
			}
		}

		// The ERP warehouse is optional; a disabled client is not a failure.
		if rt.dwClient.IsEnabled() {
			hs := rt.dwClient.HealthCheck(r.Context())
			if hs.Status != "healthy" {
				rt.logger.Error("ERP warehouse health check failed", zap.String("error", hs.Error))
				allHealthy = false
			}
			checks["erp_warehouse"] = hs
		}

		w.Header().Set("Content-Type", "application/json")
		if allHealthy {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "healthy",
				"checks": checks,
			})
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "unhealthy",
				"checks": checks,
			})
		}
	})

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.orgFilterMiddleware.Filter)

			// Auth
			r.Get("/auth/me", rt.authHandler.Me)

			// Organizations
			r.Get("/organizations", rt.organizationHandler.List)
			r.Get("/organizations/{id}", rt.organizationHandler.Get)

			// Cases
			r.Route("/cases", func(r chi.Router) {
				r.Get("/", rt.caseHandler.List)
				r.Post("/", rt.caseHandler.Create)
				r.Get("/status-overview", rt.caseHandler.StatusOverview)
				r.Get("/{id}", rt.caseHandler.Get)
				r.Delete("/{id}", rt.caseHandler.Archive)
				r.Get("/{id}/detail", rt.caseHandler.GetDetail)
				r.Get("/{id}/activities", rt.caseHandler.ListActivities)
				r.Put("/{id}/team", rt.caseHandler.UpdateTeam)
				r.Post("/{id}/close", rt.caseHandler.Close)

				// Budget gate
				r.Post("/{id}/approve-budget", rt.caseHandler.ApproveBudget)
				r.Post("/{id}/reject-budget", rt.caseHandler.RejectBudget)
				r.Post("/{id}/approve-execution", rt.caseHandler.ApproveExecution)

				// Execution-plan gate
				r.Post("/{id}/plan", rt.caseHandler.SubmitPlan)
				r.Post("/{id}/plan/approve", rt.caseHandler.ApprovePlan)
				r.Post("/{id}/plan/reject", rt.caseHandler.RejectPlan)
				r.Post("/{id}/plan/resubmit", rt.caseHandler.ResubmitPlan)

				// Sub-resources
				r.Get("/{id}/tasks", rt.taskHandler.ListByCase)
				r.Get("/{id}/boqs", rt.boqHandler.ListByCase)
				r.Post("/{id}/boqs", rt.boqHandler.Create)
				r.Get("/{id}/quotations", rt.quotationHandler.ListByCase)
				r.Post("/{id}/quotations", rt.quotationHandler.Submit)
				r.Get("/{id}/ledger", rt.ledgerHandler.ListCaseLedger)
				r.Get("/{id}/files", rt.fileHandler.ListByCase)
				r.Post("/{id}/files", rt.fileHandler.Upload)
			})

			// Tasks
			r.Route("/tasks", func(r chi.Router) {
				r.Get("/my", rt.taskHandler.ListMy)
				r.Get("/{id}", rt.taskHandler.Get)
				r.Post("/{id}/start", rt.taskHandler.Start)
				r.Post("/{id}/complete", rt.taskHandler.Complete)
			})

			// Bills of quantities
			r.Route("/boqs", func(r chi.Router) {
				r.Get("/{id}", rt.boqHandler.Get)
				r.Put("/{id}", rt.boqHandler.Update)
			})

			// Quotations
			r.Route("/quotations", func(r chi.Router) {
				r.Get("/pending-audit", rt.quotationHandler.ListPendingAudit)
				r.Get("/{id}", rt.quotationHandler.Get)
				r.Post("/{id}/audit", rt.quotationHandler.ResolveAudit)
			})

			// Invoices & ledger
			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", rt.ledgerHandler.ListInvoices)
				r.Post("/sales", rt.ledgerHandler.PostSales)
				r.Post("/purchases", rt.ledgerHandler.PostPurchase)
				r.Get("/{id}", rt.ledgerHandler.GetInvoice)
				r.Post("/{id}/paid", rt.ledgerHandler.MarkPaid)
			})
			r.Route("/ledger", func(r chi.Router) {
				r.Get("/", rt.ledgerHandler.ListLedger)
				r.Get("/trial-balance", rt.ledgerHandler.TrialBalance)
			})

			// Files
			r.Route("/files", func(r chi.Router) {
				r.Get("/{id}", rt.fileHandler.GetByID)
				r.Get("/{id}/download", rt.fileHandler.Download)
				r.Delete("/{id}", rt.fileHandler.Delete)
			})
		})
	})

	return r
}
