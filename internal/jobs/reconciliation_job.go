package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ReconciliationJobName is the name of the ERP ledger reconciliation job
const ReconciliationJobName = "erp_reconciliation"

// LedgerReconciler defines the interface for comparing the local ledger
// against the ERP general ledger.
type LedgerReconciler interface {
	// ReconcileAll compares every active organization's previous-day postings
	// against the ERP and logs any mismatch.
	ReconcileAll(ctx context.Context) error
}

// ReconciliationJob runs the nightly ledger comparison. Only registered when
// the data warehouse connection is enabled.
type ReconciliationJob struct {
	reconciler LedgerReconciler
	logger     *zap.Logger
	timeout    time.Duration
}

// NewReconciliationJob creates a new ERP reconciliation job.
func NewReconciliationJob(reconciler LedgerReconciler, logger *zap.Logger, timeout time.Duration) *ReconciliationJob {
	return &ReconciliationJob{
		reconciler: reconciler,
		logger:     logger,
		timeout:    timeout,
	}
}

// Run executes one reconciliation pass.
// This is called by the scheduler according to the cron expression.
func (j *ReconciliationJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()

	if err := j.reconciler.ReconcileAll(ctx); err != nil {
		j.logger.Error("ERP reconciliation failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("ERP reconciliation completed",
		zap.Duration("duration", time.Since(start)))
}

// RegisterReconciliationJob registers the nightly reconciliation with the scheduler.
func RegisterReconciliationJob(scheduler *Scheduler, reconciler LedgerReconciler, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	job := NewReconciliationJob(reconciler, logger, timeout)
	return scheduler.AddJob(ReconciliationJobName, cronExpr, job.Run)
}
