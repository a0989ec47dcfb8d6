package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// OverdueJobName is the name of the overdue task sweep job
const OverdueJobName = "overdue_sweep"

// OverdueSweeper defines the interface for flagging tasks past their deadline.
type OverdueSweeper interface {
	// SweepOverdue flags overdue open tasks and returns how many were newly
	// flagged this run.
	SweepOverdue(ctx context.Context) (int, error)
}

// OverdueJob periodically sweeps the task table for missed deadlines.
type OverdueJob struct {
	sweeper OverdueSweeper
	logger  *zap.Logger
	timeout time.Duration
}

// NewOverdueJob creates a new overdue task sweep job.
func NewOverdueJob(sweeper OverdueSweeper, logger *zap.Logger, timeout time.Duration) *OverdueJob {
	return &OverdueJob{
		sweeper: sweeper,
		logger:  logger,
		timeout: timeout,
	}
}

// Run executes one sweep.
// This is called by the scheduler according to the cron expression.
func (j *OverdueJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()

	flagged, err := j.sweeper.SweepOverdue(ctx)
	if err != nil {
		j.logger.Error("overdue task sweep failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	if flagged > 0 {
		j.logger.Info("overdue task sweep completed",
			zap.Int("flagged", flagged),
			zap.Duration("duration", time.Since(start)))
	}
}

// RegisterOverdueJob registers the overdue task sweep with the scheduler.
func RegisterOverdueJob(scheduler *Scheduler, sweeper OverdueSweeper, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	job := NewOverdueJob(sweeper, logger, timeout)
	return scheduler.AddJob(OverdueJobName, cronExpr, job.Run)
}
