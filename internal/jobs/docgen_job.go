package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DocGenJobName is the name of the document-generation retry job
const DocGenJobName = "docgen_retry"

// DocumentProcessor defines the interface for draining the generated-document
// queue. This interface allows the job to call the service without importing
// the service package directly.
type DocumentProcessor interface {
	// ProcessPending renders one batch of queued documents via the external
	// generator, recording attempts and parking repeated failures.
	ProcessPending(ctx context.Context, batchSize int) error
}

// DocGenJob drains the pending document queue on a schedule. Workflow
// services enqueue post-commit; this job is the only thing that talks to the
// generator, so a generator outage degrades to a growing queue, never to a
// failed workflow operation.
type DocGenJob struct {
	processor DocumentProcessor
	batchSize int
	logger    *zap.Logger
	timeout   time.Duration
}

// NewDocGenJob creates a new document-generation retry job.
func NewDocGenJob(processor DocumentProcessor, batchSize int, logger *zap.Logger, timeout time.Duration) *DocGenJob {
	return &DocGenJob{
		processor: processor,
		batchSize: batchSize,
		logger:    logger,
		timeout:   timeout,
	}
}

// Run executes one drain of the document queue.
// This is called by the scheduler according to the cron expression.
func (j *DocGenJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()

	if err := j.processor.ProcessPending(ctx, j.batchSize); err != nil {
		j.logger.Error("document generation retry failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}
}

// RegisterDocGenJob registers the document-generation retry job with the scheduler.
func RegisterDocGenJob(scheduler *Scheduler, processor DocumentProcessor, batchSize int, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	job := NewDocGenJob(processor, batchSize, logger, timeout)
	return scheduler.AddJob(DocGenJobName, cronExpr, job.Run)
}
