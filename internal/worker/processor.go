// Package worker connects queue deliveries to the pipeline runner and
// enforces the hard per-run time limit.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AlexBabu26/ResumeParsePro/internal/pipeline"
	"github.com/AlexBabu26/ResumeParsePro/internal/queue"
)

// Runner is the pipeline entry point the processor drives.
type Runner interface {
	Run(ctx context.Context, runID uuid.UUID, attempt int) error
}

// Processor adapts pipeline results to queue retry semantics.
type Processor struct {
	runner        Runner
	hardTimeLimit time.Duration
	logger        *slog.Logger
}

func NewProcessor(runner Runner, hardTimeLimit time.Duration, logger *slog.Logger) *Processor {
	if hardTimeLimit <= 0 {
		hardTimeLimit = 5 * time.Minute
	}
	return &Processor{runner: runner, hardTimeLimit: hardTimeLimit, logger: logger}
}

// Handle processes one queue job. A *pipeline.Requeue becomes a
// *queue.RetryAfterError so the queue schedules the delayed redelivery;
// other errors flow through and consume a retry attempt.
func (p *Processor) Handle(ctx context.Context, job queue.Job) error {
	runCtx, cancel := context.WithTimeout(ctx, p.hardTimeLimit)
	defer cancel()

	start := time.Now()
	err := p.runner.Run(runCtx, job.ParseRunID, job.Attempt)
	elapsed := time.Since(start)

	if err == nil {
		p.logger.Info("worker.job_done",
			"parse_run_id", job.ParseRunID,
			"attempt", job.Attempt,
			"elapsed_ms", elapsed.Milliseconds())
		return nil
	}

	var requeue *pipeline.Requeue
	if errors.As(err, &requeue) {
		p.logger.Warn("worker.job_deferred",
			"parse_run_id", job.ParseRunID,
			"attempt", job.Attempt,
			"error_code", requeue.Code,
			"retry_after", requeue.After)
		return &queue.RetryAfterError{After: requeue.After, Err: requeue}
	}

	p.logger.Error("worker.job_failed",
		"parse_run_id", job.ParseRunID,
		"attempt", job.Attempt,
		"elapsed_ms", elapsed.Milliseconds(),
		"error", err)
	return err
}
