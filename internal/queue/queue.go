// Package queue delivers parse-run jobs to workers. Two backends exist:
// Redis Streams for deployments with shared infrastructure and an
// in-process channel queue for single-node runs. Both re-enqueue failed
// jobs with an incremented attempt counter and park jobs that exhaust
// their attempts on a dead-letter stream.
package queue

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// Job is one unit of work: process the given parse run. Attempt counts
// deliveries, starting at zero.
type Job struct {
	ParseRunID  uuid.UUID
	Attempt     int
	SubmittedAt time.Time
}

// Handler processes one job. Returning nil acknowledges the job.
// Returning a *RetryAfterError schedules a redelivery after the
// requested delay instead of the default backoff; either way the
// redelivery increments Attempt and counts against the attempt budget.
type Handler func(ctx context.Context, job Job) error

// RetryAfterError asks the queue to redeliver the job after a delay,
// used for rate-limit pauses and retryable provider failures.
type RetryAfterError struct {
	After time.Duration
	Err   error
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("retry after %s: %v", e.After, e.Err)
}

func (e *RetryAfterError) Unwrap() error { return e.Err }

// retryBackoff is the delay before redelivering a failed job: 500ms
// doubled per attempt with up to 250ms of jitter, capped at 10 minutes.
func retryBackoff(attempt int) time.Duration {
	if attempt > 20 {
		attempt = 20
	}
	d := 500 * time.Millisecond << uint(attempt)
	if d > 10*time.Minute {
		d = 10 * time.Minute
	}
	return d + rand.N(250*time.Millisecond)
}

// Producer enqueues jobs.
type Producer interface {
	Enqueue(ctx context.Context, job Job) error
}

// Consumer delivers jobs to a handler until the context is canceled.
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
}
