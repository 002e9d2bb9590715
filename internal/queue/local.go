package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// LocalQueue is the in-process fallback used when Redis is not
// configured. Jobs that exhaust their attempts are kept on an
// in-memory dead-letter list for inspection.
type LocalQueue struct {
	ch          chan Job
	maxAttempts int
	logger      *slog.Logger

	dlqMu sync.Mutex
	dlq   []Job
}

func NewLocalQueue(bufferSize, maxAttempts int, logger *slog.Logger) *LocalQueue {
	if bufferSize <= 0 {
		bufferSize = 512
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &LocalQueue{
		ch:          make(chan Job, bufferSize),
		maxAttempts: maxAttempts,
		logger:      logger,
		dlq:         make([]Job, 0),
	}
}

func (q *LocalQueue) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.ch <- job:
		return nil
	}
}

func (q *LocalQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-q.ch:
			err := handler(ctx, job)
			if err == nil {
				continue
			}

			job.Attempt++
			if job.Attempt >= q.maxAttempts {
				q.dlqMu.Lock()
				q.dlq = append(q.dlq, job)
				q.dlqMu.Unlock()
				q.logger.Warn("queue.job.exhausted", "parse_run_id", job.ParseRunID, "error", err)
				continue
			}

			delay := retryBackoff(job.Attempt)
			var retryAfter *RetryAfterError
			if errors.As(err, &retryAfter) && retryAfter.After > 0 {
				delay = retryAfter.After
			}
			q.retryAfter(ctx, job, delay)
		}
	}
}

func (q *LocalQueue) retryAfter(ctx context.Context, job Job, delay time.Duration) {
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			select {
			case q.ch <- job:
			case <-ctx.Done():
			}
		}
	}()
}

// DLQSize reports how many jobs have been dead-lettered.
func (q *LocalQueue) DLQSize() int {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return len(q.dlq)
}
