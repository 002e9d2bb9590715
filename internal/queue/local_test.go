package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLocalQueueDeliversJob(t *testing.T) {
	q := NewLocalQueue(8, 3, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runID := uuid.New()
	received := make(chan Job, 1)
	go q.Consume(ctx, func(ctx context.Context, job Job) error {
		received <- job
		return nil
	})

	if err := q.Enqueue(ctx, Job{ParseRunID: runID}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	select {
	case job := <-received:
		if job.ParseRunID != runID {
			t.Fatalf("wrong job delivered: %v", job.ParseRunID)
		}
		if job.SubmittedAt.IsZero() {
			t.Fatal("expected submitted_at to be stamped")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job was not delivered")
	}
}

func TestLocalQueueRetriesThenSucceeds(t *testing.T) {
	q := NewLocalQueue(8, 5, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan struct{})
	go q.Consume(ctx, func(ctx context.Context, job Job) error {
		if calls.Add(1) < 3 {
			return &RetryAfterError{After: 5 * time.Millisecond, Err: errors.New("transient")}
		}
		close(done)
		return nil
	})

	if err := q.Enqueue(ctx, Job{ParseRunID: uuid.New()}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	select {
	case <-done:
		if got := calls.Load(); got != 3 {
			t.Fatalf("expected 3 attempts, got %d", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("job never succeeded")
	}
}

func TestLocalQueueDeadLettersAfterMaxAttempts(t *testing.T) {
	q := NewLocalQueue(8, 2, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := make(chan int, 8)
	go q.Consume(ctx, func(ctx context.Context, job Job) error {
		attempts <- job.Attempt
		return errors.New("permanent")
	})

	if err := q.Enqueue(ctx, Job{ParseRunID: uuid.New()}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	var seen int
	deadline := time.After(3 * time.Second)
	for seen < 2 {
		select {
		case <-attempts:
			seen++
		case <-deadline:
			if seen >= 1 && q.DLQSize() == 1 {
				return
			}
			t.Fatalf("expected retries before dead-letter, saw %d attempts", seen)
		}
	}

	// Give the consumer a moment to record the DLQ entry.
	for i := 0; i < 100; i++ {
		if q.DLQSize() == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected 1 dead-lettered job, got %d", q.DLQSize())
}
