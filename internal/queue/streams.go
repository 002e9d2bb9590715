package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AlexBabu26/ResumeParsePro/internal/common"
)

// StreamsQueue implements Producer and Consumer on Redis Streams.
type StreamsQueue struct {
	client      *redis.Client
	stream      string
	dlqStream   string
	group       string
	consumer    string
	maxAttempts int
	logger      *slog.Logger
}

func NewStreamsQueue(ctx context.Context, cfg common.QueueConfig, logger *slog.Logger) (*StreamsQueue, error) {
	if cfg.RedisAddr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	q := &StreamsQueue{
		client:      client,
		stream:      cfg.Stream,
		dlqStream:   cfg.DLQStream,
		group:       cfg.Group,
		consumer:    cfg.Consumer,
		maxAttempts: cfg.MaxAttempts,
		logger:      logger,
	}
	if q.maxAttempts <= 0 {
		q.maxAttempts = 5
	}
	if err := q.ensureGroup(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return q, nil
}

func (q *StreamsQueue) Close() error {
	return q.client.Close()
}

func (q *StreamsQueue) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	_, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{
			"parse_run_id": job.ParseRunID.String(),
			"attempt":      job.Attempt,
			"submitted_at": job.SubmittedAt.Format(time.RFC3339Nano),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue to stream: %w", err)
	}
	q.logger.Debug("queue.enqueued", "parse_run_id", job.ParseRunID, "attempt", job.Attempt)
	return nil
}

// Consume reads jobs until the context ends. Messages are acknowledged
// and deleted only after the handler finishes with them, so a crashed
// worker leaves the message pending for redelivery.
func (q *StreamsQueue) Consume(ctx context.Context, handler Handler) error {
	if err := q.ensureGroup(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: q.consumer,
			Streams:  []string{q.stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("xreadgroup: %w", err)
		}

		for _, stream := range streams {
			for _, item := range stream.Messages {
				q.handleMessage(ctx, handler, item)
			}
		}
	}
}

func (q *StreamsQueue) handleMessage(ctx context.Context, handler Handler, item redis.XMessage) {
	job, parseErr := parseStreamJob(item)
	if parseErr != nil {
		q.logger.Warn("queue.message.malformed", "stream_id", item.ID, "error", parseErr)
		_ = q.sendToDLQ(ctx, job, item.ID, parseErr.Error())
		_ = q.ackAndDelete(ctx, item.ID)
		return
	}

	handleErr := handler(ctx, job)
	if handleErr == nil {
		_ = q.ackAndDelete(ctx, item.ID)
		return
	}

	var retryAfter *RetryAfterError
	if errors.As(handleErr, &retryAfter) {
		job.Attempt++
		if job.Attempt >= q.maxAttempts {
			q.logger.Warn("queue.job.exhausted", "parse_run_id", job.ParseRunID, "attempt", job.Attempt)
			_ = q.sendToDLQ(ctx, job, item.ID, handleErr.Error())
			_ = q.ackAndDelete(ctx, item.ID)
			return
		}
		q.logger.Info("queue.job.delayed_retry",
			"parse_run_id", job.ParseRunID, "attempt", job.Attempt, "after", retryAfter.After)
		q.requeueAfter(ctx, job, retryAfter.After)
		_ = q.ackAndDelete(ctx, item.ID)
		return
	}

	job.Attempt++
	if job.Attempt >= q.maxAttempts {
		q.logger.Warn("queue.job.exhausted", "parse_run_id", job.ParseRunID, "attempt", job.Attempt)
		_ = q.sendToDLQ(ctx, job, item.ID, handleErr.Error())
		_ = q.ackAndDelete(ctx, item.ID)
		return
	}
	q.logger.Info("queue.job.retry",
		"parse_run_id", job.ParseRunID, "attempt", job.Attempt)
	q.requeueAfter(ctx, job, retryBackoff(job.Attempt))
	_ = q.ackAndDelete(ctx, item.ID)
}

// requeueAfter re-adds the job once the delay passes. The timer
// goroutine gives up if the consumer is shutting down; the run stays
// recoverable through a manual retry.
func (q *StreamsQueue) requeueAfter(ctx context.Context, job Job, delay time.Duration) {
	if delay <= 0 {
		_ = q.Enqueue(ctx, job)
		return
	}
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			if err := q.Enqueue(context.Background(), job); err != nil {
				q.logger.Error("queue.delayed_requeue.failed", "parse_run_id", job.ParseRunID, "error", err)
			}
		}
	}()
}

func (q *StreamsQueue) ensureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "$").Err()
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return fmt.Errorf("ensure stream group: %w", err)
}

func (q *StreamsQueue) ackAndDelete(ctx context.Context, streamID string) error {
	if err := q.client.XAck(ctx, q.stream, q.group, streamID).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	if err := q.client.XDel(ctx, q.stream, streamID).Err(); err != nil {
		return fmt.Errorf("xdel: %w", err)
	}
	return nil
}

func (q *StreamsQueue) sendToDLQ(ctx context.Context, job Job, streamID, errorMessage string) error {
	values := map[string]any{
		"stream_id":    streamID,
		"parse_run_id": job.ParseRunID.String(),
		"attempt":      job.Attempt,
		"error":        errorMessage,
		"moved_at":     time.Now().UTC().Format(time.RFC3339Nano),
	}
	if _, err := q.client.XAdd(ctx, &redis.XAddArgs{Stream: q.dlqStream, Values: values}).Result(); err != nil {
		return fmt.Errorf("send to dlq: %w", err)
	}
	return nil
}

func parseStreamJob(item redis.XMessage) (Job, error) {
	getString := func(key string) (string, error) {
		value, ok := item.Values[key]
		if !ok {
			return "", fmt.Errorf("missing field %s", key)
		}
		switch casted := value.(type) {
		case string:
			return casted, nil
		case []byte:
			return string(casted), nil
		default:
			return fmt.Sprintf("%v", casted), nil
		}
	}

	idString, err := getString("parse_run_id")
	if err != nil {
		return Job{}, err
	}
	runID, err := uuid.Parse(idString)
	if err != nil {
		return Job{}, fmt.Errorf("invalid parse_run_id: %w", err)
	}

	attemptString, err := getString("attempt")
	if err != nil {
		return Job{}, err
	}
	attempt, err := strconv.Atoi(attemptString)
	if err != nil {
		return Job{}, fmt.Errorf("invalid attempt: %w", err)
	}

	submittedAtString, err := getString("submitted_at")
	if err != nil {
		return Job{}, err
	}
	submittedAt, err := time.Parse(time.RFC3339Nano, submittedAtString)
	if err != nil {
		return Job{}, fmt.Errorf("invalid submitted_at: %w", err)
	}

	return Job{ParseRunID: runID, Attempt: attempt, SubmittedAt: submittedAt}, nil
}
