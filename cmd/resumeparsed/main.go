package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/AlexBabu26/ResumeParsePro/internal/common"
	"github.com/AlexBabu26/ResumeParsePro/internal/enrich"
	"github.com/AlexBabu26/ResumeParsePro/internal/llm"
	"github.com/AlexBabu26/ResumeParsePro/internal/pipeline"
	"github.com/AlexBabu26/ResumeParsePro/internal/queue"
	"github.com/AlexBabu26/ResumeParsePro/internal/repository"
	"github.com/AlexBabu26/ResumeParsePro/internal/requirements"
	"github.com/AlexBabu26/ResumeParsePro/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, 3*time.Second, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}

	docs := repository.NewDocumentRepository(pool, logger)
	runs := repository.NewParseRunRepository(pool, logger)
	candidates := repository.NewCandidateRepository(pool, logger)

	client := llm.NewClient(llm.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		DefaultTimeout:    cfg.LLM.DefaultTimeout,
		Timeouts:          cfg.LLM.ModelTimeouts,
		Pricing:           llm.MergedPricing(cfg.LLM.ModelPricing),
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	}, logger)

	enricher := enrich.NewEnricher(client, enrich.Config{
		ClassifyModel:       cfg.LLM.ClassifyModel,
		SummaryModel:        cfg.LLM.SummaryModel,
		ClassifyTemperature: cfg.LLM.ClassifyTemperature,
		SummaryTemperature:  cfg.LLM.SummaryTemperature,
	}, logger)
	evaluator := requirements.NewEvaluator(client, cfg.LLM.ExtractModel, logger)

	runner := pipeline.NewRunner(docs, runs, candidates, client, client,
		enricher, evaluator,
		pipeline.Config{
			ExtractModel:  cfg.LLM.ExtractModel,
			Temperature:   cfg.LLM.Temperature,
			SoftTimeLimit: cfg.Pipeline.SoftTimeLimit,
		}, logger)
	processor := worker.NewProcessor(runner, cfg.Pipeline.HardTimeLimit, logger)

	var consumer queue.Consumer
	if cfg.Queue.RedisAddr != "" {
		sq, err := queue.NewStreamsQueue(ctx, cfg.Queue, logger)
		if err != nil {
			logger.Error("connecting to redis", "error", err)
			os.Exit(1)
		}
		consumer = sq
		logger.Info("queue backend: redis streams", "stream", cfg.Queue.Stream, "group", cfg.Queue.Group)
	} else {
		consumer = queue.NewLocalQueue(0, cfg.Queue.MaxAttempts, logger)
		logger.Info("queue backend: in-process")
	}

	workers := cfg.Queue.Workers
	if workers <= 0 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := consumer.Consume(ctx, processor.Handle); err != nil && ctx.Err() == nil {
				logger.Error("consumer stopped", "worker", n, "error", err)
			}
		}(i)
	}
	logger.Info("workers started", "count", workers)

	<-ctx.Done()
	logger.Info("shutting down")
	wg.Wait()
	logger.Info("stopped")
}
