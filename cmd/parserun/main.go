// parserun parses a single resume end to end without a worker fleet.
// It submits a file (or re-queues an existing run with -retry) and
// drives the pipeline inline, honoring the same retry delays the
// daemon's queue would apply.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/AlexBabu26/ResumeParsePro/internal/common"
	"github.com/AlexBabu26/ResumeParsePro/internal/enrich"
	"github.com/AlexBabu26/ResumeParsePro/internal/entity"
	"github.com/AlexBabu26/ResumeParsePro/internal/ingest"
	"github.com/AlexBabu26/ResumeParsePro/internal/llm"
	"github.com/AlexBabu26/ResumeParsePro/internal/pipeline"
	"github.com/AlexBabu26/ResumeParsePro/internal/queue"
	"github.com/AlexBabu26/ResumeParsePro/internal/repository"
	"github.com/AlexBabu26/ResumeParsePro/internal/requirements"
)

type captureProducer struct {
	jobs []queue.Job
}

func (p *captureProducer) Enqueue(ctx context.Context, job queue.Job) error {
	p.jobs = append(p.jobs, job)
	return nil
}

func main() {
	filePath := flag.String("file", "", "resume file to parse (pdf, docx, doc or txt)")
	ownerStr := flag.String("owner", "", "owner uuid (defaults to a fresh id)")
	reqJSON := flag.String("requirements", "", "requirements spec as a JSON object")
	retryStr := flag.String("retry", "", "parse run uuid to retry with a fresh run")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if (*filePath == "") == (*retryStr == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -file or -retry is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		fatal("opening database: %v", err)
	}
	defer repository.Close(pool, logger)

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

	var runID uuid.UUID
	switch {
	case *retryStr != "":
		id, err := uuid.Parse(*retryStr)
		if err != nil {
			fatal("invalid -retry uuid: %v", err)
		}
		runID, err = retryRun(ctx, runs, id)
		if err != nil {
			fatal("creating retry run: %v", err)
		}
		fmt.Printf("retrying as new run %s\n", runID)

	default:
		data, err := os.ReadFile(*filePath)
		if err != nil {
			fatal("reading file: %v", err)
		}
		ownerID := uuid.New()
		if *ownerStr != "" {
			ownerID, err = uuid.Parse(*ownerStr)
			if err != nil {
				fatal("invalid -owner uuid: %v", err)
			}
		}

		producer := &captureProducer{}
		svc := ingest.NewService(docs, runs, candidates,
			ingest.NewFileStore(cfg.Storage.UploadDir), producer, evaluator,
			ingest.Options{
				ExtractModel:  cfg.LLM.ExtractModel,
				PromptVersion: cfg.Pipeline.PromptVersion,
				Temperature:   cfg.LLM.Temperature,
			}, logger)

		res, err := svc.Submit(ctx, ingest.Upload{
			OwnerID:      ownerID,
			Filename:     filepath.Base(*filePath),
			Data:         data,
			Requirements: json.RawMessage(*reqJSON),
		})
		if err != nil {
			fatal("submitting document: %v", err)
		}
		if res.Duplicate {
			fmt.Printf("duplicate of document %s (run %s)\n", res.DocumentID, res.ParseRunID)
			if res.MeetsRequirements != nil {
				if *res.MeetsRequirements {
					fmt.Println("existing candidate meets the supplied requirements")
				} else {
					fmt.Printf("existing candidate fails requirements: %v\n", res.RejectionReasons)
				}
			}
			return
		}
		runID = res.ParseRunID
		fmt.Printf("document %s queued as run %s\n", res.DocumentID, runID)
	}

	if err := drive(ctx, runner, runID, cfg.Pipeline.MaxAttempts); err != nil {
		fatal("pipeline: %v", err)
	}

	report(ctx, runs, candidates, runID)
}

// drive runs the pipeline inline, sleeping through requested retry
// delays up to the attempt budget.
func drive(ctx context.Context, runner *pipeline.Runner, runID uuid.UUID, maxAttempts int) error {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := runner.Run(ctx, runID, attempt)
		if err == nil {
			return nil
		}
		var requeue *pipeline.Requeue
		if !errors.As(err, &requeue) {
			return err
		}
		fmt.Printf("attempt %d deferred (%s), waiting %s\n", attempt, requeue.Code, requeue.After)
		select {
		case <-time.After(requeue.After):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("run %s still deferred after %d attempts", runID, maxAttempts)
}

// retryRun creates a fresh queued run for the same document, copying
// the model and requirements of the old one. Terminal runs are never
// mutated.
func retryRun(ctx context.Context, runs *repository.ParseRunRepository, oldID uuid.UUID) (uuid.UUID, error) {
	old, err := runs.GetByID(ctx, oldID)
	if err != nil {
		return uuid.Nil, err
	}
	fresh := &entity.ParseRun{
		DocumentID:    old.DocumentID,
		ModelName:     old.ModelName,
		PromptVersion: old.PromptVersion,
		Temperature:   old.Temperature,
		Requirements:  old.Requirements,
	}
	if err := runs.Create(ctx, fresh); err != nil {
		return uuid.Nil, err
	}
	return fresh.ID, nil
}

func report(ctx context.Context, runs *repository.ParseRunRepository, candidates *repository.CandidateRepository, runID uuid.UUID) {
	run, err := runs.GetByID(ctx, runID)
	if err != nil {
		fatal("loading run: %v", err)
	}
	fmt.Printf("run %s finished: status=%s stage=%s\n", run.ID, run.Status, run.ProgressStage)
	if run.ErrorCode != nil {
		fmt.Printf("error: %s (%s)\n", *run.ErrorCode, deref(run.ErrorMessage))
	}
	for _, w := range run.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if cand, err := candidates.LatestForDocument(ctx, run.DocumentID); err == nil {
		fmt.Printf("candidate %s: %s (confidence %.2f)\n",
			cand.ID, deref(cand.FullName), cand.OverallConfidence)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
