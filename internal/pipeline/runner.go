// Package pipeline drives a parse run end to end: text extraction, PII
// pre-extraction, LLM extraction, normalization, enrichment, candidate
// persistence and requirements filtering. The runner owns the run's
// state machine; the queue owns retry scheduling.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AlexBabu26/ResumeParsePro/constants"
	"github.com/AlexBabu26/ResumeParsePro/internal/common"
	"github.com/AlexBabu26/ResumeParsePro/internal/entity"
	"github.com/AlexBabu26/ResumeParsePro/internal/extract"
	"github.com/AlexBabu26/ResumeParsePro/internal/llm"
	"github.com/AlexBabu26/ResumeParsePro/internal/normalize"
	"github.com/AlexBabu26/ResumeParsePro/internal/pii"
	"github.com/AlexBabu26/ResumeParsePro/internal/requirements"
)

// Requeue asks the scheduler to redeliver the job after a delay. It is
// returned for retryable failures; terminal failures are recorded on
// the run and absorbed.
type Requeue struct {
	After time.Duration
	Code  string
	Err   error
}

func (r *Requeue) Error() string {
	return fmt.Sprintf("requeue (%s) after %s: %v", r.Code, r.After, r.Err)
}

func (r *Requeue) Unwrap() error { return r.Err }

// DocumentStore is the slice of the document repository the runner uses.
type DocumentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	SetRawText(ctx context.Context, id uuid.UUID, rawText, method string) error
}

// RunStore is the slice of the parse-run repository the runner uses.
type RunStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ParseRun, error)
	MarkTaskStarted(ctx context.Context, id uuid.UUID, retryCount int) error
	Transition(ctx context.Context, id uuid.UUID, newStatus constants.RunStatus, reason string) error
	SetProgress(ctx context.Context, id uuid.UUID, stage constants.ProgressStage) error
	RecordLLMCall(ctx context.Context, id uuid.UUID, raw json.RawMessage, latencyMS, inputTokens, outputTokens int, model string) error
	SetResult(ctx context.Context, id uuid.UUID, normalized json.RawMessage, warnings []string) error
	RecordError(ctx context.Context, id uuid.UUID, code, message string) error
	Complete(ctx context.Context, id uuid.UUID, status constants.RunStatus, reason string, errCode, errMessage *string) error
}

// CandidateStore is the slice of the candidate repository the runner uses.
type CandidateStore interface {
	CreateFromRecord(ctx context.Context, documentID, parseRunID uuid.UUID, rec *normalize.Record) (*entity.Candidate, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetView(ctx context.Context, id uuid.UUID) (requirements.CandidateView, error)
}

// KeyStatusProber checks remaining provider budget before spending an
// attempt. Optional; nil disables the pre-flight gauge.
type KeyStatusProber interface {
	KeyStatus(ctx context.Context) (*llm.KeyStatus, error)
}

// Enricher overlays classification and summary onto a record.
type Enricher interface {
	Enrich(ctx context.Context, rec *normalize.Record) []string
}

// Evaluator checks a candidate against a requirements spec.
type Evaluator interface {
	Evaluate(ctx context.Context, cand requirements.CandidateView, spec *requirements.Spec) (bool, []string)
}

// TextExtractor reads a stored document into plain text. The default
// is extract.FromFile.
type TextExtractor func(path, mimeType, filename string) (string, string, error)

// Config holds the runner's pipeline limits and model selection.
type Config struct {
	ExtractModel   string
	Temperature    float64
	SoftTimeLimit  time.Duration
	RateLimitPause time.Duration
}

// Runner executes one parse run per call.
type Runner struct {
	docs       DocumentStore
	runs       RunStore
	candidates CandidateStore
	caller     llm.Caller
	prober     KeyStatusProber
	normalizer *normalize.Normalizer
	enricher   Enricher
	evaluator  Evaluator
	extractor  TextExtractor
	cfg        Config
	logger     *slog.Logger
}

func NewRunner(docs DocumentStore, runs RunStore, candidates CandidateStore,
	caller llm.Caller, prober KeyStatusProber, enricher Enricher, evaluator Evaluator,
	cfg Config, logger *slog.Logger) *Runner {
	if cfg.SoftTimeLimit <= 0 {
		cfg.SoftTimeLimit = 4 * time.Minute
	}
	if cfg.RateLimitPause <= 0 {
		cfg.RateLimitPause = 5 * time.Minute
	}
	return &Runner{
		docs:       docs,
		runs:       runs,
		candidates: candidates,
		caller:     caller,
		prober:     prober,
		normalizer: normalize.NewNormalizer(),
		enricher:   enricher,
		evaluator:  evaluator,
		extractor:  extract.FromFile,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run processes one parse run. A nil return means the run reached a
// terminal state (or vanished); a *Requeue return asks for a delayed
// redelivery; any other error is a retryable pipeline failure.
func (r *Runner) Run(ctx context.Context, runID uuid.UUID, attempt int) error {
	logger := r.logger.With("parse_run_id", runID, "retry_count", attempt)
	logger.Info("pipeline.start")

	run, err := r.runs.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			logger.Error("pipeline.run_not_found")
			return nil
		}
		return err
	}
	if run.Status.Terminal() {
		logger.Warn("pipeline.run_already_terminal", "status", run.Status)
		return nil
	}

	// Cheap pre-flight gauge for free-tier keys; a probe failure is
	// not a reason to fail the run.
	if r.prober != nil {
		if status, probeErr := r.prober.KeyStatus(ctx); probeErr != nil {
			logger.Debug("pipeline.key_status_failed", "error", probeErr)
		} else if status.Exhausted() {
			logger.Warn("pipeline.rate_limit_exhausted", "usage_daily", status.UsageDaily, "is_free_tier", status.IsFreeTier)
			_ = r.runs.RecordError(ctx, runID, constants.ErrCodeRateLimit, "Daily rate limit exhausted")
			return &Requeue{After: r.cfg.RateLimitPause, Code: constants.ErrCodeRateLimit,
				Err: &llm.RateLimitExhaustedError{Usage: status.UsageDaily}}
		}
	}

	if err := r.runs.MarkTaskStarted(ctx, runID, attempt); err != nil {
		return err
	}
	if err := r.runs.Transition(ctx, runID, constants.RunStatusProcessing, "Task started"); err != nil {
		return err
	}

	softCtx, cancel := context.WithTimeout(ctx, r.cfg.SoftTimeLimit)
	defer cancel()

	err = r.process(softCtx, run, attempt, logger)
	if err != nil && softCtx.Err() != nil && errors.Is(err, context.DeadlineExceeded) {
		return r.failTerminal(ctx, runID, "Task exceeded soft time limit",
			constants.ErrCodeTimeout, fmt.Sprintf("Task exceeded time limit (%s)", r.cfg.SoftTimeLimit), logger)
	}
	return err
}

func (r *Runner) process(ctx context.Context, run *entity.ParseRun, attempt int, logger *slog.Logger) error {
	runID := run.ID

	doc, err := r.docs.GetByID(ctx, run.DocumentID)
	if err != nil {
		return err
	}

	rawText := ""
	if doc.RawText != nil {
		rawText = *doc.RawText
	}
	if rawText == "" {
		_ = r.runs.SetProgress(ctx, runID, constants.StageExtractingText)
		text, method, extractErr := r.extractor(doc.StoragePath, doc.MimeType, doc.OriginalFilename)
		if extractErr != nil {
			return r.failTerminal(ctx, runID,
				fmt.Sprintf("Text extraction failed: %v", extractErr),
				constants.ErrCodeTextExtraction, extractErr.Error(), logger)
		}
		rawText = text
		if err := r.docs.SetRawText(ctx, doc.ID, rawText, method); err != nil {
			return err
		}
		logger.Info("pipeline.text_extracted", "extraction_method", method, "text_length", len(rawText))
	}
	if rawText == "" {
		return r.failTerminal(ctx, runID, "No raw text available after extraction attempt",
			constants.ErrCodeNoRawText, "No raw text extracted from document.", logger)
	}

	_ = r.runs.SetProgress(ctx, runID, constants.StageExtractingPII)
	findings := pii.Extract(rawText)
	logger.Info("pipeline.pii_extracted",
		"emails_found", len(findings.Emails),
		"phones_found", len(findings.Phones),
		"links_found", len(findings.Links))

	_ = r.runs.SetProgress(ctx, runID, constants.StageCallingLLM)
	res, err := r.caller.Chat(ctx, llm.CallRequest{
		Model:        r.cfg.ExtractModel,
		SystemPrompt: llm.ExtractionSystemPrompt,
		UserPrompt: llm.ExtractionUserPrompt(normalize.NewTemplate(), map[string][]string{
			"emails_found": findings.Emails,
			"phones_found": findings.Phones,
			"links_found":  findings.Links,
		}, rawText),
		Temperature: r.cfg.Temperature,
	})
	if err != nil {
		return r.classifyLLMFailure(ctx, runID, attempt, err, logger)
	}

	parsed, parseErr := llm.ExtractJSONObject(res.Content)
	if parseErr != nil {
		if terminalErr := r.failTerminal(ctx, runID,
			fmt.Sprintf("Pipeline error: %v", parseErr),
			constants.ErrCodePipeline, parseErr.Error(), logger); terminalErr != nil {
			return terminalErr
		}
		return parseErr
	}

	rawJSON, _ := json.Marshal(parsed)
	if err := r.runs.RecordLLMCall(ctx, runID, rawJSON, res.LatencyMS, res.InputTokens, res.OutputTokens, res.Model); err != nil {
		return err
	}
	logger.Info("pipeline.llm_extraction_complete",
		"model", res.Model,
		"latency_ms", res.LatencyMS,
		"input_tokens", res.InputTokens,
		"output_tokens", res.OutputTokens)

	_ = r.runs.SetProgress(ctx, runID, constants.StageValidating)
	norm := r.normalizer.Normalize(parsed, findings)
	status := norm.Status
	warnings := norm.Warnings
	logger.Info("pipeline.validation_complete",
		"status", status,
		"warnings_count", len(warnings),
		"missing_fields", norm.Missing)

	// A candidate row exists only for runs that validated well enough
	// to be useful, so everything past validation is skipped for a
	// failed extraction and the run completes with the failed status.
	if status == constants.RunStatusSuccess || status == constants.RunStatusPartial {
		_ = r.runs.SetProgress(ctx, runID, constants.StageClassifying)
		enrichWarnings := r.enricher.Enrich(ctx, norm.Record)
		warnings = append(warnings, enrichWarnings...)
		_ = r.runs.SetProgress(ctx, runID, constants.StageSummarizing)

		_ = r.runs.SetProgress(ctx, runID, constants.StagePersisting)
		cand, err := r.candidates.CreateFromRecord(ctx, doc.ID, runID, norm.Record)
		if err != nil {
			return r.wrapPipelineFailure(ctx, runID, err, logger)
		}
		logger.Info("pipeline.candidate_persisted", "candidate_id", cand.ID)

		spec, specErr := requirements.ParseSpec(run.Requirements)
		if specErr != nil {
			warnings = append(warnings, fmt.Sprintf("requirements_spec_invalid: %v", specErr))
		} else if !spec.Empty() {
			view, err := r.candidates.GetView(ctx, cand.ID)
			if err != nil {
				return r.wrapPipelineFailure(ctx, runID, err, logger)
			}
			meets, reasons := r.evaluator.Evaluate(ctx, view, spec)
			if !meets {
				if err := r.candidates.Delete(ctx, cand.ID); err != nil {
					return r.wrapPipelineFailure(ctx, runID, err, logger)
				}
				warnings = append(warnings, fmt.Sprintf("REQUIREMENTS_FAILED: %s", joinReasons(reasons)))
				status = constants.RunStatusRejected
				logger.Info("pipeline.candidate_rejected", "candidate_id", cand.ID, "rejection_reasons", reasons)
			}
		}
	}

	normalizedJSON, _ := json.Marshal(norm.Record)
	if err := r.runs.SetResult(ctx, runID, normalizedJSON, warnings); err != nil {
		return err
	}
	if err := r.runs.Complete(ctx, runID, status, "Pipeline completed successfully", nil, nil); err != nil {
		return err
	}
	logger.Info("pipeline.complete", "final_status", status)
	return nil
}

// classifyLLMFailure maps an extraction-call failure onto the retry
// taxonomy: auth errors and hard provider errors are terminal, rate
// limits requeue with a growing pause, network failures requeue on the
// scheduler's default backoff.
func (r *Runner) classifyLLMFailure(ctx context.Context, runID uuid.UUID, attempt int, err error, logger *slog.Logger) error {
	switch {
	case ctx.Err() != nil && errors.Is(err, context.DeadlineExceeded):
		return err // the soft-timeout handler in Run owns this
	case llm.IsAuthFailure(err):
		return r.failTerminal(ctx, runID, "API authentication error",
			constants.ErrCodeAuth, err.Error(), logger)
	case llm.IsRateLimited(err):
		logger.Warn("pipeline.rate_limited", "error", err)
		_ = r.runs.RecordError(ctx, runID, constants.ErrCodeRateLimit, fmt.Sprintf("Rate limited: %v", err))
		return &Requeue{
			After: time.Duration(attempt+1) * 120 * time.Second,
			Code:  constants.ErrCodeRateLimit,
			Err:   err,
		}
	case llm.IsNetwork(err), isTransient(err):
		logger.Warn("pipeline.network_error", "error", err)
		_ = r.runs.RecordError(ctx, runID, constants.ErrCodeNetwork, fmt.Sprintf("Network error: %v", err))
		return &Requeue{Code: constants.ErrCodeNetwork, Err: err}
	default:
		return r.wrapPipelineFailure(ctx, runID, err, logger)
	}
}

// wrapPipelineFailure marks the run failed and re-raises so the
// scheduler still counts the attempt.
func (r *Runner) wrapPipelineFailure(ctx context.Context, runID uuid.UUID, err error, logger *slog.Logger) error {
	if terminalErr := r.failTerminal(ctx, runID,
		fmt.Sprintf("Pipeline error: %v", err),
		constants.ErrCodePipeline, err.Error(), logger); terminalErr != nil {
		return terminalErr
	}
	return err
}

// isTransient matches provider failures that exhausted the client's own
// retry budget (5xx runs, dropped connections). They cost a scheduler
// attempt instead of the run.
func isTransient(err error) bool {
	var te *llm.TransientError
	return errors.As(err, &te)
}

func (r *Runner) failTerminal(ctx context.Context, runID uuid.UUID, reason, code, message string, logger *slog.Logger) error {
	logger.Warn("pipeline.failed", "error_code", code, "reason", reason)
	return r.runs.Complete(ctx, runID, constants.RunStatusFailed, reason, &code, &message)
}

func joinReasons(reasons []string) string {
	out := ""
	for i, reason := range reasons {
		if i > 0 {
			out += ", "
		}
		out += reason
	}
	return out
}
