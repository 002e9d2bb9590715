// Package enrich adds LLM classification and recruiter summary to a
// normalized resume record. The two calls run concurrently and fail
// independently; a failed branch leaves a warning instead of failing
// the run.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AlexBabu26/ResumeParsePro/internal/llm"
	"github.com/AlexBabu26/ResumeParsePro/internal/normalize"
)

// Config selects models and temperatures for the two branches.
type Config struct {
	ClassifyModel       string
	SummaryModel        string
	ClassifyTemperature float64
	SummaryTemperature  float64
}

type Enricher struct {
	caller llm.Caller
	cfg    Config
	logger *slog.Logger
}

func NewEnricher(caller llm.Caller, cfg Config, logger *slog.Logger) *Enricher {
	return &Enricher{caller: caller, cfg: cfg, logger: logger}
}

type branchResult struct {
	parsed map[string]any
	call   *llm.CallResult
	err    error
}

// Enrich mutates rec in place with classification and summary and
// returns the warnings appended during enrichment. The total cost of
// both calls lands in rec.Quality.EnrichmentCostUSD.
func (e *Enricher) Enrich(ctx context.Context, rec *normalize.Record) []string {
	e.logger.Info("enrich.start",
		"classify_model", e.cfg.ClassifyModel,
		"summary_model", e.cfg.SummaryModel)

	var classify, summary branchResult
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		classify = e.callBranch(ctx, llm.CallRequest{
			Model:        e.cfg.ClassifyModel,
			SystemPrompt: llm.ClassifySystemPrompt,
			UserPrompt:   llm.ClassifyUserPrompt(rec),
			Temperature:  e.cfg.ClassifyTemperature,
		})
	}()
	go func() {
		defer wg.Done()
		summary = e.callBranch(ctx, llm.CallRequest{
			Model:        e.cfg.SummaryModel,
			SystemPrompt: llm.SummarySystemPrompt,
			UserPrompt:   llm.SummaryUserPrompt(rec),
			Temperature:  e.cfg.SummaryTemperature,
		})
	}()
	wg.Wait()

	var warnings []string
	var totalCost float64

	if classify.err != nil {
		warnings = append(warnings, fmt.Sprintf("classification_failed: %v", classify.err))
		e.logger.Warn("enrich.classify.failed", "error", classify.err)
	} else {
		rec.Classification = normalize.Classification{
			PrimaryRole:    optString(classify.parsed, "primary_role"),
			SecondaryRoles: stringSlice(classify.parsed, "secondary_roles", 3),
			Seniority:      optString(classify.parsed, "seniority"),
			Confidence:     normalize.Clamp01(optFloat(classify.parsed, "confidence")),
			Rationale:      optString(classify.parsed, "rationale"),
		}
		totalCost += classify.call.CostUSD
		warnings = append(warnings, fmt.Sprintf("classification_model=%s, latency_ms=%d, cost_usd=%g",
			classify.call.Model, classify.call.LatencyMS, classify.call.CostUSD))
	}

	if summary.err != nil {
		warnings = append(warnings, fmt.Sprintf("summary_failed: %v", summary.err))
		e.logger.Warn("enrich.summary.failed", "error", summary.err)
	} else {
		rec.Summary = normalize.Summary{
			OneLiner:   optString(summary.parsed, "one_liner"),
			Highlights: stringSlice(summary.parsed, "highlights", 5),
		}
		totalCost += summary.call.CostUSD
		warnings = append(warnings, fmt.Sprintf("summary_model=%s, latency_ms=%d, cost_usd=%g",
			summary.call.Model, summary.call.LatencyMS, summary.call.CostUSD))
	}

	rec.Quality.Warnings = append(rec.Quality.Warnings, warnings...)
	rec.Quality.EnrichmentCostUSD = totalCost

	e.logger.Info("enrich.complete",
		"total_cost_usd", totalCost,
		"classification_success", classify.err == nil,
		"summary_success", summary.err == nil)
	return warnings
}

func (e *Enricher) callBranch(ctx context.Context, req llm.CallRequest) branchResult {
	res, err := e.caller.Chat(ctx, req)
	if err != nil {
		return branchResult{err: err}
	}
	parsed, err := llm.ExtractJSONObject(res.Content)
	if err != nil {
		return branchResult{err: err}
	}
	return branchResult{parsed: parsed, call: res}
}

func optString(m map[string]any, key string) *string {
	if s, ok := m[key].(string); ok && s != "" {
		return &s
	}
	return nil
}

func optFloat(m map[string]any, key string) float64 {
	if f, ok := m[key].(float64); ok {
		return f
	}
	return 0
}

func stringSlice(m map[string]any, key string, max int) []string {
	out := []string{}
	raw, _ := m[key].([]any)
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
			if len(out) == max {
				break
			}
		}
	}
	return out
}
