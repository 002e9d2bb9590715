package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AlexBabu26/ResumeParsePro/constants"
	"github.com/AlexBabu26/ResumeParsePro/internal/entity"
	"github.com/AlexBabu26/ResumeParsePro/internal/llm"
	"github.com/AlexBabu26/ResumeParsePro/internal/normalize"
	"github.com/AlexBabu26/ResumeParsePro/internal/requirements"
)

const extractedDoc = `{
	"schema_version": "1.0",
	"candidate": {
		"full_name": "Jane Doe",
		"headline": "Backend Engineer",
		"location": "Berlin, Germany",
		"emails": ["jane@example.com"],
		"phones": ["+1 415 555 0132"],
		"links": {"linkedin": "https://linkedin.com/in/janedoe", "github": null, "portfolio": null, "other": []}
	},
	"skills": [
		{"name": "Go", "category": null, "confidence": 0.9, "evidence": ["Go microservices"]},
		{"name": "PostgreSQL", "category": null, "confidence": 0.8, "evidence": ["PostgreSQL"]},
		{"name": "Docker", "category": null, "confidence": 0.8, "evidence": ["Docker"]},
		{"name": "Kubernetes", "category": null, "confidence": 0.7, "evidence": ["Kubernetes"]},
		{"name": "Redis", "category": null, "confidence": 0.7, "evidence": ["Redis"]}
	],
	"education": [
		{"institution": "TU Berlin", "degree": "BSc Computer Science", "start_date": "2012", "end_date": "2016", "confidence": 0.9, "evidence": ["TU Berlin"]}
	],
	"experience": [
		{"company": "Acme GmbH", "title": "Senior Backend Engineer", "start_date": "2019-03", "end_date": null, "is_current": true, "bullets": ["Built services"], "technologies": ["Go"], "confidence": 0.9, "evidence": ["Acme GmbH"]}
	],
	"quality": {"warnings": [], "missing_critical_fields": [], "overall_confidence": 0}
}`

const resumeText = "Jane Doe\nBackend Engineer in Berlin, Germany\njane@example.com +1 415 555 0132\nhttps://linkedin.com/in/janedoe\nGo microservices, PostgreSQL, Docker, Kubernetes, Redis\nAcme GmbH Senior Backend Engineer 2019-03 to present\nTU Berlin BSc Computer Science 2012-2016"

type stubDocs struct {
	doc        *entity.Document
	rawTextSet string
	methodSet  string
}

func (s *stubDocs) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	return s.doc, nil
}

func (s *stubDocs) SetRawText(ctx context.Context, id uuid.UUID, rawText, method string) error {
	s.rawTextSet = rawText
	s.methodSet = method
	s.doc.RawText = &rawText
	return nil
}

type stubRuns struct {
	run *entity.ParseRun

	stages      []constants.ProgressStage
	transitions []constants.RunStatus
	taskStarted bool

	llmRaw       json.RawMessage
	llmModel     string
	resultJSON   json.RawMessage
	warnings     []string
	errorCode    string
	errorMessage string

	completedStatus constants.RunStatus
	completedReason string
	completedCode   *string
	completedMsg    *string
	completed       bool
}

func (s *stubRuns) GetByID(ctx context.Context, id uuid.UUID) (*entity.ParseRun, error) {
	if s.run == nil {
		return nil, errors.New("parse run not found: not found")
	}
	return s.run, nil
}

func (s *stubRuns) MarkTaskStarted(ctx context.Context, id uuid.UUID, retryCount int) error {
	s.taskStarted = true
	return nil
}

func (s *stubRuns) Transition(ctx context.Context, id uuid.UUID, newStatus constants.RunStatus, reason string) error {
	s.transitions = append(s.transitions, newStatus)
	return nil
}

func (s *stubRuns) SetProgress(ctx context.Context, id uuid.UUID, stage constants.ProgressStage) error {
	s.stages = append(s.stages, stage)
	return nil
}

func (s *stubRuns) RecordLLMCall(ctx context.Context, id uuid.UUID, raw json.RawMessage, latencyMS, inputTokens, outputTokens int, model string) error {
	s.llmRaw = raw
	s.llmModel = model
	return nil
}

func (s *stubRuns) SetResult(ctx context.Context, id uuid.UUID, normalized json.RawMessage, warnings []string) error {
	s.resultJSON = normalized
	s.warnings = warnings
	return nil
}

func (s *stubRuns) RecordError(ctx context.Context, id uuid.UUID, code, message string) error {
	s.errorCode = code
	s.errorMessage = message
	return nil
}

func (s *stubRuns) Complete(ctx context.Context, id uuid.UUID, status constants.RunStatus, reason string, errCode, errMessage *string) error {
	s.completed = true
	s.completedStatus = status
	s.completedReason = reason
	s.completedCode = errCode
	s.completedMsg = errMessage
	return nil
}

type stubCandidates struct {
	created *entity.Candidate
	deleted []uuid.UUID
	view    requirements.CandidateView
}

func (s *stubCandidates) CreateFromRecord(ctx context.Context, documentID, parseRunID uuid.UUID, rec *normalize.Record) (*entity.Candidate, error) {
	s.created = &entity.Candidate{ID: uuid.New(), DocumentID: documentID, ParseRunID: parseRunID}
	if rec.Candidate.FullName != nil {
		s.created.FullName = rec.Candidate.FullName
	}
	return s.created, nil
}

func (s *stubCandidates) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubCandidates) GetView(ctx context.Context, id uuid.UUID) (requirements.CandidateView, error) {
	return s.view, nil
}

type stubCaller struct {
	result *llm.CallResult
	err    error
	calls  int
}

func (s *stubCaller) Chat(ctx context.Context, req llm.CallRequest) (*llm.CallResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubEnricher struct {
	warnings []string
	called   bool
}

func (s *stubEnricher) Enrich(ctx context.Context, rec *normalize.Record) []string {
	s.called = true
	return s.warnings
}

type stubEvaluator struct {
	meets   bool
	reasons []string
	called  bool
}

func (s *stubEvaluator) Evaluate(ctx context.Context, cand requirements.CandidateView, spec *requirements.Spec) (bool, []string) {
	s.called = true
	return s.meets, s.reasons
}

type stubProber struct {
	status *llm.KeyStatus
	err    error
}

func (s *stubProber) KeyStatus(ctx context.Context) (*llm.KeyStatus, error) {
	return s.status, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

type fixture struct {
	docs       *stubDocs
	runs       *stubRuns
	candidates *stubCandidates
	caller     *stubCaller
	enricher   *stubEnricher
	evaluator  *stubEvaluator
	runner     *Runner
	runID      uuid.UUID
}

func newFixture(requirementsSpec string) *fixture {
	docID := uuid.New()
	runID := uuid.New()
	raw := resumeText

	f := &fixture{
		docs: &stubDocs{doc: &entity.Document{
			ID:               docID,
			OriginalFilename: "jane.txt",
			MimeType:         "text/plain",
			StoragePath:      "/tmp/jane.txt",
			RawText:          &raw,
		}},
		runs: &stubRuns{run: &entity.ParseRun{
			ID:         runID,
			DocumentID: docID,
			Status:     constants.RunStatusQueued,
		}},
		candidates: &stubCandidates{view: requirements.CandidateView{
			FullName: strPtr("Jane Doe"),
			Skills:   []string{"Go", "PostgreSQL"},
		}},
		caller: &stubCaller{result: &llm.CallResult{
			Content:      extractedDoc,
			Model:        "meta-llama/llama-3-8b-instruct",
			LatencyMS:    900,
			InputTokens:  1200,
			OutputTokens: 400,
			CostUSD:      0.0001,
		}},
		enricher:  &stubEnricher{},
		evaluator: &stubEvaluator{meets: true},
		runID:     runID,
	}
	if requirementsSpec != "" {
		f.runs.run.Requirements = json.RawMessage(requirementsSpec)
	}
	f.runner = NewRunner(f.docs, f.runs, f.candidates, f.caller, nil,
		f.enricher, f.evaluator,
		Config{ExtractModel: "meta-llama/llama-3-8b-instruct", Temperature: 0.1},
		testLogger())
	return f
}

func TestRunSuccess(t *testing.T) {
	f := newFixture("")
	f.enricher.warnings = []string{"classification_model=x, latency_ms=40, cost_usd=0.0001"}

	if err := f.runner.Run(context.Background(), f.runID, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.runs.completed || f.runs.completedStatus != constants.RunStatusSuccess {
		t.Fatalf("expected success completion, got completed=%v status=%s", f.runs.completed, f.runs.completedStatus)
	}
	if f.runs.completedReason != "Pipeline completed successfully" {
		t.Fatalf("unexpected completion reason %q", f.runs.completedReason)
	}
	if !f.enricher.called {
		t.Fatal("expected enrichment to run on a successful extraction")
	}
	if f.candidates.created == nil {
		t.Fatal("expected a candidate to be persisted")
	}
	if len(f.runs.llmRaw) == 0 || f.runs.llmModel != "meta-llama/llama-3-8b-instruct" {
		t.Fatalf("expected raw LLM output to be recorded, got model %q", f.runs.llmModel)
	}
	if len(f.runs.warnings) != 1 || !strings.HasPrefix(f.runs.warnings[0], "classification_model=") {
		t.Fatalf("expected enrichment warnings in result, got %v", f.runs.warnings)
	}

	wantStages := []constants.ProgressStage{
		constants.StageExtractingPII,
		constants.StageCallingLLM,
		constants.StageValidating,
		constants.StageClassifying,
		constants.StageSummarizing,
		constants.StagePersisting,
	}
	if len(f.runs.stages) != len(wantStages) {
		t.Fatalf("expected stages %v, got %v", wantStages, f.runs.stages)
	}
	for i, stage := range wantStages {
		if f.runs.stages[i] != stage {
			t.Fatalf("stage %d: expected %s, got %s", i, stage, f.runs.stages[i])
		}
	}
}

func TestRunFailedExtractionSkipsPersistence(t *testing.T) {
	f := newFixture(`{"required_skills": ["Go"], "use_llm_validation": false}`)
	f.caller.result.Content = `{"schema_version": "1.0"}`

	if err := f.runner.Run(context.Background(), f.runID, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.runs.completedStatus != constants.RunStatusFailed {
		t.Fatalf("expected failed status, got %s", f.runs.completedStatus)
	}
	if f.candidates.created != nil {
		t.Fatal("failed extraction must not persist a candidate")
	}
	if f.enricher.called || f.evaluator.called {
		t.Fatal("failed extraction must skip enrichment and requirements")
	}
	if len(f.runs.resultJSON) == 0 {
		t.Fatal("normalized output must still be recorded on the run")
	}
}

func TestRunExtractsTextWhenMissing(t *testing.T) {
	f := newFixture("")
	f.docs.doc.RawText = nil
	f.runner.extractor = func(path, mimeType, filename string) (string, string, error) {
		return resumeText, "txt", nil
	}

	if err := f.runner.Run(context.Background(), f.runID, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.docs.rawTextSet != resumeText || f.docs.methodSet != "txt" {
		t.Fatalf("expected extracted text to be persisted, got method %q", f.docs.methodSet)
	}
	if f.runs.stages[0] != constants.StageExtractingText {
		t.Fatalf("expected extraction stage first, got %s", f.runs.stages[0])
	}
}

func TestRunNoRawText(t *testing.T) {
	f := newFixture("")
	f.docs.doc.RawText = nil
	f.runner.extractor = func(path, mimeType, filename string) (string, string, error) {
		return "", "txt", nil
	}

	if err := f.runner.Run(context.Background(), f.runID, 0); err != nil {
		t.Fatalf("expected terminal failure to be absorbed, got %v", err)
	}
	if f.runs.completedStatus != constants.RunStatusFailed {
		t.Fatalf("expected failed status, got %s", f.runs.completedStatus)
	}
	if f.runs.completedCode == nil || *f.runs.completedCode != constants.ErrCodeNoRawText {
		t.Fatalf("expected NO_RAW_TEXT error code, got %v", f.runs.completedCode)
	}
	if f.caller.calls != 0 {
		t.Fatal("LLM must not be called without raw text")
	}
}

func TestRunTextExtractionFailure(t *testing.T) {
	f := newFixture("")
	f.docs.doc.RawText = nil
	f.runner.extractor = func(path, mimeType, filename string) (string, string, error) {
		return "", "", errors.New("PDF file is corrupted")
	}

	if err := f.runner.Run(context.Background(), f.runID, 0); err != nil {
		t.Fatalf("expected terminal failure to be absorbed, got %v", err)
	}
	if f.runs.completedCode == nil || *f.runs.completedCode != constants.ErrCodeTextExtraction {
		t.Fatalf("expected TEXT_EXTRACTION_FAILED, got %v", f.runs.completedCode)
	}
	if !strings.Contains(f.runs.completedReason, "Text extraction failed") {
		t.Fatalf("unexpected reason %q", f.runs.completedReason)
	}
}

func TestRunAuthFailureIsTerminal(t *testing.T) {
	f := newFixture("")
	f.caller.err = &llm.StatusError{StatusCode: 401, Body: "invalid key"}

	if err := f.runner.Run(context.Background(), f.runID, 0); err != nil {
		t.Fatalf("expected auth failure to be absorbed, got %v", err)
	}
	if f.runs.completedCode == nil || *f.runs.completedCode != constants.ErrCodeAuth {
		t.Fatalf("expected AUTH_ERROR, got %v", f.runs.completedCode)
	}
	if f.runs.completedReason != "API authentication error" {
		t.Fatalf("unexpected reason %q", f.runs.completedReason)
	}
}

func TestRunRateLimitRequeues(t *testing.T) {
	f := newFixture("")
	f.caller.err = &llm.StatusError{StatusCode: 429, Body: "slow down"}

	err := f.runner.Run(context.Background(), f.runID, 1)
	var requeue *Requeue
	if !errors.As(err, &requeue) {
		t.Fatalf("expected Requeue, got %v", err)
	}
	if requeue.After != 240*time.Second {
		t.Fatalf("expected 240s backoff on attempt 1, got %s", requeue.After)
	}
	if requeue.Code != constants.ErrCodeRateLimit {
		t.Fatalf("expected RATE_LIMIT code, got %s", requeue.Code)
	}
	if f.runs.completed {
		t.Fatal("rate-limited run must stay non-terminal")
	}
	if f.runs.errorCode != constants.ErrCodeRateLimit {
		t.Fatalf("expected RATE_LIMIT recorded, got %q", f.runs.errorCode)
	}
}

func TestRunNetworkErrorRequeues(t *testing.T) {
	f := newFixture("")
	f.caller.err = &llm.TransientError{Err: errors.New("connection refused")}

	err := f.runner.Run(context.Background(), f.runID, 0)
	var requeue *Requeue
	if !errors.As(err, &requeue) {
		t.Fatalf("expected Requeue, got %v", err)
	}
	if requeue.Code != constants.ErrCodeNetwork {
		t.Fatalf("expected NETWORK_ERROR code, got %s", requeue.Code)
	}
	if requeue.After != 0 {
		t.Fatalf("expected default scheduler backoff, got %s", requeue.After)
	}
}

func TestRunUnparseableLLMOutput(t *testing.T) {
	f := newFixture("")
	f.caller.result.Content = "I could not extract anything from this resume."

	err := f.runner.Run(context.Background(), f.runID, 0)
	if err == nil {
		t.Fatal("expected parse failure to be re-raised")
	}
	var requeue *Requeue
	if errors.As(err, &requeue) {
		t.Fatalf("parse failures are not requeues: %v", err)
	}
	if f.runs.completedCode == nil || *f.runs.completedCode != constants.ErrCodePipeline {
		t.Fatalf("expected PIPELINE_FAILED, got %v", f.runs.completedCode)
	}
}

func TestRunRequirementsRejection(t *testing.T) {
	f := newFixture(`{"required_skills": ["Rust"], "use_llm_validation": false}`)
	f.evaluator.meets = false
	f.evaluator.reasons = []string{"Missing required skill: Rust", "Low confidence score: 0.40"}

	if err := f.runner.Run(context.Background(), f.runID, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.evaluator.called {
		t.Fatal("expected requirements evaluation to run")
	}
	if f.runs.completedStatus != constants.RunStatusRejected {
		t.Fatalf("expected rejected status, got %s", f.runs.completedStatus)
	}
	if len(f.candidates.deleted) != 1 || f.candidates.deleted[0] != f.candidates.created.ID {
		t.Fatalf("expected rejected candidate to be deleted, got %v", f.candidates.deleted)
	}
	last := f.runs.warnings[len(f.runs.warnings)-1]
	want := "REQUIREMENTS_FAILED: Missing required skill: Rust, Low confidence score: 0.40"
	if last != want {
		t.Fatalf("expected %q, got %q", want, last)
	}
}

func TestRunEmptyRequirementsSkipsEvaluation(t *testing.T) {
	f := newFixture(`{}`)

	if err := f.runner.Run(context.Background(), f.runID, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.evaluator.called {
		t.Fatal("empty requirements must not trigger evaluation")
	}
	if len(f.candidates.deleted) != 0 {
		t.Fatal("candidate must survive without requirements")
	}
}

func TestRunTerminalGuard(t *testing.T) {
	f := newFixture("")
	f.runs.run.Status = constants.RunStatusSuccess

	if err := f.runner.Run(context.Background(), f.runID, 0); err != nil {
		t.Fatalf("redelivery of a finished run must be a no-op, got %v", err)
	}
	if f.runs.taskStarted || f.caller.calls != 0 {
		t.Fatal("terminal run must not be reprocessed")
	}
}

func TestRunExhaustedKeyRequeues(t *testing.T) {
	f := newFixture("")
	zero := 0.0
	f.runner.prober = &stubProber{status: &llm.KeyStatus{
		IsFreeTier:     true,
		LimitRemaining: &zero,
		UsageDaily:     50,
	}}

	err := f.runner.Run(context.Background(), f.runID, 0)
	var requeue *Requeue
	if !errors.As(err, &requeue) {
		t.Fatalf("expected Requeue, got %v", err)
	}
	if requeue.Code != constants.ErrCodeRateLimit || requeue.After != 5*time.Minute {
		t.Fatalf("expected 5m RATE_LIMIT pause, got %s after %s", requeue.Code, requeue.After)
	}
	if f.caller.calls != 0 {
		t.Fatal("exhausted key must skip the LLM call")
	}
}

func TestRunProbeFailureIsIgnored(t *testing.T) {
	f := newFixture("")
	f.runner.prober = &stubProber{err: errors.New("probe unavailable")}

	if err := f.runner.Run(context.Background(), f.runID, 0); err != nil {
		t.Fatalf("probe failures must not block the pipeline, got %v", err)
	}
	if f.runs.completedStatus != constants.RunStatusSuccess {
		t.Fatalf("expected success, got %s", f.runs.completedStatus)
	}
}
