package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/AlexBabu26/ResumeParsePro/internal/common"
	"github.com/AlexBabu26/ResumeParsePro/internal/entity"
	"github.com/AlexBabu26/ResumeParsePro/internal/queue"
	"github.com/AlexBabu26/ResumeParsePro/internal/requirements"
)

type memDocs struct {
	byHash  map[string]*entity.Document
	created []*entity.Document
}

func (m *memDocs) Create(ctx context.Context, doc *entity.Document) error {
	doc.ID = uuid.New()
	m.created = append(m.created, doc)
	if m.byHash == nil {
		m.byHash = map[string]*entity.Document{}
	}
	m.byHash[doc.ContentHash] = doc
	return nil
}

func (m *memDocs) FindByOwnerAndHash(ctx context.Context, ownerID uuid.UUID, hash string) (*entity.Document, error) {
	if doc, ok := m.byHash[hash]; ok && doc.OwnerID == ownerID {
		return doc, nil
	}
	return nil, common.WrapError(common.ErrNotFound, "document not found")
}

type memRuns struct {
	created []*entity.ParseRun
	latest  *entity.ParseRun
}

func (m *memRuns) Create(ctx context.Context, run *entity.ParseRun) error {
	run.ID = uuid.New()
	m.created = append(m.created, run)
	return nil
}

func (m *memRuns) LatestForDocument(ctx context.Context, documentID uuid.UUID) (*entity.ParseRun, error) {
	if m.latest == nil {
		return nil, common.WrapError(common.ErrNotFound, "parse run not found")
	}
	return m.latest, nil
}

type memCandidates struct {
	latest *entity.Candidate
	view   requirements.CandidateView
}

func (m *memCandidates) LatestForDocument(ctx context.Context, documentID uuid.UUID) (*entity.Candidate, error) {
	if m.latest == nil {
		return nil, common.WrapError(common.ErrNotFound, "candidate not found")
	}
	return m.latest, nil
}

func (m *memCandidates) GetView(ctx context.Context, id uuid.UUID) (requirements.CandidateView, error) {
	return m.view, nil
}

type memStorage struct {
	saved map[string][]byte
}

func (m *memStorage) Save(ownerID uuid.UUID, contentHash, filename string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[contentHash] = data
	return "/uploads/" + ownerID.String() + "/" + contentHash, nil
}

type memProducer struct {
	jobs []queue.Job
}

func (m *memProducer) Enqueue(ctx context.Context, job queue.Job) error {
	m.jobs = append(m.jobs, job)
	return nil
}

type verdictEvaluator struct {
	meets   bool
	reasons []string
	called  bool
}

func (v *verdictEvaluator) Evaluate(ctx context.Context, cand requirements.CandidateView, spec *requirements.Spec) (bool, []string) {
	v.called = true
	return v.meets, v.reasons
}

type harness struct {
	docs       *memDocs
	runs       *memRuns
	candidates *memCandidates
	storage    *memStorage
	producer   *memProducer
	evaluator  *verdictEvaluator
	svc        *Service
}

func newHarness() *harness {
	h := &harness{
		docs:       &memDocs{},
		runs:       &memRuns{},
		candidates: &memCandidates{},
		storage:    &memStorage{},
		producer:   &memProducer{},
		evaluator:  &verdictEvaluator{meets: true},
	}
	h.svc = NewService(h.docs, h.runs, h.candidates, h.storage, h.producer, h.evaluator,
		Options{ExtractModel: "openai/gpt-4o-mini", PromptVersion: "v1", Temperature: 0.1},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return h
}

func testUpload() Upload {
	return Upload{
		OwnerID:  uuid.New(),
		Filename: "jane.pdf",
		MimeType: "application/pdf",
		Data:     []byte("%PDF-1.4 resume bytes"),
	}
}

func TestSubmitNewDocument(t *testing.T) {
	h := newHarness()

	res, err := h.svc.Submit(context.Background(), testUpload())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Duplicate {
		t.Fatal("fresh upload must not be a duplicate")
	}
	if len(h.docs.created) != 1 {
		t.Fatalf("expected one document, got %d", len(h.docs.created))
	}
	doc := h.docs.created[0]
	if doc.ContentHash == "" || doc.FileSize == 0 || doc.StoragePath == "" {
		t.Fatalf("document metadata incomplete: %+v", doc)
	}
	if len(h.runs.created) != 1 {
		t.Fatalf("expected one parse run, got %d", len(h.runs.created))
	}
	run := h.runs.created[0]
	if run.DocumentID != doc.ID || run.ModelName != "openai/gpt-4o-mini" || run.PromptVersion != "v1" {
		t.Fatalf("run not wired to document: %+v", run)
	}
	if len(h.producer.jobs) != 1 || h.producer.jobs[0].ParseRunID != run.ID {
		t.Fatalf("expected the run to be enqueued, got %v", h.producer.jobs)
	}
	if res.DocumentID != doc.ID || res.ParseRunID != run.ID {
		t.Fatalf("result ids mismatch: %+v", res)
	}
}

func TestSubmitDuplicateReturnsPriorResults(t *testing.T) {
	h := newHarness()
	up := testUpload()

	first, err := h.svc.Submit(context.Background(), up)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	h.runs.latest = h.runs.created[0]
	candID := uuid.New()
	h.candidates.latest = &entity.Candidate{ID: candID, DocumentID: first.DocumentID}

	second, err := h.svc.Submit(context.Background(), up)
	if err != nil {
		t.Fatalf("duplicate submit: %v", err)
	}
	if !second.Duplicate {
		t.Fatal("expected duplicate detection")
	}
	if second.DocumentID != first.DocumentID || second.ParseRunID != first.ParseRunID {
		t.Fatalf("duplicate must resolve to prior ids, got %+v", second)
	}
	if second.CandidateID == nil || *second.CandidateID != candID {
		t.Fatalf("expected prior candidate id, got %v", second.CandidateID)
	}
	if len(h.producer.jobs) != 1 {
		t.Fatalf("duplicate must not enqueue new work, got %d jobs", len(h.producer.jobs))
	}
	if second.MeetsRequirements != nil {
		t.Fatal("no requirements supplied, no verdict expected")
	}
}

func TestSubmitDuplicateReEvaluatesRequirements(t *testing.T) {
	h := newHarness()
	up := testUpload()

	if _, err := h.svc.Submit(context.Background(), up); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	h.runs.latest = h.runs.created[0]
	h.candidates.latest = &entity.Candidate{ID: uuid.New()}
	h.evaluator.meets = false
	h.evaluator.reasons = []string{"Missing required skill: Rust"}

	up.Requirements = json.RawMessage(`{"required_skills": ["Rust"]}`)
	res, err := h.svc.Submit(context.Background(), up)
	if err != nil {
		t.Fatalf("duplicate submit: %v", err)
	}
	if !h.evaluator.called {
		t.Fatal("expected requirements re-evaluation")
	}
	if res.MeetsRequirements == nil || *res.MeetsRequirements {
		t.Fatalf("expected failing verdict, got %v", res.MeetsRequirements)
	}
	if len(res.RejectionReasons) != 1 || res.RejectionReasons[0] != "Missing required skill: Rust" {
		t.Fatalf("unexpected reasons %v", res.RejectionReasons)
	}
}

func TestSubmitRejectsUnsupportedExtension(t *testing.T) {
	h := newHarness()
	up := testUpload()
	up.Filename = "jane.exe"

	_, err := h.svc.Submit(context.Background(), up)
	if err == nil || !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("expected invalid-input error, got %v", err)
	}
	if len(h.docs.created) != 0 {
		t.Fatal("rejected upload must not create a document")
	}
}

func TestSubmitRejectsEmptyFile(t *testing.T) {
	h := newHarness()
	up := testUpload()
	up.Data = nil

	_, err := h.svc.Submit(context.Background(), up)
	if err == nil || !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("expected invalid-input error, got %v", err)
	}
}
