// Package ingest accepts resume uploads, deduplicates them by content
// hash and schedules a parse run for new documents.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/AlexBabu26/ResumeParsePro/constants"
	"github.com/AlexBabu26/ResumeParsePro/internal/common"
	"github.com/AlexBabu26/ResumeParsePro/internal/entity"
	"github.com/AlexBabu26/ResumeParsePro/internal/queue"
	"github.com/AlexBabu26/ResumeParsePro/internal/requirements"
)

// MaxUploadBytes bounds a single resume upload. Real resumes are far
// smaller; the limit guards against accidental binary dumps.
const MaxUploadBytes = 20 << 20

// DocumentStore is the slice of the document repository this service uses.
type DocumentStore interface {
	Create(ctx context.Context, doc *entity.Document) error
	FindByOwnerAndHash(ctx context.Context, ownerID uuid.UUID, hash string) (*entity.Document, error)
}

// RunStore is the slice of the parse-run repository this service uses.
type RunStore interface {
	Create(ctx context.Context, run *entity.ParseRun) error
	LatestForDocument(ctx context.Context, documentID uuid.UUID) (*entity.ParseRun, error)
}

// CandidateStore is the slice of the candidate repository this service uses.
type CandidateStore interface {
	LatestForDocument(ctx context.Context, documentID uuid.UUID) (*entity.Candidate, error)
	GetView(ctx context.Context, id uuid.UUID) (requirements.CandidateView, error)
}

// Evaluator re-checks an existing candidate against freshly supplied
// requirements on duplicate uploads.
type Evaluator interface {
	Evaluate(ctx context.Context, cand requirements.CandidateView, spec *requirements.Spec) (bool, []string)
}

// Storage persists the raw uploaded bytes and returns the stored path.
type Storage interface {
	Save(ownerID uuid.UUID, contentHash, filename string, data []byte) (string, error)
}

// Upload is one resume submission.
type Upload struct {
	OwnerID      uuid.UUID
	Filename     string
	MimeType     string
	Data         []byte
	Requirements json.RawMessage
}

// Result reports where an upload landed. For duplicates the existing
// document, latest run and latest candidate are returned instead of
// scheduling new work; MeetsRequirements is set only when a duplicate
// was re-evaluated against the supplied requirements.
type Result struct {
	DocumentID        uuid.UUID
	ParseRunID        uuid.UUID
	CandidateID       *uuid.UUID
	Duplicate         bool
	MeetsRequirements *bool
	RejectionReasons  []string
}

// Service wires storage, repositories and the job queue.
type Service struct {
	docs       DocumentStore
	runs       RunStore
	candidates CandidateStore
	storage    Storage
	producer   queue.Producer
	evaluator  Evaluator

	extractModel  string
	promptVersion string
	temperature   float64

	logger *slog.Logger
}

type Options struct {
	ExtractModel  string
	PromptVersion string
	Temperature   float64
}

func NewService(docs DocumentStore, runs RunStore, candidates CandidateStore,
	storage Storage, producer queue.Producer, evaluator Evaluator,
	opts Options, logger *slog.Logger) *Service {
	return &Service{
		docs:          docs,
		runs:          runs,
		candidates:    candidates,
		storage:       storage,
		producer:      producer,
		evaluator:     evaluator,
		extractModel:  opts.ExtractModel,
		promptVersion: opts.PromptVersion,
		temperature:   opts.Temperature,
		logger:        logger,
	}
}

var allowedExtensions = map[string]bool{
	"pdf":  true,
	"docx": true,
	"doc":  true,
	"txt":  true,
}

// Submit stores a new document and queues its parse run, or resolves a
// duplicate to the prior results.
func (s *Service) Submit(ctx context.Context, up Upload) (*Result, error) {
	if err := validate(up); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(up.Data)
	hash := hex.EncodeToString(sum[:])
	logger := s.logger.With("owner_id", up.OwnerID, "content_hash", hash)

	existing, err := s.docs.FindByOwnerAndHash(ctx, up.OwnerID, hash)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return s.resolveDuplicate(ctx, existing, up.Requirements, logger)
	}

	path, err := s.storage.Save(up.OwnerID, hash, up.Filename, up.Data)
	if err != nil {
		return nil, err
	}

	doc := &entity.Document{
		OwnerID:          up.OwnerID,
		OriginalFilename: up.Filename,
		MimeType:         up.MimeType,
		ContentHash:      hash,
		FileSize:         int64(len(up.Data)),
		StoragePath:      path,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}

	run := &entity.ParseRun{
		DocumentID:    doc.ID,
		ModelName:     s.extractModel,
		PromptVersion: s.promptVersion,
		Temperature:   s.temperature,
		Requirements:  up.Requirements,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	if err := s.producer.Enqueue(ctx, queue.Job{ParseRunID: run.ID}); err != nil {
		return nil, err
	}
	logger.Info("ingest.document_accepted",
		"document_id", doc.ID,
		"parse_run_id", run.ID,
		"filename", up.Filename,
		"file_size", doc.FileSize,
		"format", constants.DetectFormat(up.Filename, up.MimeType))

	return &Result{DocumentID: doc.ID, ParseRunID: run.ID}, nil
}

// resolveDuplicate returns the prior run and candidate for a re-upload.
// When requirements accompany the duplicate and a candidate exists, the
// candidate is re-evaluated in place; a failing verdict is reported but
// never deletes prior results.
func (s *Service) resolveDuplicate(ctx context.Context, doc *entity.Document,
	reqJSON json.RawMessage, logger *slog.Logger) (*Result, error) {

	res := &Result{DocumentID: doc.ID, Duplicate: true}

	run, err := s.runs.LatestForDocument(ctx, doc.ID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if run != nil {
		res.ParseRunID = run.ID
	}

	cand, err := s.candidates.LatestForDocument(ctx, doc.ID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if cand != nil {
		res.CandidateID = &cand.ID
	}

	spec, specErr := requirements.ParseSpec(reqJSON)
	if specErr == nil && !spec.Empty() && cand != nil {
		view, err := s.candidates.GetView(ctx, cand.ID)
		if err != nil {
			return nil, err
		}
		meets, reasons := s.evaluator.Evaluate(ctx, view, spec)
		res.MeetsRequirements = &meets
		if !meets {
			res.RejectionReasons = reasons
		}
	}

	logger.Info("ingest.duplicate_resolved",
		"document_id", doc.ID,
		"candidate_found", cand != nil,
		"requirements_checked", res.MeetsRequirements != nil)
	return res, nil
}

func validate(up Upload) error {
	if len(up.Data) == 0 {
		return common.NewAppError("EMPTY_UPLOAD", "uploaded file is empty", common.ErrInvalidInput)
	}
	if len(up.Data) > MaxUploadBytes {
		return common.NewAppError("FILE_TOO_LARGE",
			fmt.Sprintf("uploaded file exceeds %d bytes", MaxUploadBytes), common.ErrInvalidInput)
	}
	if up.OwnerID == uuid.Nil {
		return common.NewAppError("MISSING_OWNER", "owner id is required", common.ErrInvalidInput)
	}
	ext := constants.NormalizeExt(filepath.Ext(up.Filename))
	if !allowedExtensions[ext] {
		return common.NewAppError("UNSUPPORTED_FILE_TYPE",
			fmt.Sprintf("unsupported file extension %q", ext), common.ErrInvalidInput)
	}
	return nil
}
