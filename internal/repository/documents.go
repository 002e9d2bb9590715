package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AlexBabu26/ResumeParsePro/internal/common"
	"github.com/AlexBabu26/ResumeParsePro/internal/entity"
)

const documentColumns = `id, owner_id, original_filename, mime_type, content_hash,
	file_size, storage_path, raw_text, extraction_method, created_at, updated_at`

// DocumentRepository persists uploaded documents.
type DocumentRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewDocumentRepository(pool *pgxpool.Pool, logger *slog.Logger) *DocumentRepository {
	return &DocumentRepository{pool: pool, logger: logger}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO documents (id, owner_id, original_filename, mime_type, content_hash,
			file_size, storage_path, raw_text, extraction_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		doc.ID, doc.OwnerID, doc.OriginalFilename, doc.MimeType, doc.ContentHash,
		doc.FileSize, doc.StoragePath, doc.RawText, doc.ExtractionMethod)
	if err := row.Scan(&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		r.logger.Error("document.create.failed", "error", err)
		return common.WrapError(err, "failed to create document")
	}
	r.logger.Info("document.created", "document_id", doc.ID, "owner_id", doc.OwnerID)
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

// FindByOwnerAndHash resolves a logical upload for dedup. Returns
// common.ErrNotFound when the owner has never uploaded these bytes.
func (r *DocumentRepository) FindByOwnerAndHash(ctx context.Context, ownerID uuid.UUID, hash string) (*entity.Document, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE owner_id = $1 AND content_hash = $2
		ORDER BY created_at DESC
		LIMIT 1`, ownerID, hash)
	return scanDocument(row)
}

// SetRawText stores the cleaned extraction output on the document.
func (r *DocumentRepository) SetRawText(ctx context.Context, id uuid.UUID, rawText, method string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE documents
		SET raw_text = $2, extraction_method = $3, updated_at = now()
		WHERE id = $1`, id, rawText, method)
	if err != nil {
		r.logger.Error("document.set_raw_text.failed", "document_id", id, "error", err)
		return common.WrapError(err, "failed to store raw text")
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var doc entity.Document
	err := row.Scan(&doc.ID, &doc.OwnerID, &doc.OriginalFilename, &doc.MimeType,
		&doc.ContentHash, &doc.FileSize, &doc.StoragePath, &doc.RawText,
		&doc.ExtractionMethod, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "failed to scan document")
	}
	return &doc, nil
}
