package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is the immutable source artifact for a parse run. Documents are
// content-addressed: OwnerID + ContentHash identify a logical upload, so
// re-uploading identical bytes resolves to the existing row.
type Document struct {
	ID               uuid.UUID  `json:"id"`
	OwnerID          uuid.UUID  `json:"owner_id"`
	OriginalFilename string     `json:"original_filename"`
	MimeType         string     `json:"mime_type"`
	ContentHash      string     `json:"content_hash"` // SHA256 hex
	FileSize         int64      `json:"file_size"`
	StoragePath      string     `json:"storage_path"`
	RawText          *string    `json:"raw_text,omitempty"`
	ExtractionMethod *string    `json:"extraction_method,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
