package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/AlexBabu26/ResumeParsePro/constants"
	"github.com/AlexBabu26/ResumeParsePro/internal/common"
)

// FileStore writes uploaded documents under a content-addressed layout:
// <base>/<owner_id>/<sha256>.<ext>. Re-uploads of identical bytes land
// on the same path.
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

func (s *FileStore) Save(ownerID uuid.UUID, contentHash, filename string, data []byte) (string, error) {
	dir := filepath.Join(s.baseDir, ownerID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", common.WrapError(err, "failed to create upload directory")
	}
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if ext == "" {
		ext = "bin"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.%s", contentHash, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", common.WrapError(err, "failed to write uploaded document")
	}
	return path, nil
}
