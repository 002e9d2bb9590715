package constants

import (
	"path/filepath"
	"strings"
)

// DocumentFormat is the detected source format of an uploaded resume.
type DocumentFormat string

const (
	FormatPDF  DocumentFormat = "PDF"
	FormatDOCX DocumentFormat = "DOCX"
	FormatDOC  DocumentFormat = "DOC"
	FormatTXT  DocumentFormat = "TXT"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// DetectFormat resolves the document format from filename extension and
// mime type. Unknown types default to DOCX, which is the most forgiving
// extraction path for word-processor output.
func DetectFormat(filename, mimeType string) DocumentFormat {
	switch NormalizeExt(filepath.Ext(filename)) {
	case "pdf":
		return FormatPDF
	case "docx":
		return FormatDOCX
	case "doc":
		return FormatDOC
	case "txt":
		return FormatTXT
	}
	switch mimeType {
	case "application/pdf":
		return FormatPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatDOCX
	case "application/msword":
		return FormatDOC
	case "text/plain":
		return FormatTXT
	}
	return FormatDOCX
}
