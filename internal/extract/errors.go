package extract

import "fmt"

// Error codes for extraction failures. These are stable identifiers
// surfaced on the owning parse run.
const (
	CodeMissingDependency = "MISSING_DEPENDENCY"
	CodePasswordProtected = "PASSWORD_PROTECTED"
	CodeCorruptedPDF      = "CORRUPTED_PDF"
	CodeCorruptedDOCX     = "CORRUPTED_DOCX"
	CodePDFError          = "PDF_EXTRACTION_ERROR"
	CodeDOCXError         = "DOCX_EXTRACTION_ERROR"
	CodeDOCError          = "DOC_EXTRACTION_ERROR"
	CodeTXTError          = "TXT_READ_ERROR"
)

// ExtractionError is a terminal, non-retryable extraction failure.
type ExtractionError struct {
	Code    string
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

func newError(code, message string, cause error) *ExtractionError {
	return &ExtractionError{Code: code, Message: message, Cause: cause}
}
