// Package extract converts uploaded resume documents into clean plain
// text. Each supported format has its own reader; FromFile dispatches on
// the detected format and returns the cleaned text together with the
// extraction method used.
package extract

import (
	"github.com/AlexBabu26/ResumeParsePro/constants"
)

// Method names recorded on the document after a successful extraction.
const (
	MethodPDF  = "pdf"
	MethodDOCX = "docx"
	MethodDOC  = "doc"
	MethodTXT  = "txt"
)

// FromFile reads the document at path and returns its cleaned text and
// the extraction method. Format detection prefers the filename
// extension, then the mime type, defaulting to DOCX.
func FromFile(path, mimeType, filename string) (string, string, error) {
	format := constants.DetectFormat(filename, mimeType)
	switch format {
	case constants.FormatPDF:
		text, err := readPDF(path)
		if err != nil {
			return "", "", err
		}
		return CleanText(text), MethodPDF, nil
	case constants.FormatTXT:
		text, err := readTXT(path)
		if err != nil {
			return "", "", err
		}
		return CleanText(text), MethodTXT, nil
	case constants.FormatDOC:
		text, err := readDOC(path)
		if err != nil {
			return "", "", err
		}
		return CleanText(text), MethodDOC, nil
	default:
		text, err := readDOCX(path)
		if err != nil {
			return "", "", err
		}
		return CleanText(text), MethodDOCX, nil
	}
}
