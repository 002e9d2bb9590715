package extract

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

func readPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		if isEncryptedErr(err) {
			return "", newError(CodePasswordProtected, "PDF is password-protected", err)
		}
		return "", newError(CodeCorruptedPDF, "failed to open PDF", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", newError(CodePDFError, "failed to extract PDF text", err)
	}
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", newError(CodePDFError, "failed to read PDF text", err)
	}
	return buf.String(), nil
}

func isEncryptedErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "encrypt") || strings.Contains(msg, "password")
}
