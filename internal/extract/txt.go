package extract

import (
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// readTXT reads a plain-text file, falling back to a Windows-1252
// decode when the bytes are not valid UTF-8.
func readTXT(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", newError(CodeTXTError, "failed to read text file", err)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", newError(CodeTXTError, "failed to decode text file", err)
	}
	return string(decoded), nil
}
