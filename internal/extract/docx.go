package extract

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"
)

// readDOCX pulls the paragraph text out of word/document.xml. A DOCX
// file is a zip archive; anything that fails to open as one is treated
// as corrupted.
func readDOCX(path string) (string, error) {
	text, err := readWordArchive(path)
	if err != nil {
		if e, ok := err.(*ExtractionError); ok {
			return "", e
		}
		return "", newError(CodeDOCXError, "failed to extract DOCX text", err)
	}
	return text, nil
}

// readDOC handles legacy .doc uploads. Files saved by modern tooling
// under a .doc name are frequently OOXML archives, so the same reader
// is attempted; genuine OLE binaries fail with a DOC error.
func readDOC(path string) (string, error) {
	text, err := readWordArchive(path)
	if err != nil {
		return "", newError(CodeDOCError, "failed to extract DOC text", err)
	}
	return text, nil
}

func readWordArchive(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", newError(CodeCorruptedDOCX, "file is not a valid Word archive", err)
	}
	defer zr.Close()

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", newError(CodeCorruptedDOCX, "archive has no word/document.xml", nil)
	}

	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	return wordXMLText(rc)
}

// wordXMLText walks the WordprocessingML token stream collecting run
// text, inserting tabs for w:tab and newlines at paragraph ends.
func wordXMLText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var b strings.Builder
	var inText bool
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}
