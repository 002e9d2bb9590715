package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reHyphenBreak = regexp.MustCompile(`(\w)-\n(\w)`)
	reSpaceRuns   = regexp.MustCompile(`[ \t]+`)
	reLineEdges   = regexp.MustCompile(` *\n *`)
	reBlankRuns   = regexp.MustCompile(`\n{3,}`)
)

// charReplacements maps typographic variants to ASCII equivalents.
var charReplacements = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"–", "-", // en dash
	"—", "-", // em dash
	"…", "...", // ellipsis
	"\u00a0", " ", // non-breaking space
	"\u200b", "", // zero-width space
	"\u200c", "", // zero-width non-joiner
	"\u200d", "", // zero-width joiner
	"\ufeff", "", // byte order mark
)

// CleanText normalizes raw extracted text for LLM processing: NFKC
// unicode normalization, smart-quote and dash mapping, control-character
// stripping (newline and tab survive), rejoining of hyphen-broken words,
// whitespace collapsing and a one-blank-line cap. Pure and idempotent;
// empty input yields the empty string.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFKC.String(text)
	text = charReplacements.Replace(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r < 32 || r == 127:
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	text = b.String()

	// Rejoin words split across a line boundary, common in PDFs.
	text = reHyphenBreak.ReplaceAllString(text, "$1$2")

	text = reSpaceRuns.ReplaceAllString(text, " ")
	text = reLineEdges.ReplaceAllString(text, "\n")
	text = reBlankRuns.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
