// Package pii runs deterministic regex extraction of contact details
// over cleaned resume text before any model call. The findings anchor
// later anti-hallucination checks on the model output.
package pii

import (
	"regexp"
	"sort"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	urlPattern   = regexp.MustCompile(`https?://[^\s)>\]]+`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
	digitPattern = regexp.MustCompile(`\d`)
)

// Findings holds the contact details located in the text. Each slice is
// deduplicated and sorted.
type Findings struct {
	Emails []string `json:"emails"`
	Phones []string `json:"phones"`
	Links  []string `json:"links"`
}

// Empty reports whether nothing was found.
func (f Findings) Empty() bool {
	return len(f.Emails) == 0 && len(f.Phones) == 0 && len(f.Links) == 0
}

// Extract scans text for email addresses, phone numbers and URLs.
// Phone candidates need at least ten digits to count; trailing
// punctuation is stripped from URLs.
func Extract(text string) Findings {
	var f Findings

	f.Emails = dedupeSorted(emailPattern.FindAllString(text, -1))

	var phones []string
	for _, m := range phonePattern.FindAllString(text, -1) {
		m = strings.TrimSpace(m)
		if DigitCount(m) >= 10 {
			phones = append(phones, m)
		}
	}
	f.Phones = dedupeSorted(phones)

	var links []string
	for _, m := range urlPattern.FindAllString(text, -1) {
		links = append(links, strings.TrimRight(m, ".,;"))
	}
	f.Links = dedupeSorted(links)

	return f
}

// IsEmail reports whether s looks like a single email address.
func IsEmail(s string) bool {
	m := emailPattern.FindString(s)
	return m == strings.TrimSpace(s) && m != ""
}

// DigitCount returns the number of decimal digits in s.
func DigitCount(s string) int {
	return len(digitPattern.FindAllString(s, -1))
}

func dedupeSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
