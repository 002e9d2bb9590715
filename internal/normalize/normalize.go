package normalize

import (
	"strings"

	"github.com/AlexBabu26/ResumeParsePro/constants"
	"github.com/AlexBabu26/ResumeParsePro/internal/pii"
	"github.com/AlexBabu26/ResumeParsePro/internal/schema"
)

// Validator is satisfied by schema.Validator.
type Validator interface {
	Validate(doc any) []string
}

// Normalizer applies schema validation, anti-hallucination filtering
// and confidence scoring to raw extraction output.
type Normalizer struct {
	validator Validator
}

func NewNormalizer() *Normalizer {
	return &Normalizer{validator: schema.NewValidator()}
}

// Result is the normalization outcome. Status is success, partial or
// failed; Warnings and Missing are also folded into Record.Quality.
type Result struct {
	Record   *Record
	Warnings []string
	Missing  []string
	Status   constants.RunStatus
}

// Normalize builds the canonical record from the decoded model output.
// Contact details are cross-checked against the regex findings: when
// the regex pass found emails or phones, model values outside that set
// are dropped (falling back to the findings wholesale if nothing
// survives); when it found none, model values must at least look like
// an email or carry ten digits. Links not present in the found URLs
// are treated as hallucinated.
func (n *Normalizer) Normalize(doc map[string]any, findings pii.Findings) Result {
	var warnings, missing []string

	var schemaErrors []string
	if doc == nil {
		schemaErrors = []string{"LLM output is not a JSON object"}
	} else {
		schemaErrors = n.validator.Validate(doc)
	}
	if len(schemaErrors) > 0 {
		warnings = append(warnings, "jsonschema_validation_failed")
		warnings = append(warnings, schemaErrors...)
	}

	rec := NewTemplate()
	if doc != nil {
		overlay(doc, "schema_version", &rec.SchemaVersion)
		overlay(doc, "candidate", &rec.Candidate)
		overlay(doc, "skills", &rec.Skills)
		overlay(doc, "education", &rec.Education)
		overlay(doc, "experience", &rec.Experience)
		overlay(doc, "projects", &rec.Projects)
		overlay(doc, "certifications", &rec.Certifications)
		overlay(doc, "classification", &rec.Classification)
		overlay(doc, "summary", &rec.Summary)
	}

	rec.Candidate.Emails = filterContacts(rec.Candidate.Emails, findings.Emails, pii.IsEmail)
	rec.Candidate.Phones = filterContacts(rec.Candidate.Phones, findings.Phones, func(p string) bool {
		return pii.DigitCount(p) >= 10
	})
	rec.Candidate.Links = resolveLinks(rec.Candidate.Links, findings.Links)

	rec.Quality.OverallConfidence = confidenceScore(rec)

	if rec.Candidate.FullName == nil || *rec.Candidate.FullName == "" {
		missing = append(missing, "candidate.full_name")
	}
	if len(rec.Candidate.Emails) == 0 && len(rec.Candidate.Phones) == 0 {
		missing = append(missing, "candidate.emails/phones")
	}

	rec.Quality.Warnings = appendAll(nil, warnings)
	rec.Quality.MissingCriticalFields = appendAll(nil, missing)

	status := outcome(rec, schemaErrors, missing)
	return Result{Record: rec, Warnings: warnings, Missing: missing, Status: status}
}

func outcome(rec *Record, schemaErrors, missing []string) constants.RunStatus {
	if len(rec.Skills) == 0 && len(rec.Education) == 0 && len(rec.Experience) == 0 && len(missing) > 0 {
		return constants.RunStatusFailed
	}
	if len(schemaErrors) > 0 && len(missing) >= 1 {
		return constants.RunStatusPartial
	}
	if len(missing) >= 2 {
		return constants.RunStatusPartial
	}
	return constants.RunStatusSuccess
}

// filterContacts keeps model values confirmed by the regex findings.
// With findings present, unconfirmed values are removed and an empty
// survivor set is replaced by the findings themselves. With no
// findings, values are kept only when they pass the shape check.
func filterContacts(values, found []string, shapeOK func(string) bool) []string {
	if len(found) > 0 {
		foundSet := make(map[string]struct{}, len(found))
		for _, f := range found {
			foundSet[f] = struct{}{}
		}
		kept := []string{}
		for _, v := range values {
			if _, ok := foundSet[v]; ok {
				kept = append(kept, v)
			}
		}
		if len(kept) == 0 {
			return appendAll(nil, found)
		}
		return kept
	}
	kept := []string{}
	for _, v := range values {
		if v != "" && shapeOK(v) {
			kept = append(kept, v)
		}
	}
	return kept
}

// resolveLinks fills missing profile links from the found URLs by
// domain and drops model links the regex pass never saw.
func resolveLinks(links Links, urls []string) Links {
	var linkedin, github, portfolio *string
	for i, u := range urls {
		lower := strings.ToLower(u)
		switch {
		case linkedin == nil && strings.Contains(lower, "linkedin.com"):
			linkedin = &urls[i]
		case github == nil && strings.Contains(lower, "github.com"):
			github = &urls[i]
		}
	}
	for i, u := range urls {
		if (linkedin == nil || u != *linkedin) && (github == nil || u != *github) {
			portfolio = &urls[i]
			break
		}
	}

	keepIfFound := func(v *string) *string {
		if v == nil || len(urls) == 0 {
			return v
		}
		for _, u := range urls {
			if *v == u {
				return v
			}
		}
		return nil
	}

	other := []string{}
	for _, u := range links.Other {
		if len(urls) == 0 || contains(urls, u) {
			other = append(other, u)
		}
	}

	return Links{
		LinkedIn:  keepIfFound(coalesce(links.LinkedIn, linkedin)),
		GitHub:    keepIfFound(coalesce(links.GitHub, github)),
		Portfolio: keepIfFound(coalesce(links.Portfolio, portfolio)),
		Other:     other,
	}
}

// confidenceScore starts at 0.2 and adds 0.2 for each of: any contact
// detail, five or more skills, an experience entry with company and
// title, an education entry with institution and degree.
func confidenceScore(rec *Record) float64 {
	score := 0.2
	if len(rec.Candidate.Emails) > 0 || len(rec.Candidate.Phones) > 0 {
		score += 0.2
	}
	if len(rec.Skills) >= 5 {
		score += 0.2
	}
	for _, e := range rec.Experience {
		if notEmpty(e.Company) && notEmpty(e.Title) {
			score += 0.2
			break
		}
	}
	for _, ed := range rec.Education {
		if notEmpty(ed.Institution) && notEmpty(ed.Degree) {
			score += 0.2
			break
		}
	}
	return Clamp01(score)
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func notEmpty(s *string) bool { return s != nil && *s != "" }

func coalesce(a, b *string) *string {
	if a != nil && *a != "" {
		return a
	}
	return b
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func appendAll(dst []string, src []string) []string {
	out := make([]string, 0, len(dst)+len(src))
	out = append(out, dst...)
	return append(out, src...)
}
