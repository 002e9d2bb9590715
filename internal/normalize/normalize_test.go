package normalize

import (
	"encoding/json"
	"testing"

	"github.com/AlexBabu26/ResumeParsePro/constants"
	"github.com/AlexBabu26/ResumeParsePro/internal/pii"
)

func decodeDoc(t *testing.T, s string) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		t.Fatalf("bad test JSON: %v", err)
	}
	return doc
}

const goodDoc = `{
	"schema_version": "1.0",
	"candidate": {
		"full_name": "Jane Doe",
		"headline": "Backend Engineer",
		"location": "Berlin, Germany",
		"emails": ["jane@example.com"],
		"phones": ["+1 415 555 0132"],
		"links": {"linkedin": "https://linkedin.com/in/janedoe", "github": null, "portfolio": null, "other": []}
	},
	"skills": [
		{"name": "Go", "category": null, "confidence": 0.9, "evidence": ["Go microservices"]},
		{"name": "PostgreSQL", "category": null, "confidence": 0.8, "evidence": ["PostgreSQL"]},
		{"name": "Docker", "category": null, "confidence": 0.8, "evidence": ["Docker"]},
		{"name": "Kubernetes", "category": null, "confidence": 0.7, "evidence": ["Kubernetes"]},
		{"name": "Redis", "category": null, "confidence": 0.7, "evidence": ["Redis"]}
	],
	"education": [
		{"institution": "TU Berlin", "degree": "BSc Computer Science", "start_date": "2012", "end_date": "2016", "confidence": 0.9, "evidence": ["TU Berlin"]}
	],
	"experience": [
		{"company": "Acme GmbH", "title": "Senior Backend Engineer", "start_date": "2019-03", "end_date": null, "is_current": true, "bullets": ["Built services"], "technologies": ["Go"], "confidence": 0.9, "evidence": ["Acme GmbH"]}
	],
	"quality": {"warnings": [], "missing_critical_fields": [], "overall_confidence": 0}
}`

func goodFindings() pii.Findings {
	return pii.Findings{
		Emails: []string{"jane@example.com"},
		Phones: []string{"+1 415 555 0132"},
		Links:  []string{"https://linkedin.com/in/janedoe"},
	}
}

func TestNormalizeSuccess(t *testing.T) {
	n := NewNormalizer()
	res := n.Normalize(decodeDoc(t, goodDoc), goodFindings())

	if res.Status != constants.RunStatusSuccess {
		t.Fatalf("expected success, got %s (warnings %v)", res.Status, res.Warnings)
	}
	if len(res.Missing) != 0 {
		t.Fatalf("expected no missing fields, got %v", res.Missing)
	}
	// 0.2 base + contacts + 5 skills + experience + education
	if res.Record.Quality.OverallConfidence != 1.0 {
		t.Fatalf("expected confidence 1.0, got %g", res.Record.Quality.OverallConfidence)
	}
	if res.Record.Candidate.Links.LinkedIn == nil {
		t.Fatal("expected linkedin link to survive")
	}
}

func TestNormalizeDropsHallucinatedContacts(t *testing.T) {
	n := NewNormalizer()
	doc := decodeDoc(t, goodDoc)
	doc["candidate"].(map[string]any)["emails"] = []any{"fabricated@nowhere.io"}

	res := n.Normalize(doc, goodFindings())

	emails := res.Record.Candidate.Emails
	if len(emails) != 1 || emails[0] != "jane@example.com" {
		t.Fatalf("expected findings to replace fabricated emails, got %v", emails)
	}
}

func TestNormalizeDropsHallucinatedLinks(t *testing.T) {
	n := NewNormalizer()
	doc := decodeDoc(t, goodDoc)
	doc["candidate"].(map[string]any)["links"].(map[string]any)["github"] = "https://github.com/invented"

	res := n.Normalize(doc, goodFindings())

	if res.Record.Candidate.Links.GitHub != nil {
		t.Fatalf("expected unverified github link to be dropped, got %q", *res.Record.Candidate.Links.GitHub)
	}
}

func TestNormalizeShapeCheckWithoutFindings(t *testing.T) {
	n := NewNormalizer()
	doc := decodeDoc(t, goodDoc)
	doc["candidate"].(map[string]any)["emails"] = []any{"jane@example.com", "not-an-email"}
	doc["candidate"].(map[string]any)["phones"] = []any{"12345"}

	res := n.Normalize(doc, pii.Findings{})

	if len(res.Record.Candidate.Emails) != 1 {
		t.Fatalf("expected one shape-valid email, got %v", res.Record.Candidate.Emails)
	}
	if len(res.Record.Candidate.Phones) != 0 {
		t.Fatalf("expected short phone to be dropped, got %v", res.Record.Candidate.Phones)
	}
}

func TestNormalizeFailedOutcome(t *testing.T) {
	n := NewNormalizer()
	doc := decodeDoc(t, `{"schema_version": "1.0"}`)

	res := n.Normalize(doc, pii.Findings{})

	if res.Status != constants.RunStatusFailed {
		t.Fatalf("expected failed, got %s", res.Status)
	}
	if len(res.Missing) != 2 {
		t.Fatalf("expected full_name and contacts missing, got %v", res.Missing)
	}
	if res.Warnings[0] != "jsonschema_validation_failed" {
		t.Fatalf("expected schema warning first, got %v", res.Warnings)
	}
}

func TestNormalizePartialOnSchemaErrorsWithMissing(t *testing.T) {
	n := NewNormalizer()
	doc := decodeDoc(t, goodDoc)
	// Break the schema but keep extraction substance.
	delete(doc, "quality")
	doc["candidate"].(map[string]any)["full_name"] = nil

	res := n.Normalize(doc, goodFindings())

	if res.Status != constants.RunStatusPartial {
		t.Fatalf("expected partial, got %s", res.Status)
	}
}

func TestNormalizeNilDoc(t *testing.T) {
	n := NewNormalizer()
	res := n.Normalize(nil, pii.Findings{})
	if res.Status != constants.RunStatusFailed {
		t.Fatalf("expected failed for nil doc, got %s", res.Status)
	}
}
