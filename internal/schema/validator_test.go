package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("bad test JSON: %v", err)
	}
	return v
}

const validDoc = `{
	"schema_version": "1.0",
	"candidate": {
		"full_name": "Jane Doe",
		"headline": null,
		"location": "Berlin, Germany",
		"emails": ["jane@example.com"],
		"phones": [],
		"links": {"linkedin": null, "github": null, "portfolio": null, "other": []}
	},
	"skills": [{"name": "Go", "category": null, "confidence": 0.9, "evidence": ["Go services"]}],
	"education": [],
	"experience": [],
	"quality": {"warnings": [], "missing_critical_fields": [], "overall_confidence": 0.5}
}`

func TestValidateAccepts(t *testing.T) {
	v := NewValidator()
	if errs := v.Validate(decode(t, validDoc)); errs != nil {
		t.Fatalf("expected valid document, got %v", errs)
	}
}

func TestValidateNonObject(t *testing.T) {
	v := NewValidator()
	errs := v.Validate(decode(t, `["not", "an", "object"]`))
	if len(errs) != 1 || errs[0] != "LLM output is not a JSON object" {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestValidateMissingSections(t *testing.T) {
	v := NewValidator()
	errs := v.Validate(decode(t, `{"schema_version": "1.0"}`))
	if len(errs) == 0 {
		t.Fatal("expected errors for missing required sections")
	}
}

func TestValidateRejectsUnknownCandidateKey(t *testing.T) {
	v := NewValidator()
	doc := decode(t, validDoc).(map[string]any)
	doc["candidate"].(map[string]any)["invented_field"] = "x"
	errs := v.Validate(doc)
	if len(errs) == 0 {
		t.Fatal("expected error for fabricated candidate key")
	}
	found := false
	for _, e := range errs {
		if strings.Contains(e, "candidate") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected candidate path in errors, got %v", errs)
	}
}

func TestValidateConfidenceRange(t *testing.T) {
	v := NewValidator()
	doc := decode(t, validDoc).(map[string]any)
	doc["quality"].(map[string]any)["overall_confidence"] = 1.5
	if errs := v.Validate(doc); len(errs) == 0 {
		t.Fatal("expected error for out-of-range confidence")
	}
}
