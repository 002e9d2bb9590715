// Package schema validates LLM extraction output against the canonical
// resume document schema (draft 2020-12).
package schema

// resumeSchemaJSON is the contract the extraction model is asked to
// fill. Top-level sections are required; candidate, links and the list
// item shapes are closed objects so fabricated keys fail validation.
// Format keywords (email, uri) are annotations only, matching how the
// schema has always been enforced.
const resumeSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["schema_version", "candidate", "skills", "education", "experience", "quality"],
  "additionalProperties": true,
  "properties": {
    "schema_version": {"type": "string", "pattern": "^\\d+\\.\\d+$"},
    "candidate": {
      "type": "object",
      "required": ["full_name", "emails", "phones", "links"],
      "additionalProperties": false,
      "properties": {
        "full_name": {"type": ["string", "null"], "minLength": 1, "maxLength": 255},
        "headline": {"type": ["string", "null"], "maxLength": 255},
        "location": {"type": ["string", "null"], "maxLength": 255},
        "emails": {"type": "array", "items": {"type": "string", "format": "email"}},
        "phones": {"type": "array", "items": {"type": "string"}},
        "links": {
          "type": "object",
          "required": ["linkedin", "github", "portfolio", "other"],
          "additionalProperties": false,
          "properties": {
            "linkedin": {"type": ["string", "null"], "format": "uri"},
            "github": {"type": ["string", "null"], "format": "uri"},
            "portfolio": {"type": ["string", "null"], "format": "uri"},
            "other": {"type": "array", "items": {"type": "string", "format": "uri"}}
          }
        }
      }
    },
    "skills": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "confidence", "evidence"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1, "maxLength": 100},
          "category": {"type": ["string", "null"], "maxLength": 100},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "evidence": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "education": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["institution", "degree", "start_date", "end_date", "confidence", "evidence"],
        "additionalProperties": false,
        "properties": {
          "institution": {"type": ["string", "null"], "maxLength": 255},
          "degree": {"type": ["string", "null"], "maxLength": 255},
          "field_of_study": {"type": ["string", "null"], "maxLength": 255},
          "start_date": {"type": ["string", "null"]},
          "end_date": {"type": ["string", "null"]},
          "grade": {"type": ["string", "null"], "maxLength": 50},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "evidence": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "experience": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["company", "title", "start_date", "end_date", "is_current", "bullets", "technologies", "confidence", "evidence"],
        "additionalProperties": false,
        "properties": {
          "company": {"type": ["string", "null"], "maxLength": 255},
          "title": {"type": ["string", "null"], "maxLength": 255},
          "employment_type": {
            "type": ["string", "null"],
            "enum": [null, "full-time", "part-time", "contract", "freelance", "internship"]
          },
          "start_date": {"type": ["string", "null"]},
          "end_date": {"type": ["string", "null"]},
          "is_current": {"type": "boolean"},
          "location": {"type": ["string", "null"], "maxLength": 255},
          "bullets": {"type": "array", "items": {"type": "string"}},
          "technologies": {"type": "array", "items": {"type": "string"}},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "evidence": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "projects": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": true,
        "properties": {
          "name": {"type": ["string", "null"], "maxLength": 255},
          "description": {"type": ["string", "null"]},
          "url": {"type": ["string", "null"], "format": "uri"},
          "technologies": {"type": "array", "items": {"type": "string"}},
          "start_date": {"type": ["string", "null"]},
          "end_date": {"type": ["string", "null"]},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "evidence": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "certifications": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": true,
        "properties": {
          "name": {"type": ["string", "null"], "maxLength": 255},
          "issuer": {"type": ["string", "null"], "maxLength": 255},
          "date_issued": {"type": ["string", "null"]},
          "date_expires": {"type": ["string", "null"]},
          "credential_id": {"type": ["string", "null"]},
          "url": {"type": ["string", "null"], "format": "uri"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "evidence": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "classification": {
      "type": ["object", "null"],
      "additionalProperties": true,
      "properties": {
        "primary_role": {"type": ["string", "null"], "maxLength": 100},
        "secondary_roles": {"type": "array", "items": {"type": "string"}, "maxItems": 3},
        "seniority": {
          "type": ["string", "null"],
          "enum": [null, "Intern", "Junior", "Mid", "Senior", "Staff", "Principal", "Lead/Manager"]
        },
        "confidence": {"type": "number", "minimum": 0, "maximum": 1},
        "rationale": {"type": ["string", "null"]}
      }
    },
    "summary": {
      "type": ["object", "null"],
      "additionalProperties": true,
      "properties": {
        "one_liner": {"type": ["string", "null"], "maxLength": 200},
        "highlights": {"type": "array", "items": {"type": "string", "maxLength": 150}, "maxItems": 5}
      }
    },
    "quality": {
      "type": "object",
      "required": ["warnings", "missing_critical_fields", "overall_confidence"],
      "additionalProperties": true,
      "properties": {
        "warnings": {"type": "array", "items": {"type": "string"}},
        "missing_critical_fields": {"type": "array", "items": {"type": "string"}},
        "overall_confidence": {"type": "number", "minimum": 0, "maximum": 1},
        "enrichment_cost_usd": {"type": "number", "minimum": 0}
      }
    }
  }
}`
