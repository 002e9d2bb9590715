package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const maxErrors = 20

// Validator checks decoded LLM output against the resume schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded schema. Compilation failure is a
// programming error, so it panics.
func NewValidator() *Validator {
	return &Validator{schema: jsonschema.MustCompileString("resume.schema.json", resumeSchemaJSON)}
}

// Validate returns a flat list of "path: message" strings, at most
// maxErrors of them. A nil return means the document is valid.
func (v *Validator) Validate(doc any) []string {
	if _, ok := doc.(map[string]any); !ok {
		return []string{"LLM output is not a JSON object"}
	}
	err := v.schema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}

	var out []string
	collect(ve, &out)
	if len(out) > maxErrors {
		out = append(out[:maxErrors], "... (truncated)")
	}
	return out
}

// collect walks to the leaf causes, which carry the specific keyword
// failures; branch nodes only say "doesn't validate".
func collect(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		*out = append(*out, fmt.Sprintf("%s: %s", dottedPath(ve.InstanceLocation), ve.Message))
		return
	}
	for _, c := range ve.Causes {
		collect(c, out)
	}
}

func dottedPath(instanceLocation string) string {
	if instanceLocation == "" || instanceLocation == "/" {
		return "(root)"
	}
	return strings.ReplaceAll(strings.TrimPrefix(instanceLocation, "/"), "/", ".")
}
