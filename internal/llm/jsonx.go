package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSONObject salvages a JSON object from a model reply. Models
// occasionally wrap the payload in a code fence or surround it with
// prose; the fenced block is tried first, then the outermost brace
// span.
func ExtractJSONObject(content string) (map[string]any, error) {
	candidate := strings.TrimSpace(content)

	if m := fencePattern.FindStringSubmatch(candidate); m != nil {
		candidate = strings.TrimSpace(m[1])
	}

	if obj, err := decodeObject(candidate); err == nil {
		return obj, nil
	}

	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start >= 0 && end > start {
		if obj, err := decodeObject(candidate[start : end+1]); err == nil {
			return obj, nil
		}
	}

	return nil, fmt.Errorf("response contains no parseable JSON object")
}

func decodeObject(s string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("decoded JSON is null")
	}
	return obj, nil
}
