// Package requirements decides whether a persisted candidate satisfies
// a user-supplied acceptance spec, either by LLM semantic judgment or
// by deterministic string and date rules.
package requirements

import "encoding/json"

// Spec is the acceptance criteria attached to a parse run. All fields
// are optional; an empty spec accepts everyone.
type Spec struct {
	RequiredSkills          []string `json:"required_skills,omitempty"`
	AnySkills               []string `json:"any_skills,omitempty"`
	MinYearsExperience      *float64 `json:"min_years_experience,omitempty"`
	RequiredEducationDegree []string `json:"required_education_degree,omitempty"`
	RequiredPrimaryRole     []string `json:"required_primary_role,omitempty"`
	RequiredSeniority       []string `json:"required_seniority,omitempty"`
	LocationContains        *string  `json:"location_contains,omitempty"`
	MinConfidence           *float64 `json:"min_confidence,omitempty"`
	UseLLMValidation        *bool    `json:"use_llm_validation,omitempty"`
}

// ParseSpec decodes a requirements blob. A nil or empty blob yields a
// nil spec, meaning no filtering.
func ParseSpec(raw json.RawMessage) (*Spec, error) {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "{}" {
		return nil, nil
	}
	var s Spec
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Empty reports whether the spec has no criteria at all.
func (s *Spec) Empty() bool {
	return s == nil || (len(s.RequiredSkills) == 0 &&
		len(s.AnySkills) == 0 &&
		s.MinYearsExperience == nil &&
		len(s.RequiredEducationDegree) == 0 &&
		len(s.RequiredPrimaryRole) == 0 &&
		len(s.RequiredSeniority) == 0 &&
		s.LocationContains == nil &&
		s.MinConfidence == nil)
}

// wantsLLM reports whether the spec asks for semantic validation,
// which is the default.
func (s *Spec) wantsLLM() bool {
	return s.UseLLMValidation == nil || *s.UseLLMValidation
}
