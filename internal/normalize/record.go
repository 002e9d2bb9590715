// Package normalize turns raw LLM extraction output into the canonical
// resume record, drops contact details the regex pass never saw, scores
// extraction confidence and classifies the outcome.
package normalize

import "encoding/json"

// Record is the canonical resume document shape shared by enrichment,
// persistence and export.
type Record struct {
	SchemaVersion  string           `json:"schema_version"`
	Candidate      Candidate        `json:"candidate"`
	Skills         []Skill          `json:"skills"`
	Education      []Education      `json:"education"`
	Experience     []Experience     `json:"experience"`
	Projects       []map[string]any `json:"projects"`
	Certifications []map[string]any `json:"certifications"`
	Classification Classification   `json:"classification"`
	Summary        Summary          `json:"summary"`
	Quality        Quality          `json:"quality"`
}

type Candidate struct {
	FullName *string  `json:"full_name"`
	Headline *string  `json:"headline"`
	Location *string  `json:"location"`
	Emails   []string `json:"emails"`
	Phones   []string `json:"phones"`
	Links    Links    `json:"links"`
}

type Links struct {
	LinkedIn  *string  `json:"linkedin"`
	GitHub    *string  `json:"github"`
	Portfolio *string  `json:"portfolio"`
	Other     []string `json:"other"`
}

type Skill struct {
	Name       string   `json:"name"`
	Category   *string  `json:"category"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

type Education struct {
	Institution  *string  `json:"institution"`
	Degree       *string  `json:"degree"`
	FieldOfStudy *string  `json:"field_of_study,omitempty"`
	StartDate    *string  `json:"start_date"`
	EndDate      *string  `json:"end_date"`
	Grade        *string  `json:"grade,omitempty"`
	Confidence   float64  `json:"confidence"`
	Evidence     []string `json:"evidence"`
}

type Experience struct {
	Company        *string  `json:"company"`
	Title          *string  `json:"title"`
	EmploymentType *string  `json:"employment_type,omitempty"`
	StartDate      *string  `json:"start_date"`
	EndDate        *string  `json:"end_date"`
	IsCurrent      bool     `json:"is_current"`
	Location       *string  `json:"location,omitempty"`
	Bullets        []string `json:"bullets"`
	Technologies   []string `json:"technologies"`
	Confidence     float64  `json:"confidence"`
	Evidence       []string `json:"evidence"`
}

type Classification struct {
	PrimaryRole    *string  `json:"primary_role"`
	SecondaryRoles []string `json:"secondary_roles"`
	Seniority      *string  `json:"seniority"`
	Confidence     float64  `json:"confidence"`
	Rationale      *string  `json:"rationale"`
}

type Summary struct {
	OneLiner   *string  `json:"one_liner"`
	Highlights []string `json:"highlights"`
}

type Quality struct {
	Warnings              []string `json:"warnings"`
	MissingCriticalFields []string `json:"missing_critical_fields"`
	OverallConfidence     float64  `json:"overall_confidence"`
	EnrichmentCostUSD     float64  `json:"enrichment_cost_usd,omitempty"`
}

// NewTemplate returns an empty record with every collection allocated,
// matching the template sent to the extraction model.
func NewTemplate() *Record {
	return &Record{
		SchemaVersion: "1.0",
		Candidate: Candidate{
			Emails: []string{},
			Phones: []string{},
			Links:  Links{Other: []string{}},
		},
		Skills:         []Skill{},
		Education:      []Education{},
		Experience:     []Experience{},
		Projects:       []map[string]any{},
		Certifications: []map[string]any{},
		Classification: Classification{SecondaryRoles: []string{}},
		Summary:        Summary{Highlights: []string{}},
		Quality: Quality{
			Warnings:              []string{},
			MissingCriticalFields: []string{},
		},
	}
}

// overlay copies a top-level value from the model output onto the
// record field via a JSON round trip. A value that does not fit the
// field shape is discarded, leaving the template default.
func overlay[T any](doc map[string]any, key string, dst *T) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		return
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return
	}
	var v T
	if err := json.Unmarshal(buf, &v); err != nil {
		return
	}
	*dst = v
}
