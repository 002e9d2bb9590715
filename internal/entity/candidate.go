package entity

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is the accepted projection of a normalized parse result.
// It exists only for runs that ended success/partial and, when a
// requirements spec was supplied, passed evaluation.
type Candidate struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	ParseRunID uuid.UUID `json:"parse_run_id"`

	FullName     *string `json:"full_name,omitempty"`
	Headline     *string `json:"headline,omitempty"`
	Location     *string `json:"location,omitempty"`
	PrimaryEmail *string `json:"primary_email,omitempty"`
	PrimaryPhone *string `json:"primary_phone,omitempty"`
	LinkedIn     *string `json:"linkedin,omitempty"`
	GitHub       *string `json:"github,omitempty"`
	Portfolio    *string `json:"portfolio,omitempty"`

	PrimaryRole       *string `json:"primary_role,omitempty"`
	Seniority         *string `json:"seniority,omitempty"`
	OverallConfidence float64 `json:"overall_confidence"`

	SummaryOneLiner   *string  `json:"summary_one_liner,omitempty"`
	SummaryHighlights []string `json:"summary_highlights,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Skill is a child row of Candidate.
type Skill struct {
	ID          uuid.UUID `json:"id"`
	CandidateID uuid.UUID `json:"candidate_id"`
	Name        string    `json:"name"`
	Category    *string   `json:"category,omitempty"`
	Confidence  float64   `json:"confidence"`
	Evidence    []string  `json:"evidence,omitempty"`
}

// EducationEntry is a child row of Candidate.
type EducationEntry struct {
	ID           uuid.UUID `json:"id"`
	CandidateID  uuid.UUID `json:"candidate_id"`
	Institution  *string   `json:"institution,omitempty"`
	Degree       *string   `json:"degree,omitempty"`
	FieldOfStudy *string   `json:"field_of_study,omitempty"`
	StartDate    *string   `json:"start_date,omitempty"`
	EndDate      *string   `json:"end_date,omitempty"`
	Grade        *string   `json:"grade,omitempty"`
	Confidence   float64   `json:"confidence"`
	Evidence     []string  `json:"evidence,omitempty"`
}

// ExperienceEntry is a child row of Candidate. Dates are kept as the
// flexible strings the extractor produced (YYYY, YYYY-MM or YYYY-MM-DD).
type ExperienceEntry struct {
	ID             uuid.UUID `json:"id"`
	CandidateID    uuid.UUID `json:"candidate_id"`
	Company        *string   `json:"company,omitempty"`
	Title          *string   `json:"title,omitempty"`
	EmploymentType *string   `json:"employment_type,omitempty"`
	StartDate      *string   `json:"start_date,omitempty"`
	EndDate        *string   `json:"end_date,omitempty"`
	IsCurrent      bool      `json:"is_current"`
	Location       *string   `json:"location,omitempty"`
	Bullets        []string  `json:"bullets,omitempty"`
	Technologies   []string  `json:"technologies,omitempty"`
	Confidence     float64   `json:"confidence"`
	Evidence       []string  `json:"evidence,omitempty"`
}
