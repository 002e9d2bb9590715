package requirements

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AlexBabu26/ResumeParsePro/internal/llm"
	"github.com/AlexBabu26/ResumeParsePro/internal/normalize"
)

// CandidateView is the flat projection the evaluator works on,
// assembled from the persisted candidate graph.
type CandidateView struct {
	FullName          *string          `json:"full_name"`
	PrimaryRole       *string          `json:"primary_role"`
	Seniority         *string          `json:"seniority"`
	Location          *string          `json:"location"`
	OverallConfidence float64          `json:"overall_confidence"`
	Skills            []string         `json:"skills"`
	Experience        []ExperienceView `json:"experience"`
	Education         []EducationView  `json:"education"`
}

type ExperienceView struct {
	Company   *string `json:"company"`
	Title     *string `json:"title"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	IsCurrent bool    `json:"is_current"`
}

type EducationView struct {
	Institution *string `json:"institution"`
	Degree      *string `json:"degree"`
}

// Evaluator runs requirement checks. With a caller configured and the
// spec asking for it, the LLM strategy runs first; malformed output or
// call failure falls back to the string strategy.
type Evaluator struct {
	caller      llm.Caller
	model       string
	temperature float64
	logger      *slog.Logger
	now         func() time.Time
}

func NewEvaluator(caller llm.Caller, model string, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		caller:      caller,
		model:       model,
		temperature: 0.1,
		logger:      logger,
		now:         time.Now,
	}
}

// Evaluate returns whether the candidate meets the spec and the reasons
// for rejection. A nil or empty spec always passes.
func (e *Evaluator) Evaluate(ctx context.Context, cand CandidateView, spec *Spec) (bool, []string) {
	if spec.Empty() {
		return true, nil
	}
	if e.caller != nil && spec.wantsLLM() {
		if meets, reasons, ok := e.evaluateLLM(ctx, cand, spec); ok {
			return meets, reasons
		}
		e.logger.Warn("requirements.llm.fallback")
	}
	return e.evaluateString(cand, spec)
}

func (e *Evaluator) evaluateLLM(ctx context.Context, cand CandidateView, spec *Spec) (bool, []string, bool) {
	res, err := e.caller.Chat(ctx, llm.CallRequest{
		Model:        e.model,
		SystemPrompt: llm.RequirementsSystemPrompt,
		UserPrompt:   llm.RequirementsUserPrompt(cand, spec),
		Temperature:  e.temperature,
	})
	if err != nil {
		e.logger.Warn("requirements.llm.failed", "error", err)
		return false, nil, false
	}
	parsed, err := llm.ExtractJSONObject(res.Content)
	if err != nil {
		e.logger.Warn("requirements.llm.failed", "error", err)
		return false, nil, false
	}

	meets, _ := parsed["meets_requirements"].(bool)
	var reasons []string
	switch v := parsed["reasons"].(type) {
	case string:
		reasons = []string{v}
	case []any:
		for _, r := range v {
			if s, ok := r.(string); ok {
				reasons = append(reasons, s)
			}
		}
	}
	if !meets && len(reasons) == 0 {
		reasons = []string{"LLM declined candidate without providing specific reasons."}
	}
	return meets, reasons, true
}

// evaluateString applies the deterministic checks. Every failed check
// appends one reason; zero reasons means the candidate passes.
func (e *Evaluator) evaluateString(cand CandidateView, spec *Spec) (bool, []string) {
	var reasons []string

	candSkills := make([]string, 0, len(cand.Skills))
	for _, s := range cand.Skills {
		candSkills = append(candSkills, clean(s))
	}

	if len(spec.RequiredSkills) > 0 {
		var missing []string
		for _, req := range spec.RequiredSkills {
			if !skillMatch(candSkills, clean(req)) {
				missing = append(missing, req)
			}
		}
		if len(missing) > 0 {
			reasons = append(reasons, fmt.Sprintf("Missing required skills: %s", strings.Join(missing, ", ")))
		}
	}

	if len(spec.AnySkills) > 0 {
		found := false
		for _, req := range spec.AnySkills {
			if skillMatch(candSkills, clean(req)) {
				found = true
				break
			}
		}
		if !found {
			reasons = append(reasons, fmt.Sprintf("Missing any of the preferred skills: %s", strings.Join(spec.AnySkills, ", ")))
		}
	}

	if spec.MinYearsExperience != nil {
		total := e.totalYears(cand.Experience)
		if total < *spec.MinYearsExperience {
			reasons = append(reasons, fmt.Sprintf("Insufficient experience: %.1f years (minimum %g)", total, *spec.MinYearsExperience))
		}
	}

	if len(spec.RequiredEducationDegree) > 0 {
		hasDegree := false
	degrees:
		for _, req := range spec.RequiredEducationDegree {
			reqClean := clean(req)
			for _, ed := range cand.Education {
				if ed.Degree != nil && strings.Contains(clean(*ed.Degree), reqClean) {
					hasDegree = true
					break degrees
				}
			}
		}
		if !hasDegree {
			reasons = append(reasons, fmt.Sprintf("Missing required degree: %s", strings.Join(spec.RequiredEducationDegree, ", ")))
		}
	}

	if len(spec.RequiredPrimaryRole) > 0 {
		candRole := clean(deref(cand.PrimaryRole))
		match := false
		// A candidate with no classified role is not penalized here;
		// substring matching against an empty role always passes.
		for _, role := range spec.RequiredPrimaryRole {
			roleClean := clean(role)
			if strings.Contains(candRole, roleClean) || strings.Contains(roleClean, candRole) {
				match = true
				break
			}
		}
		if !match {
			reasons = append(reasons, fmt.Sprintf("Role mismatch: %s (required: %s)",
				deref(cand.PrimaryRole), strings.Join(spec.RequiredPrimaryRole, ", ")))
		}
	}

	if len(spec.RequiredSeniority) > 0 {
		candSeniority := clean(deref(cand.Seniority))
		match := false
		for _, s := range spec.RequiredSeniority {
			if clean(s) == candSeniority {
				match = true
				break
			}
		}
		if !match {
			reasons = append(reasons, fmt.Sprintf("Seniority mismatch: %s (required: %s)",
				deref(cand.Seniority), strings.Join(spec.RequiredSeniority, ", ")))
		}
	}

	if spec.LocationContains != nil && *spec.LocationContains != "" {
		if !strings.Contains(clean(deref(cand.Location)), clean(*spec.LocationContains)) {
			reasons = append(reasons, fmt.Sprintf("Location mismatch: %s (must contain '%s')",
				deref(cand.Location), *spec.LocationContains))
		}
	}

	if spec.MinConfidence != nil && cand.OverallConfidence < *spec.MinConfidence {
		reasons = append(reasons, fmt.Sprintf("Low confidence score: %.2f (minimum %g)",
			cand.OverallConfidence, *spec.MinConfidence))
	}

	return len(reasons) == 0, reasons
}

// totalYears sums the span of each dated experience entry. Current
// positions without an end date run to now; unparsable dates are
// skipped.
func (e *Evaluator) totalYears(entries []ExperienceView) float64 {
	var total float64
	for _, exp := range entries {
		start, ok := parseFlexibleDate(deref(exp.StartDate))
		if !ok {
			continue
		}
		end, endOK := parseFlexibleDate(deref(exp.EndDate))
		if !endOK {
			if !exp.IsCurrent {
				continue
			}
			end = e.now()
		}
		if end.After(start) {
			total += end.Sub(start).Hours() / 24 / 365.25
		}
	}
	return total
}

// parseFlexibleDate accepts YYYY, YYYY-MM or YYYY-MM-DD.
func parseFlexibleDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// skillMatch allows exact or bidirectional substring matches so that
// "postgres" satisfies "postgresql" and vice versa.
func skillMatch(candSkills []string, req string) bool {
	if req == "" {
		return false
	}
	for _, cs := range candSkills {
		if cs == req || strings.Contains(cs, req) || strings.Contains(req, cs) {
			return true
		}
	}
	return false
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ViewFromRecord builds a CandidateView straight from a normalized
// record, used when re-checking requirements on duplicate uploads.
func ViewFromRecord(rec *normalize.Record) CandidateView {
	view := CandidateView{
		FullName:          rec.Candidate.FullName,
		PrimaryRole:       rec.Classification.PrimaryRole,
		Seniority:         rec.Classification.Seniority,
		Location:          rec.Candidate.Location,
		OverallConfidence: rec.Quality.OverallConfidence,
	}
	for _, s := range rec.Skills {
		view.Skills = append(view.Skills, s.Name)
	}
	for _, exp := range rec.Experience {
		view.Experience = append(view.Experience, ExperienceView{
			Company:   exp.Company,
			Title:     exp.Title,
			StartDate: exp.StartDate,
			EndDate:   exp.EndDate,
			IsCurrent: exp.IsCurrent,
		})
	}
	for _, ed := range rec.Education {
		view.Education = append(view.Education, EducationView{
			Institution: ed.Institution,
			Degree:      ed.Degree,
		})
	}
	return view
}
