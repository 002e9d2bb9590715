package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AlexBabu26/ResumeParsePro/internal/common"
	"github.com/AlexBabu26/ResumeParsePro/internal/entity"
	"github.com/AlexBabu26/ResumeParsePro/internal/normalize"
	"github.com/AlexBabu26/ResumeParsePro/internal/requirements"
)

// CandidateRepository persists the accepted candidate graph. The
// candidate row and all child rows (skills, education, experience) are
// written in one transaction; readers never see a partial graph.
type CandidateRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewCandidateRepository(pool *pgxpool.Pool, logger *slog.Logger) *CandidateRepository {
	return &CandidateRepository{pool: pool, logger: logger}
}

// CreateFromRecord projects a normalized record into a candidate graph.
func (r *CandidateRepository) CreateFromRecord(ctx context.Context, documentID, parseRunID uuid.UUID, rec *normalize.Record) (*entity.Candidate, error) {
	cand := &entity.Candidate{
		ID:                uuid.New(),
		DocumentID:        documentID,
		ParseRunID:        parseRunID,
		FullName:          rec.Candidate.FullName,
		Headline:          rec.Candidate.Headline,
		Location:          rec.Candidate.Location,
		PrimaryEmail:      firstOrNil(rec.Candidate.Emails),
		PrimaryPhone:      firstOrNil(rec.Candidate.Phones),
		LinkedIn:          rec.Candidate.Links.LinkedIn,
		GitHub:            rec.Candidate.Links.GitHub,
		Portfolio:         rec.Candidate.Links.Portfolio,
		PrimaryRole:       rec.Classification.PrimaryRole,
		Seniority:         rec.Classification.Seniority,
		OverallConfidence: rec.Quality.OverallConfidence,
		SummaryOneLiner:   rec.Summary.OneLiner,
		SummaryHighlights: rec.Summary.Highlights,
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO candidates (id, document_id, parse_run_id, full_name, headline, location,
				primary_email, primary_phone, linkedin, github, portfolio,
				primary_role, seniority, overall_confidence, summary_one_liner, summary_highlights)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			RETURNING created_at`,
			cand.ID, cand.DocumentID, cand.ParseRunID, cand.FullName, cand.Headline, cand.Location,
			cand.PrimaryEmail, cand.PrimaryPhone, cand.LinkedIn, cand.GitHub, cand.Portfolio,
			cand.PrimaryRole, cand.Seniority, cand.OverallConfidence, cand.SummaryOneLiner, cand.SummaryHighlights)
		if err := row.Scan(&cand.CreatedAt); err != nil {
			return common.WrapError(err, "failed to insert candidate")
		}

		for _, s := range rec.Skills {
			if _, err := tx.Exec(ctx, `
				INSERT INTO candidate_skills (id, candidate_id, name, category, confidence, evidence)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				uuid.New(), cand.ID, s.Name, s.Category, s.Confidence, s.Evidence); err != nil {
				return common.WrapError(err, "failed to insert skill")
			}
		}
		for _, ed := range rec.Education {
			if _, err := tx.Exec(ctx, `
				INSERT INTO candidate_education (id, candidate_id, institution, degree, field_of_study,
					start_date, end_date, grade, confidence, evidence)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				uuid.New(), cand.ID, ed.Institution, ed.Degree, ed.FieldOfStudy,
				ed.StartDate, ed.EndDate, ed.Grade, ed.Confidence, ed.Evidence); err != nil {
				return common.WrapError(err, "failed to insert education entry")
			}
		}
		for _, exp := range rec.Experience {
			if _, err := tx.Exec(ctx, `
				INSERT INTO candidate_experience (id, candidate_id, company, title, employment_type,
					start_date, end_date, is_current, location, bullets, technologies, confidence, evidence)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
				uuid.New(), cand.ID, exp.Company, exp.Title, exp.EmploymentType,
				exp.StartDate, exp.EndDate, exp.IsCurrent, exp.Location,
				exp.Bullets, exp.Technologies, exp.Confidence, exp.Evidence); err != nil {
				return common.WrapError(err, "failed to insert experience entry")
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("candidate.create.failed", "parse_run_id", parseRunID, "error", err)
		return nil, err
	}
	r.logger.Info("candidate.created", "candidate_id", cand.ID, "parse_run_id", parseRunID)
	return cand, nil
}

// Delete removes the candidate and all child rows in one transaction.
func (r *CandidateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, table := range []string{"candidate_skills", "candidate_education", "candidate_experience"} {
			if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE candidate_id = $1`, id); err != nil {
				return common.WrapError(err, "failed to delete candidate children")
			}
		}
		tag, err := tx.Exec(ctx, `DELETE FROM candidates WHERE id = $1`, id)
		if err != nil {
			return common.WrapError(err, "failed to delete candidate")
		}
		if tag.RowsAffected() == 0 {
			return common.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.Info("candidate.deleted", "candidate_id", id)
	return nil
}

// GetByID loads the candidate row without children.
func (r *CandidateRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Candidate, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, document_id, parse_run_id, full_name, headline, location,
			primary_email, primary_phone, linkedin, github, portfolio,
			primary_role, seniority, overall_confidence, summary_one_liner, summary_highlights, created_at
		FROM candidates WHERE id = $1`, id)
	return scanCandidate(row)
}

// LatestForDocument returns the newest candidate created from any run
// of the document, used for duplicate-upload requirement re-checks.
func (r *CandidateRepository) LatestForDocument(ctx context.Context, documentID uuid.UUID) (*entity.Candidate, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, document_id, parse_run_id, full_name, headline, location,
			primary_email, primary_phone, linkedin, github, portfolio,
			primary_role, seniority, overall_confidence, summary_one_liner, summary_highlights, created_at
		FROM candidates
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, documentID)
	return scanCandidate(row)
}

// List returns candidates newest first, capped at limit.
func (r *CandidateRepository) List(ctx context.Context, limit int) ([]entity.Candidate, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, document_id, parse_run_id, full_name, headline, location,
			primary_email, primary_phone, linkedin, github, portfolio,
			primary_role, seniority, overall_confidence, summary_one_liner, summary_highlights, created_at
		FROM candidates
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, common.WrapError(err, "failed to list candidates")
	}
	defer rows.Close()

	var out []entity.Candidate
	for rows.Next() {
		cand, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cand)
	}
	return out, rows.Err()
}

// SkillNames returns the skill names of a candidate.
func (r *CandidateRepository) SkillNames(ctx context.Context, candidateID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT name FROM candidate_skills WHERE candidate_id = $1 ORDER BY name`, candidateID)
	if err != nil {
		return nil, common.WrapError(err, "failed to query skills")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, common.WrapError(err, "failed to scan skill")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetView assembles the flat projection the requirements evaluator
// consumes from the candidate row and its children.
func (r *CandidateRepository) GetView(ctx context.Context, id uuid.UUID) (requirements.CandidateView, error) {
	cand, err := r.GetByID(ctx, id)
	if err != nil {
		return requirements.CandidateView{}, err
	}
	view := requirements.CandidateView{
		FullName:          cand.FullName,
		PrimaryRole:       cand.PrimaryRole,
		Seniority:         cand.Seniority,
		Location:          cand.Location,
		OverallConfidence: cand.OverallConfidence,
	}

	if view.Skills, err = r.SkillNames(ctx, id); err != nil {
		return requirements.CandidateView{}, err
	}

	expRows, err := r.pool.Query(ctx, `
		SELECT company, title, start_date, end_date, is_current
		FROM candidate_experience WHERE candidate_id = $1`, id)
	if err != nil {
		return requirements.CandidateView{}, common.WrapError(err, "failed to query experience")
	}
	defer expRows.Close()
	for expRows.Next() {
		var exp requirements.ExperienceView
		if err := expRows.Scan(&exp.Company, &exp.Title, &exp.StartDate, &exp.EndDate, &exp.IsCurrent); err != nil {
			return requirements.CandidateView{}, common.WrapError(err, "failed to scan experience")
		}
		view.Experience = append(view.Experience, exp)
	}
	if err := expRows.Err(); err != nil {
		return requirements.CandidateView{}, err
	}

	edRows, err := r.pool.Query(ctx, `
		SELECT institution, degree
		FROM candidate_education WHERE candidate_id = $1`, id)
	if err != nil {
		return requirements.CandidateView{}, common.WrapError(err, "failed to query education")
	}
	defer edRows.Close()
	for edRows.Next() {
		var ed requirements.EducationView
		if err := edRows.Scan(&ed.Institution, &ed.Degree); err != nil {
			return requirements.CandidateView{}, common.WrapError(err, "failed to scan education")
		}
		view.Education = append(view.Education, ed)
	}
	return view, edRows.Err()
}

func scanCandidate(row pgx.Row) (*entity.Candidate, error) {
	var cand entity.Candidate
	err := row.Scan(&cand.ID, &cand.DocumentID, &cand.ParseRunID, &cand.FullName,
		&cand.Headline, &cand.Location, &cand.PrimaryEmail, &cand.PrimaryPhone,
		&cand.LinkedIn, &cand.GitHub, &cand.Portfolio, &cand.PrimaryRole,
		&cand.Seniority, &cand.OverallConfidence, &cand.SummaryOneLiner,
		&cand.SummaryHighlights, &cand.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "failed to scan candidate")
	}
	return &cand, nil
}

func firstOrNil(values []string) *string {
	if len(values) == 0 {
		return nil
	}
	return &values[0]
}
