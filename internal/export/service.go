package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/AlexBabu26/ResumeParsePro/internal/entity"
)

// CandidateLister is the slice of the candidate repository the export
// service reads from.
type CandidateLister interface {
	List(ctx context.Context, limit int) ([]entity.Candidate, error)
	SkillNames(ctx context.Context, candidateID uuid.UUID) ([]string, error)
}

// Service is a tiny façade over the candidate repository that produces
// XLSX bytes for exports.
type Service struct {
	candidates CandidateLister
	logger     *slog.Logger
}

func NewService(candidates CandidateLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{candidates: candidates, logger: logger}
}

// ExportCandidatesXLSX returns an XLSX workbook (as bytes) of the most
// recent candidates, newest first. limit <= 0 uses the repository
// default.
func (s *Service) ExportCandidatesXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	cands, err := s.candidates.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Candidates"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Full Name",
		"Headline",
		"Location",
		"Email",
		"Phone",
		"Primary Role",
		"Seniority",
		"Confidence",
		"Skills",
		"Summary",
		"Parsed At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, c := range cands {
		skills, err := s.candidates.SkillNames(ctx, c.ID)
		if err != nil {
			s.logger.Warn("export.skills_lookup_failed", "candidate_id", c.ID, "error", err)
			skills = nil
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, deref(c.FullName))
		write(2, deref(c.Headline))
		write(3, deref(c.Location))
		write(4, deref(c.PrimaryEmail))
		write(5, deref(c.PrimaryPhone))
		write(6, deref(c.PrimaryRole))
		write(7, deref(c.Seniority))
		write(8, fmt.Sprintf("%.2f", c.OverallConfidence))
		write(9, strings.Join(skills, ", "))
		write(10, truncate(deref(c.SummaryOneLiner), 140))
		write(11, c.CreatedAt.Format("2006-01-02"))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 24) // name
	_ = f.SetColWidth(sheet, "B", "B", 30) // headline
	_ = f.SetColWidth(sheet, "C", "C", 22) // location
	_ = f.SetColWidth(sheet, "D", "E", 24) // contacts
	_ = f.SetColWidth(sheet, "F", "G", 16) // role, seniority
	_ = f.SetColWidth(sheet, "I", "I", 48) // skills
	_ = f.SetColWidth(sheet, "J", "J", 60) // summary

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(cands),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
