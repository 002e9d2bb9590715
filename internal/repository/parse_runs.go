package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AlexBabu26/ResumeParsePro/constants"
	"github.com/AlexBabu26/ResumeParsePro/internal/common"
	"github.com/AlexBabu26/ResumeParsePro/internal/entity"
)

const parseRunColumns = `id, document_id, status, progress_stage, model_name, model_version,
	prompt_version, temperature, latency_ms, input_tokens, output_tokens,
	llm_raw_json, normalized_json, warnings, requirements, error_code, error_message,
	retry_count, task_started_at, task_completed_at, created_at, updated_at`

// ParseRunRepository owns the parse_runs table and its status audit
// log. Every status change goes through a transition that updates the
// row and appends the log entry in one transaction, so the log can
// never disagree with the row.
type ParseRunRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewParseRunRepository(pool *pgxpool.Pool, logger *slog.Logger) *ParseRunRepository {
	return &ParseRunRepository{pool: pool, logger: logger}
}

func (r *ParseRunRepository) Create(ctx context.Context, run *entity.ParseRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = constants.RunStatusQueued
	}
	if run.ProgressStage == "" {
		run.ProgressStage = constants.StageQueued
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO parse_runs (id, document_id, status, progress_stage, model_name,
			prompt_version, temperature, requirements)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		run.ID, run.DocumentID, run.Status, run.ProgressStage, run.ModelName,
		run.PromptVersion, run.Temperature, nullableJSON(run.Requirements))
	if err := row.Scan(&run.CreatedAt, &run.UpdatedAt); err != nil {
		r.logger.Error("parse_run.create.failed", "error", err)
		return common.WrapError(err, "failed to create parse run")
	}
	r.logger.Info("parse_run.created", "parse_run_id", run.ID, "document_id", run.DocumentID)
	return nil
}

func (r *ParseRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.ParseRun, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+parseRunColumns+` FROM parse_runs WHERE id = $1`, id)
	return scanParseRun(row)
}

// LatestForDocument returns the most recent run for a document.
func (r *ParseRunRepository) LatestForDocument(ctx context.Context, documentID uuid.UUID) (*entity.ParseRun, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+parseRunColumns+`
		FROM parse_runs
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, documentID)
	return scanParseRun(row)
}

// MarkTaskStarted records the attempt counter and start time when a
// worker picks up the run.
func (r *ParseRunRepository) MarkTaskStarted(ctx context.Context, id uuid.UUID, retryCount int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE parse_runs
		SET retry_count = $2, task_started_at = now(), updated_at = now()
		WHERE id = $1`, id, retryCount)
	if err != nil {
		return common.WrapError(err, "failed to mark task started")
	}
	return nil
}

// Transition atomically moves the run to newStatus and appends the
// audit-log row recording the old status, new status and reason.
func (r *ParseRunRepository) Transition(ctx context.Context, id uuid.UUID, newStatus constants.RunStatus, reason string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return transitionTx(ctx, tx, id, newStatus, reason)
	})
}

// transitionTx is the shared transition body, usable inside a larger
// transaction (Complete uses it).
func transitionTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, newStatus constants.RunStatus, reason string) error {
	var oldStatus string
	err := tx.QueryRow(ctx, `SELECT status FROM parse_runs WHERE id = $1 FOR UPDATE`, id).Scan(&oldStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrNotFound
	}
	if err != nil {
		return common.WrapError(err, "failed to lock parse run")
	}

	if _, err := tx.Exec(ctx, `
		UPDATE parse_runs SET status = $2, updated_at = now() WHERE id = $1`,
		id, newStatus); err != nil {
		return common.WrapError(err, "failed to update parse run status")
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO parse_run_status_logs (id, parse_run_id, old_status, new_status, reason)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), id, oldStatus, string(newStatus), nullableString(reason)); err != nil {
		return common.WrapError(err, "failed to append status log")
	}
	return nil
}

// SetProgress updates the informational stage without touching status.
func (r *ParseRunRepository) SetProgress(ctx context.Context, id uuid.UUID, stage constants.ProgressStage) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE parse_runs SET progress_stage = $2, updated_at = now() WHERE id = $1`, id, stage)
	if err != nil {
		return common.WrapError(err, "failed to update progress stage")
	}
	return nil
}

// RecordLLMCall persists the raw model output and telemetry as soon as
// the extraction call returns, before validation, so partial progress
// survives a later crash.
func (r *ParseRunRepository) RecordLLMCall(ctx context.Context, id uuid.UUID, raw json.RawMessage, latencyMS, inputTokens, outputTokens int, model string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE parse_runs
		SET llm_raw_json = $2, latency_ms = $3, input_tokens = $4, output_tokens = $5,
			model_name = $6, updated_at = now()
		WHERE id = $1`,
		id, nullableJSON(raw), latencyMS, inputTokens, outputTokens, model)
	if err != nil {
		return common.WrapError(err, "failed to record llm call")
	}
	return nil
}

// SetResult stores the normalized record and accumulated warnings.
func (r *ParseRunRepository) SetResult(ctx context.Context, id uuid.UUID, normalized json.RawMessage, warnings []string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE parse_runs
		SET normalized_json = $2, warnings = $3, updated_at = now()
		WHERE id = $1`, id, nullableJSON(normalized), warnings)
	if err != nil {
		return common.WrapError(err, "failed to store normalized result")
	}
	return nil
}

// RecordError stores a non-terminal error on the run, keeping the last
// failure visible while the scheduler retries.
func (r *ParseRunRepository) RecordError(ctx context.Context, id uuid.UUID, code, message string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE parse_runs
		SET error_code = $2, error_message = $3, updated_at = now()
		WHERE id = $1`, id, code, message)
	if err != nil {
		return common.WrapError(err, "failed to record error")
	}
	return nil
}

// Complete finishes the run: one transaction moves it to the terminal
// status, appends the status log, stamps completion time and the final
// stage, and stores the error fields when the outcome is a failure.
func (r *ParseRunRepository) Complete(ctx context.Context, id uuid.UUID, status constants.RunStatus, reason string, errCode, errMessage *string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := transitionTx(ctx, tx, id, status, reason); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			UPDATE parse_runs
			SET progress_stage = $2, task_completed_at = now(),
				error_code = COALESCE($3, error_code), error_message = COALESCE($4, error_message),
				updated_at = now()
			WHERE id = $1`,
			id, constants.StageComplete, errCode, errMessage)
		if err != nil {
			return common.WrapError(err, "failed to finalize parse run")
		}
		return nil
	})
	if err != nil {
		r.logger.Error("parse_run.complete.failed", "parse_run_id", id, "error", err)
		return err
	}
	r.logger.Info("parse_run.completed", "parse_run_id", id, "status", status, "reason", reason)
	return nil
}

// StatusLogs returns the audit trail for a run, oldest first.
func (r *ParseRunRepository) StatusLogs(ctx context.Context, runID uuid.UUID) ([]entity.ParseRunStatusLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, parse_run_id, old_status, new_status, reason, changed_at
		FROM parse_run_status_logs
		WHERE parse_run_id = $1
		ORDER BY changed_at ASC`, runID)
	if err != nil {
		return nil, common.WrapError(err, "failed to query status logs")
	}
	defer rows.Close()

	var logs []entity.ParseRunStatusLog
	for rows.Next() {
		var l entity.ParseRunStatusLog
		if err := rows.Scan(&l.ID, &l.ParseRunID, &l.OldStatus, &l.NewStatus, &l.Reason, &l.ChangedAt); err != nil {
			return nil, common.WrapError(err, "failed to scan status log")
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func scanParseRun(row pgx.Row) (*entity.ParseRun, error) {
	var run entity.ParseRun
	err := row.Scan(&run.ID, &run.DocumentID, &run.Status, &run.ProgressStage,
		&run.ModelName, &run.ModelVersion, &run.PromptVersion, &run.Temperature,
		&run.LatencyMS, &run.InputTokens, &run.OutputTokens,
		&run.LLMRawJSON, &run.NormalizedJSON, &run.Warnings, &run.Requirements,
		&run.ErrorCode, &run.ErrorMessage, &run.RetryCount,
		&run.TaskStartedAt, &run.TaskCompletedAt, &run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "failed to scan parse run")
	}
	return &run, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
