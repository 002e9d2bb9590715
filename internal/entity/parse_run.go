package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/AlexBabu26/ResumeParsePro/constants"
)

// ParseRun represents one attempt to process a document through the
// extraction pipeline. Terminal runs are never mutated; a user-triggered
// retry creates a new run for the same document.
type ParseRun struct {
	ID            uuid.UUID               `json:"id"`
	DocumentID    uuid.UUID               `json:"document_id"`
	Status        constants.RunStatus     `json:"status"`
	ProgressStage constants.ProgressStage `json:"progress_stage"`

	ModelName     string  `json:"model_name"`
	ModelVersion  *string `json:"model_version,omitempty"`
	PromptVersion string  `json:"prompt_version"`
	Temperature   float64 `json:"temperature"`

	LatencyMS    *int `json:"latency_ms,omitempty"`
	InputTokens  *int `json:"input_tokens,omitempty"`
	OutputTokens *int `json:"output_tokens,omitempty"`

	LLMRawJSON     json.RawMessage `json:"llm_raw_json,omitempty"`
	NormalizedJSON json.RawMessage `json:"normalized_json,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
	Requirements   json.RawMessage `json:"requirements,omitempty"`

	ErrorCode    *string `json:"error_code,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`

	RetryCount      int        `json:"retry_count"`
	TaskStartedAt   *time.Time `json:"task_started_at,omitempty"`
	TaskCompletedAt *time.Time `json:"task_completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ParseRunStatusLog is one row of the append-only audit trail for status
// transitions. Rows are created exactly once per transition and never
// mutated.
type ParseRunStatusLog struct {
	ID         uuid.UUID `json:"id"`
	ParseRunID uuid.UUID `json:"parse_run_id"`
	OldStatus  *string   `json:"old_status,omitempty"`
	NewStatus  string    `json:"new_status"`
	Reason     *string   `json:"reason,omitempty"`
	ChangedAt  time.Time `json:"changed_at"`
}
