package constants

// RunStatus is the canonical status for rows in parse_runs.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusQueued     RunStatus = "queued"     // created, waiting for a worker
	RunStatusProcessing RunStatus = "processing" // owned by a worker
	RunStatusSuccess    RunStatus = "success"    // terminal: clean extraction
	RunStatusPartial    RunStatus = "partial"    // terminal: usable but degraded
	RunStatusFailed     RunStatus = "failed"     // terminal failure
	RunStatusRejected   RunStatus = "rejected"   // terminal: candidate failed requirements
)

// Terminal reports whether a run in this status is finished.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusSuccess, RunStatusPartial, RunStatusFailed, RunStatusRejected:
		return true
	}
	return false
}

// ProgressStage is the informational sub-state of a processing run.
// Status and stage are independent dimensions: a run can be
// "processing" at any stage.
type ProgressStage string

const (
	StageQueued         ProgressStage = "queued"
	StageExtractingText ProgressStage = "extracting_text"
	StageExtractingPII  ProgressStage = "extracting_pii"
	StageCallingLLM     ProgressStage = "calling_llm"
	StageValidating     ProgressStage = "validating"
	StageClassifying    ProgressStage = "classifying"
	StageSummarizing    ProgressStage = "summarizing"
	StagePersisting     ProgressStage = "persisting"
	StageComplete       ProgressStage = "complete"
)

// Error codes recorded on parse_runs.error_code.
const (
	ErrCodeTextExtraction = "TEXT_EXTRACTION_FAILED"
	ErrCodeNoRawText      = "NO_RAW_TEXT"
	ErrCodeTimeout        = "TIMEOUT"
	ErrCodeRateLimit      = "RATE_LIMIT"
	ErrCodeNetwork        = "NETWORK_ERROR"
	ErrCodeAuth           = "AUTH_ERROR"
	ErrCodePipeline       = "PIPELINE_FAILED"
)
