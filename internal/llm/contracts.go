// Package llm talks to an OpenRouter-compatible chat completion API,
// with per-model timeouts, bounded retry on transient failures, client
// side rate limiting and per-call cost accounting.
package llm

import "context"

// CallRequest describes a single chat completion call.
type CallRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
}

// CallResult carries the model output plus the telemetry persisted on
// the parse run.
type CallResult struct {
	Content      string
	Model        string
	LatencyMS    int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Caller is the surface the pipeline and enrichment layers depend on.
type Caller interface {
	Chat(ctx context.Context, req CallRequest) (*CallResult, error)
}
