package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// Config holds everything the client needs to talk to the provider.
type Config struct {
	APIKey            string
	BaseURL           string
	DefaultTimeout    time.Duration
	Timeouts          map[string]time.Duration
	Pricing           map[string]Pricing
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffCap        time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// Client is a chat completion client for OpenRouter-compatible APIs.
// Transient failures (429, 5xx, transport errors) are retried with
// capped exponential backoff and jitter; other provider errors fail
// immediately.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 90 * time.Second
	}
	if cfg.Pricing == nil {
		cfg.Pricing = DefaultPricing()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2 * time.Second
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Client{cfg: cfg, http: httpClient, limiter: limiter, logger: logger}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatPayload struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

// Timeout returns the call timeout for a model.
func (c *Client) Timeout(model string) time.Duration {
	if d, ok := c.cfg.Timeouts[model]; ok && d > 0 {
		return d
	}
	return c.cfg.DefaultTimeout
}

// Chat performs one chat completion, retrying transient failures. The
// returned latency covers only the successful attempt.
func (c *Client) Chat(ctx context.Context, req CallRequest) (*CallResult, error) {
	reqID := uuid.New().String()
	c.logger.Info("llm.chat.start",
		"req_id", reqID,
		"model", req.Model,
		"temperature", req.Temperature,
		"prompt_length", len(req.UserPrompt))

	backoff := retry.WithMaxRetries(uint64(c.cfg.MaxAttempts-1),
		retry.WithJitter(500*time.Millisecond,
			retry.WithCappedDuration(c.cfg.BackoffCap,
				retry.NewExponential(c.cfg.BackoffBase))))

	var result *CallResult
	var lastErr error
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := c.call(ctx, req)
		if err != nil {
			lastErr = err
			if isRetryable(err) {
				c.logger.Warn("llm.chat.retry", "req_id", reqID, "model", req.Model, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		if lastErr != nil && isRetryable(lastErr) {
			err = &TransientError{Err: lastErr}
		}
		c.logger.Error("llm.chat.failed", "req_id", reqID, "model", req.Model, "error", err)
		return nil, err
	}

	c.logger.Info("llm.chat.complete",
		"req_id", reqID,
		"model", result.Model,
		"elapsed_ms", result.LatencyMS,
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
		"cost_usd", result.CostUSD)
	return result, nil
}

// call performs one attempt. The per-model timeout applies to each
// attempt separately, so a slow request can be retried within the
// caller's own deadline.
func (c *Client) call(ctx context.Context, req CallRequest) (*CallResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout(req.Model))
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(chatPayload{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("chat response has no choices")
	}

	model := parsed.Model
	if model == "" {
		model = req.Model
	}
	return &CallResult{
		Content:      parsed.Choices[0].Message.Content,
		Model:        model,
		LatencyMS:    int(time.Since(start).Milliseconds()),
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
		CostUSD:      Cost(c.cfg.Pricing, req.Model, parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens),
	}, nil
}
