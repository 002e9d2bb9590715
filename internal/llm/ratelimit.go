package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// KeyStatus mirrors the provider key endpoint. LimitRemaining is nil
// for accounts without a hard credit limit.
type KeyStatus struct {
	IsFreeTier     bool     `json:"is_free_tier"`
	Limit          *float64 `json:"limit"`
	LimitRemaining *float64 `json:"limit_remaining"`
	Usage          float64  `json:"usage"`
	UsageDaily     float64  `json:"usage_daily"`
}

// Exhausted reports whether the key has zero request budget left.
func (s *KeyStatus) Exhausted() bool {
	return s.LimitRemaining != nil && *s.LimitRemaining == 0
}

// KeyStatus queries the provider for the current key budget. Used as a
// cheap pre-flight gauge on free-tier keys before spending a pipeline
// attempt.
func (c *Client) KeyStatus(ctx context.Context) (*KeyStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/key", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var wrapper struct {
		Data KeyStatus `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decoding key status: %w", err)
	}
	return &wrapper.Data, nil
}
