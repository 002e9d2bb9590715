package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AlexBabu26/ResumeParsePro/internal/common"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
		BackoffCap:  5 * time.Millisecond,
	}, discardLogger())
}

func chatBody(content string, inTokens, outTokens int) string {
	return fmt.Sprintf(`{
		"model": "openai/gpt-4o-mini",
		"choices": [{"message": {"content": %q}}],
		"usage": {"prompt_tokens": %d, "completion_tokens": %d}
	}`, content, inTokens, outTokens)
}

func TestChatRetriesRateLimitThenSucceeds(t *testing.T) {
	var calls int
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, chatBody(`{"ok": true}`, 1000, 500))
	})

	res, err := c.Chat(context.Background(), CallRequest{Model: "openai/gpt-4o-mini", UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if res.Content != `{"ok": true}` {
		t.Fatalf("unexpected content: %q", res.Content)
	}
	// 1000 in * 0.15/1M + 500 out * 0.60/1M
	if res.CostUSD != 0.00045 {
		t.Fatalf("unexpected cost: %g", res.CostUSD)
	}
}

func TestChatRetriesTimeoutPerAttempt(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			time.Sleep(300 * time.Millisecond)
			return
		}
		fmt.Fprint(w, chatBody(`{"ok": true}`, 10, 5))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		DefaultTimeout: 100 * time.Millisecond,
		MaxAttempts:    3,
		BackoffBase:    time.Millisecond,
		BackoffCap:     5 * time.Millisecond,
	}, discardLogger())

	res, err := c.Chat(context.Background(), CallRequest{Model: "openai/gpt-4o-mini", UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("unexpected error after timed-out attempts: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected each attempt to get its own deadline (3 calls), got %d", calls)
	}
	if res.Content != `{"ok": true}` {
		t.Fatalf("unexpected content: %q", res.Content)
	}
}

func TestChatDoesNotRetryAuthFailure(t *testing.T) {
	var calls int
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Chat(context.Background(), CallRequest{Model: "openai/gpt-4o-mini", UserPrompt: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if !IsAuthFailure(err) {
		t.Fatalf("expected auth failure, got %v", err)
	}
}

func TestChatExhaustedRetriesIsTransient(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Chat(context.Background(), CallRequest{Model: "openai/gpt-4o-mini", UserPrompt: "hi"})
	var te *TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestCostUnknownModel(t *testing.T) {
	if got := Cost(DefaultPricing(), "mystery/model", 50_000, 50_000); got != 0 {
		t.Fatalf("expected zero cost for unknown model, got %g", got)
	}
}

func TestCostRounding(t *testing.T) {
	got := Cost(DefaultPricing(), "anthropic/claude-3-opus", 1234, 567)
	if got != 0.061035 {
		t.Fatalf("unexpected cost: %g", got)
	}
}

func TestMergedPricingOverlaysDefaults(t *testing.T) {
	pricing := MergedPricing(map[string]common.ModelPrice{
		"openai/gpt-4o-mini": {InputPerMillion: 0.3, OutputPerMillion: 1.2},
		"custom/model":       {InputPerMillion: 1, OutputPerMillion: 2},
	})

	if p := pricing["openai/gpt-4o-mini"]; p.InputPerMillion != 0.3 || p.OutputPerMillion != 1.2 {
		t.Fatalf("expected override to win, got %+v", p)
	}
	if _, ok := pricing["custom/model"]; !ok {
		t.Fatal("expected configured model to be added")
	}
	if _, ok := pricing["openai/gpt-4o"]; !ok {
		t.Fatal("expected untouched defaults to survive")
	}
}

func TestKeyStatusExhausted(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/key" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"data": {"is_free_tier": true, "limit": 10, "limit_remaining": 0, "usage_daily": 10}}`)
	})

	status, err := c.KeyStatus(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Exhausted() {
		t.Fatal("expected exhausted key status")
	}
}
