package common

import (
	"testing"
	"time"
)

func TestGetEnvAsDurationMap(t *testing.T) {
	t.Setenv("OPENROUTER_MODEL_TIMEOUTS", `{"openai/gpt-4o":"120s","bad":"soon","zero":"0s"}`)

	got := getEnvAsDurationMap("OPENROUTER_MODEL_TIMEOUTS")
	if len(got) != 1 {
		t.Fatalf("expected invalid and non-positive entries dropped, got %v", got)
	}
	if got["openai/gpt-4o"] != 120*time.Second {
		t.Fatalf("expected 120s for gpt-4o, got %s", got["openai/gpt-4o"])
	}
}

func TestGetEnvAsPriceMap(t *testing.T) {
	t.Setenv("OPENROUTER_MODEL_PRICING",
		`{"openai/gpt-4o":{"input_per_million":2.5,"output_per_million":10},"bad":{"input_per_million":-1}}`)

	got := getEnvAsPriceMap("OPENROUTER_MODEL_PRICING")
	if len(got) != 1 {
		t.Fatalf("expected negative-priced entry dropped, got %v", got)
	}
	p := got["openai/gpt-4o"]
	if p.InputPerMillion != 2.5 || p.OutputPerMillion != 10 {
		t.Fatalf("unexpected price override %+v", p)
	}
}

func TestGetEnvAsPriceMapMalformed(t *testing.T) {
	t.Setenv("OPENROUTER_MODEL_PRICING", "not json")

	if got := getEnvAsPriceMap("OPENROUTER_MODEL_PRICING"); got != nil {
		t.Fatalf("expected nil for malformed JSON, got %v", got)
	}
}
