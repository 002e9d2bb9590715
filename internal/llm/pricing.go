package llm

import (
	"math"

	"github.com/AlexBabu26/ResumeParsePro/internal/common"
)

// Pricing is the per-million-token price of a model in USD.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultPricing covers the models the service is routinely pointed at.
// Unknown models cost zero rather than failing the call.
func DefaultPricing() map[string]Pricing {
	return map[string]Pricing{
		"openai/gpt-4o-mini":          {InputPerMillion: 0.15, OutputPerMillion: 0.60},
		"openai/gpt-4o":               {InputPerMillion: 2.50, OutputPerMillion: 10.00},
		"anthropic/claude-3-haiku":    {InputPerMillion: 0.25, OutputPerMillion: 1.25},
		"anthropic/claude-3-sonnet":   {InputPerMillion: 3.00, OutputPerMillion: 15.00},
		"anthropic/claude-3-opus":     {InputPerMillion: 15.00, OutputPerMillion: 75.00},
		"google/gemini-pro":           {InputPerMillion: 0.125, OutputPerMillion: 0.375},
		"meta-llama/llama-3-8b-instruct": {InputPerMillion: 0.05, OutputPerMillion: 0.05},
		"xiaomi/mimo-v2-flash:free":   {InputPerMillion: 0, OutputPerMillion: 0},
	}
}

// MergedPricing overlays configured per-model prices onto the defaults,
// so OPENROUTER_MODEL_PRICING can both adjust known models and add new ones.
func MergedPricing(overrides map[string]common.ModelPrice) map[string]Pricing {
	pricing := DefaultPricing()
	for model, p := range overrides {
		pricing[model] = Pricing{InputPerMillion: p.InputPerMillion, OutputPerMillion: p.OutputPerMillion}
	}
	return pricing
}

// Cost computes the USD cost of a call, rounded to six decimal places.
func Cost(pricing map[string]Pricing, model string, inputTokens, outputTokens int) float64 {
	p, ok := pricing[model]
	if !ok {
		return 0
	}
	cost := float64(inputTokens)/1_000_000*p.InputPerMillion +
		float64(outputTokens)/1_000_000*p.OutputPerMillion
	return math.Round(cost*1e6) / 1e6
}
