package llm

import (
	"context"
	"fmt"
	"strings"
)

// Usage contains token usage and cost information for one generation.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// Provider names accepted by New.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

func calculateCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}

// stripCodeFence removes a surrounding markdown code block if present.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func emptyResponseError(provider string) error {
	return fmt.Errorf("empty response from %s", provider)
}

// Generator is a named text generation backend.
type Generator interface {
	Name() string
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Options selects and configures a generation backend.
type Options struct {
	Provider      string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
}

// New returns the generator for opts.Provider. ProviderNone yields a nil
// generator, which callers treat as "use the deterministic path".
func New(ctx context.Context, opts Options) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case ProviderGemini, "":
		return NewGeminiGenerator(ctx, opts.GeminiAPIKey, opts.GeminiModel)
	case ProviderOpenAI:
		return NewOpenAIGenerator(opts.OpenAIAPIKey, opts.OpenAIBaseURL, opts.OpenAIModel)
	case ProviderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}
