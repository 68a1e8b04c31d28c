// Package llm is the extraction client: interchangeable chat-style
// providers that turn (system instruction, page content) into a raw
// response plus token usage for cost accounting.
package llm

import (
	"context"
	"fmt"
	"unicode/utf8"

	"sjsage522/llmscraper/config"
)

// Usage is the token count of one provider call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add returns the element-wise sum of two usages.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

// Provider is the capability every extraction backend must offer.
// A call that fails is not retried; callers decide whether to abort the
// URL or continue with an empty result.
type Provider interface {
	// Extract sends the instruction pair and returns the raw response
	// text with its token usage.
	Extract(ctx context.Context, system, user string) (string, Usage, error)

	// Name returns the provider identifier used in config and pricing
	Name() string

	// Model returns the model identifier in use
	Model() string
}

// NewProvider builds the configured provider adapter.
func NewProvider(cfg *config.Config) (Provider, error) {
	model := cfg.ResolvedModel()
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, model), nil
	case "anthropic":
		return NewAnthropic(cfg.AnthropicAPIKey, model), nil
	case "ollama":
		return NewOllama(cfg.OllamaURL, model), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// PriceKey returns the pricing-table key for a provider.
func PriceKey(p Provider) string {
	return p.Name() + "/" + p.Model()
}

// Cost converts a usage into dollars under the given rate.
func Cost(u Usage, rate config.ModelRate) float64 {
	return float64(u.InputTokens)*rate.InputPerToken + float64(u.OutputTokens)*rate.OutputPerToken
}

// EstimateTokens approximates the token count of a text when a provider
// reports no usage. Four characters per token is the usual rule of
// thumb for English prose.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := utf8.RuneCountInString(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// TrimContent clamps content to a rune budget so oversized pages don't
// blow past a model's context window.
func TrimContent(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes])
}
