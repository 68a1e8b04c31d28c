package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	scrapererr "sjsage522/llmscraper/pkg/errors"
)

// AnthropicProvider extracts listings through the Anthropic messages
// API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates an Anthropic-backed provider.
func NewAnthropic(apiKey, model string) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Name returns the provider identifier
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Model returns the model identifier in use
func (p *AnthropicProvider) Model() string { return p.model }

// Extract sends the instruction pair and returns the raw response text
func (p *AnthropicProvider) Extract(ctx context.Context, system, user string) (string, Usage, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", Usage{}, scrapererr.NewExtraction(p.Name(), "message request failed", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	content := sb.String()
	if content == "" {
		return "", Usage{}, scrapererr.NewExtraction(p.Name(), "response contained no text blocks", nil)
	}

	usage := Usage{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}
	return content, usage, nil
}
