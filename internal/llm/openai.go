package llm

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	scrapererr "sjsage522/llmscraper/pkg/errors"
)

// OpenAIProvider extracts listings through the OpenAI chat completions
// API. Token usage comes from the API's own usage report.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI-backed provider.
func NewOpenAI(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Name returns the provider identifier
func (p *OpenAIProvider) Name() string { return "openai" }

// Model returns the model identifier in use
func (p *OpenAIProvider) Model() string { return p.model }

// Extract sends the instruction pair and returns the raw response text
func (p *OpenAIProvider) Extract(ctx context.Context, system, user string) (string, Usage, error) {
	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", Usage{}, scrapererr.NewExtraction(p.Name(), "chat completion failed", err)
	}
	if len(completion.Choices) == 0 {
		return "", Usage{}, scrapererr.NewExtraction(p.Name(), "empty completion response", nil)
	}

	content := completion.Choices[0].Message.Content
	usage := Usage{
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
	}
	if usage == (Usage{}) {
		usage = Usage{
			InputTokens:  EstimateTokens(system) + EstimateTokens(user),
			OutputTokens: EstimateTokens(content),
		}
	}
	return content, usage, nil
}
