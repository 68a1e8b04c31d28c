package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	scrapererr "sjsage522/llmscraper/pkg/errors"
)

// OllamaProvider extracts listings through a local Ollama server's chat
// endpoint. No SDK: the payload is a plain chat-completion request.
type OllamaProvider struct {
	client  *http.Client
	baseURL string
	model   string
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message         ollamaMessage `json:"message"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

// NewOllama creates an Ollama-backed provider for the given server URL.
func NewOllama(baseURL, model string) *OllamaProvider {
	return &OllamaProvider{
		client:  &http.Client{Timeout: 360 * time.Second},
		baseURL: baseURL,
		model:   model,
	}
}

// Name returns the provider identifier
func (p *OllamaProvider) Name() string { return "ollama" }

// Model returns the model identifier in use
func (p *OllamaProvider) Model() string { return p.model }

// Extract sends the instruction pair and returns the raw response text
func (p *OllamaProvider) Extract(ctx context.Context, system, user string) (string, Usage, error) {
	payload := ollamaChatRequest{
		Model: p.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream: false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", Usage{}, scrapererr.NewExtraction(p.Name(), "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", Usage{}, scrapererr.NewExtraction(p.Name(), "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", Usage{}, scrapererr.NewExtraction(p.Name(), "chat request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", Usage{}, scrapererr.NewExtraction(p.Name(), fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Usage{}, scrapererr.NewExtraction(p.Name(), "failed to read response body", err)
	}

	var parsed ollamaChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", Usage{}, scrapererr.NewExtraction(p.Name(), "failed to decode response", err)
	}

	usage := Usage{
		InputTokens:  parsed.PromptEvalCount,
		OutputTokens: parsed.EvalCount,
	}
	if usage == (Usage{}) {
		usage = Usage{
			InputTokens:  EstimateTokens(system) + EstimateTokens(user),
			OutputTokens: EstimateTokens(parsed.Message.Content),
		}
	}
	return parsed.Message.Content, usage, nil
}
