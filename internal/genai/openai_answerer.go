// Package genai provides integration with LLM APIs (Gemini, Groq, and Cerebras).
// This file contains the unified OpenAI-compatible implementation of answer
// synthesis. It works with any OpenAI-compatible provider (Groq, Cerebras)
// via custom BaseURL.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openaiAnswerer synthesizes answers using an OpenAI-compatible API.
// It implements the Answerer interface.
type openaiAnswerer struct {
	client   openai.Client
	model    string
	provider Provider
}

// newOpenAIAnswerer creates an answerer for an OpenAI-compatible provider.
// Returns nil if apiKey is empty (answer synthesis disabled).
func newOpenAIAnswerer(_ context.Context, provider Provider, apiKey, model string) (*openaiAnswerer, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: feature disabled when no API key
	}

	baseURL, ok := ProviderEndpoint[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
	}

	if model == "" {
		switch provider {
		case ProviderGroq:
			model = DefaultGroqAnswerModels[0]
		case ProviderCerebras:
			model = DefaultCerebrasAnswerModels[0]
		default:
			return nil, fmt.Errorf("no default model for provider: %s", provider)
		}
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &openaiAnswerer{
		client:   client,
		model:    model,
		provider: provider,
	}, nil
}

// Answer generates a grounded answer from the question and evidence block.
func (a *openaiAnswerer) Answer(ctx context.Context, question, evidence string) (string, error) {
	if a == nil {
		return "", fmt.Errorf("answerer not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, AnswerTimeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(AnswerSystemPrompt),
			openai.UserMessage(BuildAnswerPrompt(question, evidence)),
		},
		Temperature: openai.Float(0.2),
		MaxTokens:   openai.Int(1024),
	}

	start := time.Now()
	resp, err := a.client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)

	if err != nil {
		slog.WarnContext(ctx, "answer synthesis API call failed",
			"provider", a.provider,
			"model", a.model,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return "", WrapError(fmt.Errorf("chat completion failed: %w", err), a.provider, 0)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	result := strings.TrimSpace(resp.Choices[0].Message.Content)
	if result == "" {
		return "", fmt.Errorf("no text in response")
	}

	if resp.Usage.TotalTokens > 0 {
		slog.DebugContext(ctx, "answer synthesis completed",
			"provider", a.provider,
			"model", a.model,
			"input_tokens", resp.Usage.PromptTokens,
			"output_tokens", resp.Usage.CompletionTokens,
			"duration_ms", duration.Milliseconds())
	}

	return result, nil
}

// IsEnabled returns true if the answerer is initialized.
func (a *openaiAnswerer) IsEnabled() bool {
	return a != nil
}

// Provider returns the provider type for this answerer.
func (a *openaiAnswerer) Provider() Provider {
	if a == nil {
		return ""
	}
	return a.provider
}

// Close releases resources.
// Safe to call on nil receiver.
func (a *openaiAnswerer) Close() error {
	return nil
}
