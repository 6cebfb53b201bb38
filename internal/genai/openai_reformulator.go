// Package genai provides integration with LLM APIs (Gemini, Groq, and Cerebras).
// This file contains the unified OpenAI-compatible implementation of query
// reformulation. It works with any OpenAI-compatible provider (Groq,
// Cerebras) via custom BaseURL.
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

// openaiReformulator rewrites queries using an OpenAI-compatible API.
// It implements the Reformulator interface.
type openaiReformulator struct {
	client   openai.Client
	model    string
	provider Provider
}

// newOpenAIReformulator creates a reformulator for an OpenAI-compatible
// provider. Returns nil if apiKey is empty (reformulation disabled).
func newOpenAIReformulator(_ context.Context, provider Provider, apiKey, model string) (*openaiReformulator, error) {
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
			model = DefaultGroqReformulateModels[0]
		case ProviderCerebras:
			model = DefaultCerebrasReformulateModels[0]
		default:
			return nil, fmt.Errorf("no default model for provider: %s", provider)
		}
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &openaiReformulator{
		client:   client,
		model:    model,
		provider: provider,
	}, nil
}

// Reformulate rewrites the query for semantic search.
func (r *openaiReformulator) Reformulate(ctx context.Context, query string) (string, error) {
	if r == nil {
		return query, nil
	}

	ctx, cancel := context.WithTimeout(ctx, ReformulateTimeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: r.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(ReformulationPrompt(query)),
		},
		Temperature: openai.Float(0.1),
		MaxTokens:   openai.Int(100),
	}

	start := time.Now()
	resp, err := r.client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)

	if err != nil {
		slog.WarnContext(ctx, "query reformulation API call failed",
			"provider", r.provider,
			"model", r.model,
			"query_length", len(query),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return query, WrapError(fmt.Errorf("chat completion failed: %w", err), r.provider, 0)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return query, nil
	}
	result := strings.TrimSpace(resp.Choices[0].Message.Content)
	if result == "" {
		return query, nil
	}

	return result, nil
}

// Provider returns the provider type for this reformulator.
func (r *openaiReformulator) Provider() Provider {
	if r == nil {
		return ""
	}
	return r.provider
}

// Close releases resources.
// Safe to call on nil receiver.
func (r *openaiReformulator) Close() error {
	return nil
}
