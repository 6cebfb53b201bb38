// Package genai provides integration with LLM APIs (Gemini, Groq, and Cerebras).
// This file contains the Gemini implementation of query reformulation.
package genai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	// ReformulateTimeout bounds a single reformulation call. Reformulation
	// sits on the latency-sensitive search path, so it is kept tight.
	ReformulateTimeout = 8 * time.Second
)

// geminiReformulator rewrites queries using the Gemini API.
// It implements the Reformulator interface.
type geminiReformulator struct {
	client *genai.Client
	model  string
}

// newGeminiReformulator creates a Gemini-backed reformulator.
// Returns nil if apiKey is empty (reformulation disabled).
func newGeminiReformulator(ctx context.Context, apiKey, model string) (*geminiReformulator, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: feature disabled when no API key
	}
	if model == "" {
		model = DefaultGeminiReformulateModels[0]
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiReformulator{
		client: client,
		model:  model,
	}, nil
}

// Reformulate rewrites the query for semantic search.
func (r *geminiReformulator) Reformulate(ctx context.Context, query string) (string, error) {
	if r == nil || r.client == nil {
		return query, nil
	}

	ctx, cancel := context.WithTimeout(ctx, ReformulateTimeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.1), // Rewrites should be deterministic
		MaxOutputTokens: 100,
	}

	resp, err := r.client.Models.GenerateContent(
		ctx,
		r.model,
		genai.Text(ReformulationPrompt(query)),
		config,
	)
	if err != nil {
		return query, WrapError(fmt.Errorf("generate content failed: %w", err), ProviderGemini, 0)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return query, nil
	}

	var rewritten strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			rewritten.WriteString(part.Text)
		}
	}

	result := strings.TrimSpace(rewritten.String())
	if result == "" {
		return query, nil
	}
	return result, nil
}

// Provider returns the provider type for this reformulator.
func (r *geminiReformulator) Provider() Provider {
	return ProviderGemini
}

// Close releases resources.
// genai.Client is stateless and has nothing to release.
func (r *geminiReformulator) Close() error {
	return nil
}
