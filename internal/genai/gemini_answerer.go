// Package genai provides integration with LLM APIs (Gemini, Groq, and Cerebras).
// This file contains the Gemini implementation of answer synthesis.
package genai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	// AnswerTimeout bounds a single answer-synthesis call. Evidence blocks
	// are long, so this is looser than the reformulation timeout.
	AnswerTimeout = 30 * time.Second
)

// geminiAnswerer synthesizes answers using the Gemini API.
// It implements the Answerer interface.
type geminiAnswerer struct {
	client *genai.Client
	model  string
}

// newGeminiAnswerer creates a Gemini-backed answerer.
// Returns nil if apiKey is empty (answer synthesis disabled).
func newGeminiAnswerer(ctx context.Context, apiKey, model string) (*geminiAnswerer, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: feature disabled when no API key
	}
	if model == "" {
		model = DefaultGeminiAnswerModels[0]
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiAnswerer{
		client: client,
		model:  model,
	}, nil
}

// Answer generates a grounded answer from the question and evidence block.
func (a *geminiAnswerer) Answer(ctx context.Context, question, evidence string) (string, error) {
	if a == nil || a.client == nil {
		return "", fmt.Errorf("answerer not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, AnswerTimeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(AnswerSystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.2), // Low temperature keeps answers grounded in the evidence
		MaxOutputTokens:   1024,
	}

	resp, err := a.client.Models.GenerateContent(
		ctx,
		a.model,
		genai.Text(BuildAnswerPrompt(question, evidence)),
		config,
	)
	if err != nil {
		return "", WrapError(fmt.Errorf("generate content failed: %w", err), ProviderGemini, 0)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model")
	}

	var answer strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			answer.WriteString(part.Text)
		}
	}

	result := strings.TrimSpace(answer.String())
	if result == "" {
		return "", fmt.Errorf("no text in response")
	}
	return result, nil
}

// IsEnabled returns true if the answerer is initialized.
func (a *geminiAnswerer) IsEnabled() bool {
	return a != nil && a.client != nil
}

// Provider returns the provider type for this answerer.
func (a *geminiAnswerer) Provider() Provider {
	return ProviderGemini
}

// Close releases resources.
// genai.Client is stateless and has nothing to release.
func (a *geminiAnswerer) Close() error {
	return nil
}
