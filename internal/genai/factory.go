// Package genai provides integration with LLM APIs (Gemini, Groq, and Cerebras).
// This file contains factory functions for building the provider chains.
package genai

import (
	"context"
	"log/slog"
)

// CreateAnswerer builds a fallback-enabled answerer from the configuration.
// The chain holds every model of every configured provider, in the order
// given by cfg.Providers. Returns (nil, nil) when no provider is
// configured; answer synthesis is then disabled.
func CreateAnswerer(ctx context.Context, cfg LLMConfig) (Answerer, error) {
	var chain []Answerer

	for _, provider := range cfg.ConfiguredProviders() {
		pc := cfg.GetProviderConfig(provider)
		models := pc.AnswerModels
		if len(models) == 0 {
			models = defaultAnswerModels(provider)
		}

		for _, model := range models {
			a, err := newAnswerer(ctx, provider, pc.APIKey, model)
			if err != nil {
				slog.WarnContext(ctx, "failed to create answerer",
					"provider", provider, "model", model, "error", err)
				continue
			}
			if a != nil {
				chain = append(chain, a)
			}
		}
	}

	if len(chain) == 0 {
		slog.InfoContext(ctx, "no LLM provider configured for answer synthesis")
		return nil, nil //nolint:nilnil // Intentional: feature disabled without providers
	}

	slog.InfoContext(ctx, "answerer configured",
		"primary", chain[0].Provider(),
		"chain_size", len(chain))

	return NewFallbackAnswerer(cfg.RetryConfig, chain...), nil
}

// CreateReformulator builds a fallback-enabled query reformulator from the
// configuration. Returns (nil, nil) when no provider is configured;
// semantic search then runs on the raw query.
func CreateReformulator(ctx context.Context, cfg LLMConfig) (Reformulator, error) {
	var chain []Reformulator

	for _, provider := range cfg.ConfiguredProviders() {
		pc := cfg.GetProviderConfig(provider)
		models := pc.ReformulateModels
		if len(models) == 0 {
			models = defaultReformulateModels(provider)
		}

		for _, model := range models {
			r, err := newReformulator(ctx, provider, pc.APIKey, model)
			if err != nil {
				slog.WarnContext(ctx, "failed to create reformulator",
					"provider", provider, "model", model, "error", err)
				continue
			}
			if r != nil {
				chain = append(chain, r)
			}
		}
	}

	if len(chain) == 0 {
		slog.InfoContext(ctx, "no LLM provider configured for query reformulation")
		return nil, nil //nolint:nilnil // Intentional: feature disabled without providers
	}

	slog.InfoContext(ctx, "reformulator configured",
		"primary", chain[0].Provider(),
		"chain_size", len(chain))

	return NewFallbackReformulator(cfg.RetryConfig, chain...), nil
}

func newAnswerer(ctx context.Context, provider Provider, apiKey, model string) (Answerer, error) {
	if provider == ProviderGemini {
		a, err := newGeminiAnswerer(ctx, apiKey, model)
		if a == nil {
			return nil, err
		}
		return a, err
	}
	a, err := newOpenAIAnswerer(ctx, provider, apiKey, model)
	if a == nil {
		return nil, err
	}
	return a, err
}

func newReformulator(ctx context.Context, provider Provider, apiKey, model string) (Reformulator, error) {
	if provider == ProviderGemini {
		r, err := newGeminiReformulator(ctx, apiKey, model)
		if r == nil {
			return nil, err
		}
		return r, err
	}
	r, err := newOpenAIReformulator(ctx, provider, apiKey, model)
	if r == nil {
		return nil, err
	}
	return r, err
}

func defaultAnswerModels(p Provider) []string {
	switch p {
	case ProviderGemini:
		return DefaultGeminiAnswerModels
	case ProviderGroq:
		return DefaultGroqAnswerModels
	case ProviderCerebras:
		return DefaultCerebrasAnswerModels
	default:
		return nil
	}
}

func defaultReformulateModels(p Provider) []string {
	switch p {
	case ProviderGemini:
		return DefaultGeminiReformulateModels
	case ProviderGroq:
		return DefaultGroqReformulateModels
	case ProviderCerebras:
		return DefaultCerebrasReformulateModels
	default:
		return nil
	}
}

// DefaultLLMConfig returns a default LLM configuration.
// API keys must be provided separately.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Providers: DefaultProviders,
		Gemini: ProviderConfig{
			AnswerModels:      DefaultGeminiAnswerModels,
			ReformulateModels: DefaultGeminiReformulateModels,
		},
		Groq: ProviderConfig{
			AnswerModels:      DefaultGroqAnswerModels,
			ReformulateModels: DefaultGroqReformulateModels,
		},
		Cerebras: ProviderConfig{
			AnswerModels:      DefaultCerebrasAnswerModels,
			ReformulateModels: DefaultCerebrasReformulateModels,
		},
		RetryConfig: DefaultRetryConfig(),
	}
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}
