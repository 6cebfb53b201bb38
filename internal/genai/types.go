// Package genai provides integration with LLM APIs (Gemini, Groq, and
// Cerebras) for answer synthesis and query reformulation, plus Gemini
// embeddings for the vector index.
//
// Architecture:
// - Gemini: Uses google.golang.org/genai (official SDK)
// - Groq/Cerebras: Uses github.com/openai/openai-go/v3 (OpenAI-compatible API)
//
// Fallback Strategy (3-layer):
// 1. Model Retry: Same model retried with exponential backoff
// 2. Model Chain: Next model in same provider's model list
// 3. Provider Chain: Next provider in LLM_PROVIDERS list
package genai

import (
	"context"
	"time"
)

// Provider represents an LLM provider.
type Provider string

const (
	// ProviderGemini represents Google's Gemini API (non-OpenAI-compatible).
	ProviderGemini Provider = "gemini"
	// ProviderGroq represents Groq's API (OpenAI-compatible, fast inference).
	ProviderGroq Provider = "groq"
	// ProviderCerebras represents Cerebras's API (OpenAI-compatible, ultra-fast inference).
	ProviderCerebras Provider = "cerebras"
)

// ProviderEndpoint defines the base URL for OpenAI-compatible providers.
// Gemini is not included as it uses a different SDK.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq:     "https://api.groq.com/openai/v1/",
	ProviderCerebras: "https://api.cerebras.ai/v1/",
}

// IsOpenAICompatible returns true if the provider uses OpenAI-compatible API.
func (p Provider) IsOpenAICompatible() bool {
	_, ok := ProviderEndpoint[p]
	return ok
}

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// Answerer synthesizes a grounded answer to a course question from the
// evidence block assembled by the answer layer. Implementations include
// Gemini (native) and OpenAI-compatible providers (Groq, Cerebras).
type Answerer interface {
	// Answer produces a natural-language answer to the question using only
	// the provided evidence text.
	Answer(ctx context.Context, question, evidence string) (string, error)
	// IsEnabled returns true if the answerer is properly initialized.
	IsEnabled() bool
	// Close releases any resources held by the answerer.
	Close() error
	// Provider returns the provider type for metrics.
	Provider() Provider
}

// Reformulator rewrites a free-text query into a form that retrieves
// better from the semantic index. It is an optional capability: the
// structural retrieval paths never depend on it.
type Reformulator interface {
	// Reformulate rewrites the query for semantic search.
	Reformulate(ctx context.Context, query string) (string, error)
	// Close releases any resources held by the reformulator.
	Close() error
	// Provider returns the provider type for metrics.
	Provider() Provider
}

// RetryConfig defines retry behavior for LLM API calls.
// Uses AWS-recommended Full Jitter exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 2 (1 initial + 1 retry)
	MaxAttempts int

	// InitialDelay is the base delay before first retry.
	// Default: 500ms
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	// Default: 3s
	MaxDelay time.Duration
}

// ProviderConfig holds configuration for a single LLM provider.
type ProviderConfig struct {
	// APIKey is the API key for the provider.
	APIKey string

	// AnswerModels is the ordered list of models for answer synthesis.
	// First model is primary, rest are fallbacks tried in order.
	AnswerModels []string

	// ReformulateModels is the ordered list of models for query
	// reformulation. First model is primary, rest are fallbacks.
	ReformulateModels []string
}

// LLMConfig holds configuration for all LLM providers.
type LLMConfig struct {
	// Providers is the ordered list of providers to try.
	// Fallback happens in order: first provider's models, then second, etc.
	// Default: ["gemini", "groq", "cerebras"] (only those with API keys)
	Providers []Provider

	// Gemini configuration
	Gemini ProviderConfig

	// Groq configuration (OpenAI-compatible)
	Groq ProviderConfig

	// Cerebras configuration (OpenAI-compatible)
	Cerebras ProviderConfig

	// RetryConfig for retry behavior
	RetryConfig RetryConfig
}

// Default model configurations.
// First element is primary model, subsequent elements are fallbacks.
var (
	// DefaultGeminiAnswerModels is the default model chain for Gemini
	// answer synthesis. gemini-2.5-flash handles long evidence blocks
	// well; gemini-2.5-flash-lite is the cost-efficient fallback.
	DefaultGeminiAnswerModels = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"}

	// DefaultGeminiReformulateModels is the default model chain for Gemini
	// query reformulation. Reformulation is a short rewrite, so the lite
	// model leads.
	DefaultGeminiReformulateModels = []string{"gemini-2.5-flash-lite", "gemini-2.5-flash"}

	// DefaultGroqAnswerModels is the default model chain for Groq answer
	// synthesis. llama-3.3-70b-versatile is production-grade with strong
	// accuracy; the 8b model is the fast fallback.
	DefaultGroqAnswerModels = []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"}

	// DefaultGroqReformulateModels is the default model chain for Groq
	// query reformulation.
	DefaultGroqReformulateModels = []string{"llama-3.1-8b-instant", "llama-3.3-70b-versatile"}

	// DefaultCerebrasAnswerModels is the default model chain for Cerebras
	// answer synthesis.
	DefaultCerebrasAnswerModels = []string{"llama-3.3-70b", "llama-3.1-8b"}

	// DefaultCerebrasReformulateModels is the default model chain for
	// Cerebras query reformulation.
	DefaultCerebrasReformulateModels = []string{"llama-3.1-8b", "llama-3.3-70b"}

	// DefaultProviders is the default provider order for fallback.
	DefaultProviders = []Provider{ProviderGemini, ProviderGroq, ProviderCerebras}
)

// Retry configuration defaults
const (
	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 3 * time.Second
)

// HasAnyProvider returns true if at least one provider is configured.
func (c *LLMConfig) HasAnyProvider() bool {
	return c.Gemini.APIKey != "" || c.Groq.APIKey != "" || c.Cerebras.APIKey != ""
}

// HasProvider returns true if the specified provider is configured with an API key.
func (c *LLMConfig) HasProvider(p Provider) bool {
	switch p {
	case ProviderGemini:
		return c.Gemini.APIKey != ""
	case ProviderGroq:
		return c.Groq.APIKey != ""
	case ProviderCerebras:
		return c.Cerebras.APIKey != ""
	default:
		return false
	}
}

// GetProviderConfig returns the configuration for a specific provider.
func (c *LLMConfig) GetProviderConfig(p Provider) *ProviderConfig {
	switch p {
	case ProviderGemini:
		return &c.Gemini
	case ProviderGroq:
		return &c.Groq
	case ProviderCerebras:
		return &c.Cerebras
	default:
		return nil
	}
}

// ConfiguredProviders returns the list of providers with configured API keys,
// in the order specified by c.Providers.
func (c *LLMConfig) ConfiguredProviders() []Provider {
	providers := c.Providers
	if len(providers) == 0 {
		providers = DefaultProviders
	}
	result := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if c.HasProvider(p) {
			result = append(result, p)
		}
	}
	return result
}
