// Package genai provides integration with LLM APIs (Gemini, Groq, and Cerebras).
// This file contains the fallback wrappers for cross-model and
// cross-provider failover.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coursecraft/coursecraft-go/internal/metrics"
)

// FallbackAnswerer tries an ordered chain of answerers. Each entry is
// retried with backoff on transient errors; permanent errors move to the
// next entry. The chain typically holds every configured model of every
// configured provider, primary first.
type FallbackAnswerer struct {
	chain       []Answerer
	retryConfig RetryConfig
}

// NewFallbackAnswerer creates a fallback-enabled answerer from a chain.
// Nil entries are skipped.
func NewFallbackAnswerer(cfg RetryConfig, chain ...Answerer) *FallbackAnswerer {
	filtered := make([]Answerer, 0, len(chain))
	for _, a := range chain {
		if a != nil {
			filtered = append(filtered, a)
		}
	}
	return &FallbackAnswerer{
		chain:       filtered,
		retryConfig: cfg,
	}
}

// Answer walks the chain until one answerer succeeds.
func (f *FallbackAnswerer) Answer(ctx context.Context, question, evidence string) (string, error) {
	if f == nil || len(f.chain) == 0 {
		return "", errors.New("answerer not configured")
	}

	start := time.Now()
	primary := f.chain[0].Provider()

	var lastErr error
	for i, answerer := range f.chain {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		provider := answerer.Provider()
		attemptStart := time.Now()

		result, err := answerWithRetry(ctx, answerer, f.retryConfig, question, evidence)
		if err == nil {
			recordLLMSuccess(provider, "answer", attemptStart)
			if i > 0 {
				recordFallback(primary, provider, "answer", time.Since(start))
			}
			return result, nil
		}
		lastErr = err
		recordLLMError(provider, "answer", err)

		if ClassifyError(err) == ActionFail && !errors.Is(err, context.DeadlineExceeded) {
			// Permanent model-side errors (bad request, auth) usually hit
			// every model of the same provider; still worth trying the rest
			// of the chain since later entries may be a different provider.
			slog.WarnContext(ctx, "answerer failed permanently, trying next in chain",
				"provider", provider,
				"position", i,
				"error", err)
			continue
		}

		slog.WarnContext(ctx, "answerer failed, trying next in chain",
			"provider", provider,
			"position", i,
			"error", err)
	}

	slog.ErrorContext(ctx, "all answerers failed",
		"chain_size", len(f.chain),
		"error", lastErr)
	return "", fmt.Errorf("all providers failed: %w", lastErr)
}

// IsEnabled returns true if at least one answerer in the chain is enabled.
func (f *FallbackAnswerer) IsEnabled() bool {
	if f == nil {
		return false
	}
	for _, a := range f.chain {
		if a.IsEnabled() {
			return true
		}
	}
	return false
}

// Provider returns the primary provider type.
func (f *FallbackAnswerer) Provider() Provider {
	if f == nil || len(f.chain) == 0 {
		return ""
	}
	return f.chain[0].Provider()
}

// Close closes every answerer in the chain.
func (f *FallbackAnswerer) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, a := range f.chain {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// answerWithRetry attempts one answerer with retry on transient errors.
func answerWithRetry(ctx context.Context, a Answerer, cfg RetryConfig, question, evidence string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		result, err := a.Answer(ctx, question, evidence)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ClassifyError(err) != ActionRetry {
			return "", err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		backoff := CalculateBackoff(attempt+1, cfg.InitialDelay, cfg.MaxDelay)
		if !HasSufficientBudget(ctx, backoff) {
			return "", fmt.Errorf("timeout during retry: %w", lastErr)
		}

		slog.DebugContext(ctx, "retrying answer synthesis",
			"provider", a.Provider(),
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)

		if err := Sleep(ctx, backoff); err != nil {
			return "", err
		}
	}

	return "", lastErr
}

// FallbackReformulator tries an ordered chain of reformulators. Unlike
// answers, reformulation degrades gracefully: when the whole chain fails,
// the original query is returned with a nil error so search continues.
type FallbackReformulator struct {
	chain       []Reformulator
	retryConfig RetryConfig
}

// NewFallbackReformulator creates a fallback-enabled reformulator from a
// chain. Nil entries are skipped.
func NewFallbackReformulator(cfg RetryConfig, chain ...Reformulator) *FallbackReformulator {
	filtered := make([]Reformulator, 0, len(chain))
	for _, r := range chain {
		if r != nil {
			filtered = append(filtered, r)
		}
	}
	return &FallbackReformulator{
		chain:       filtered,
		retryConfig: cfg,
	}
}

// Reformulate walks the chain; on total failure it returns the original
// query unchanged.
func (f *FallbackReformulator) Reformulate(ctx context.Context, query string) (string, error) {
	if f == nil || len(f.chain) == 0 {
		return query, nil // Graceful degradation
	}

	start := time.Now()
	primary := f.chain[0].Provider()

	for i, reformulator := range f.chain {
		if ctx.Err() != nil {
			return query, ctx.Err()
		}

		provider := reformulator.Provider()
		attemptStart := time.Now()

		result, err := reformulateWithRetry(ctx, reformulator, f.retryConfig, query)
		if err == nil {
			recordLLMSuccess(provider, "reformulate", attemptStart)
			if i > 0 {
				recordFallback(primary, provider, "reformulate", time.Since(start))
			}
			return result, nil
		}
		recordLLMError(provider, "reformulate", err)

		slog.WarnContext(ctx, "reformulator failed, trying next in chain",
			"provider", provider,
			"position", i,
			"error", err)
	}

	slog.WarnContext(ctx, "all reformulators failed, using original query",
		"chain_size", len(f.chain))
	return query, nil // Always return original query on failure
}

// Provider returns the primary provider type.
func (f *FallbackReformulator) Provider() Provider {
	if f == nil || len(f.chain) == 0 {
		return ""
	}
	return f.chain[0].Provider()
}

// Close closes every reformulator in the chain.
func (f *FallbackReformulator) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, r := range f.chain {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// reformulateWithRetry attempts one reformulator with retry on transient
// errors.
func reformulateWithRetry(ctx context.Context, r Reformulator, cfg RetryConfig, query string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return query, ctx.Err()
		}

		result, err := r.Reformulate(ctx, query)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ClassifyError(err) != ActionRetry {
			return query, err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		backoff := CalculateBackoff(attempt+1, cfg.InitialDelay, cfg.MaxDelay)
		if !HasSufficientBudget(ctx, backoff) {
			return query, fmt.Errorf("timeout during retry: %w", lastErr)
		}

		if err := Sleep(ctx, backoff); err != nil {
			return query, err
		}
	}

	return query, lastErr
}

// Helper functions for metrics recording

func recordLLMSuccess(provider Provider, operation string, start time.Time) {
	if metrics.LLMTotal == nil || metrics.LLMDuration == nil {
		return
	}
	metrics.LLMTotal.WithLabelValues(string(provider), operation, "success").Inc()
	metrics.LLMDuration.WithLabelValues(string(provider), operation).Observe(time.Since(start).Seconds())
}

func recordLLMError(provider Provider, operation string, err error) {
	if metrics.LLMTotal == nil {
		return
	}
	metrics.LLMTotal.WithLabelValues(string(provider), operation, classifyErrorType(err)).Inc()
}

func recordFallback(fromProvider, toProvider Provider, operation string, totalDuration time.Duration) {
	if metrics.LLMFallbackTotal == nil {
		return
	}
	metrics.LLMFallbackTotal.WithLabelValues(
		string(fromProvider),
		string(toProvider),
		operation,
	).Inc()

	// Record additional latency introduced by fallback
	if metrics.LLMFallbackLatency != nil {
		metrics.LLMFallbackLatency.WithLabelValues(
			string(fromProvider),
			string(toProvider),
			operation,
		).Observe(totalDuration.Seconds())
	}
}

// classifyErrorType maps error to a metric status label.
func classifyErrorType(err error) string {
	if err == nil {
		return "success"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		switch {
		case llmErr.StatusCode == http.StatusTooManyRequests:
			return "rate_limit"
		case llmErr.StatusCode >= 500:
			return "server_error"
		case llmErr.StatusCode == http.StatusUnauthorized || llmErr.StatusCode == http.StatusForbidden:
			return "auth_error"
		case llmErr.StatusCode == http.StatusBadRequest:
			return "invalid_request"
		}
	}

	switch ClassifyError(err) {
	case ActionFallback:
		return "quota_exhausted"
	case ActionRetry:
		return "transient_error"
	default:
		return "error"
	}
}
