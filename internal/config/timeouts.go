// Package config provides centralized timeout constants for the application.
//
// These values are tuned based on:
//   - Course catalogue response times (scraping delays, rate limiting)
//   - SQLite performance characteristics (WAL mode, busy timeout)
//   - LLM provider latency (embedding + chat completion calls)
package config

import "time"

// HTTP server timeouts
const (
	// APIRequestTimeout is the budget for processing a single /api/query request.
	// This includes entity resolution, DB lookups, semantic search, and the
	// answer-generation LLM call.
	APIRequestTimeout = 60 * time.Second

	// ServerHTTPRead is the HTTP server read timeout.
	// Query payloads are small JSON bodies.
	ServerHTTPRead = 10 * time.Second

	// ServerHTTPWrite is the HTTP server write timeout.
	// Should accommodate APIRequestTimeout + response serialization.
	ServerHTTPWrite = 65 * time.Second

	// ServerHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	ServerHTTPIdle = 120 * time.Second
)

// Scraper timeouts
const (
	// ScraperRequest is the timeout for a single HTTP request to the
	// course-catalogue site. Catalogue pages can be slow during term start.
	ScraperRequest = 60 * time.Second

	// ScraperRetryInitial is the initial delay before retrying a failed request.
	// Uses exponential backoff: 4s -> 8s -> 16s -> 32s -> 64s
	ScraperRetryInitial = 4 * time.Second

	// ScraperRateLimit is the minimum delay between consecutive scraping requests.
	// Prevents overwhelming the catalogue servers and getting blocked.
	ScraperRateLimit = 2 * time.Second
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	// Handles concurrent write contention during catalog refresh.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour
)

// Background job intervals
const (
	// MetricsUpdateInterval is how often catalog size metrics are updated.
	MetricsUpdateInterval = 5 * time.Minute

	// RateLimiterCleanupInterval is how often inactive per-user rate limiters are cleaned.
	RateLimiterCleanupInterval = 5 * time.Minute

	// CatalogRefreshInterval is how often the catalog scrape re-runs.
	CatalogRefreshInterval = 24 * time.Hour

	// CatalogRefreshInitialDelay is the delay before the first background refresh.
	// Allows the server to stabilize after warmup.
	CatalogRefreshInitialDelay = 1 * time.Hour
)

// Semantic search timeouts
const (
	// SemanticSearchTimeout is the timeout for semantic search operations.
	// This includes embedding API calls and vector similarity search.
	//
	// Set to 30s because:
	//   - Embedding API typically responds in 1-5s
	//   - Includes retry logic with exponential backoff
	//   - Should complete well within the 60s request timeout
	SemanticSearchTimeout = 30 * time.Second
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)
