// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// server mode, retrieval policy, timeouts, and optional features.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// LLM Configuration
	GeminiAPIKey   string // Gemini API key for embeddings and answer generation
	GroqAPIKey     string // Groq API key (OpenAI-compatible provider)
	CerebrasAPIKey string // Cerebras API key (OpenAI-compatible provider)

	// LLM Provider Configuration
	LLMPrimaryProvider  string // Primary LLM provider: "gemini", "groq", or "cerebras" (default: "gemini")
	LLMFallbackProvider string // Fallback LLM provider (default: "groq")

	// LLM Model Configuration (optional, defaults apply if empty)
	GeminiAnswerModel   string
	GroqAnswerModel     string
	CerebrasAnswerModel string

	// Retrieval Policy
	PreferredDepartment string // Department preferred when a title maps to multiple courses (default: "COMP")
	MaxSearchResults    int    // Default result count for hybrid search (default: 5)
	PlanningListLimit   int    // Maximum courses returned for planning queries (default: 10)

	// Metrics Authentication
	MetricsUsername string // Username for /metrics endpoint Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics endpoint Basic Auth (empty = no auth)

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Data Configuration
	DataDir string // Data directory for SQLite database and vector index

	// Scraper Configuration
	ScraperTimeout      time.Duration
	ScraperMaxRetries   int
	CatalogBaseURL      string   // Course-catalogue root URL
	CatalogDepartments  []string // Departments to scrape (default: COMP, MATH, ECSE, PHYS)
	CatalogRefreshEvery time.Duration

	// Rate Limits
	GlobalRateLimitRPS        float64 // Global rate limit in requests per second (default: 100)
	UserRateLimitBurst        float64 // Maximum burst tokens per client (default: 15)
	UserRateLimitRefillPerSec float64 // Tokens refilled per second (default: 0.1 = 1 per 10s)
	LLMBurstTokens            float64 // Maximum burst tokens for LLM (default: 40)
	LLMRefillPerHour          float64 // LLM tokens refilled per hour (default: 20)
	LLMDailyLimit             int     // Maximum LLM requests per day (default: 100, 0 = disabled)

	// R2 Snapshot Feature
	R2Enabled         bool
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2SnapshotKey     string

	// Sentry (Better Stack Errors)
	SentryToken       string
	SentryHost        string
	SentryEnvironment string
	SentrySampleRate  float64

	// Better Stack Logs
	BetterStackToken    string
	BetterStackEndpoint string
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		// LLM Configuration
		GeminiAPIKey:   getEnv(EnvGeminiAPIKey, ""),
		GroqAPIKey:     getEnv(EnvGroqAPIKey, ""),
		CerebrasAPIKey: getEnv(EnvCerebrasAPIKey, ""),

		LLMPrimaryProvider:  getEnv(EnvLLMPrimaryProvider, "gemini"),
		LLMFallbackProvider: getEnv(EnvLLMFallbackProvider, "groq"),

		GeminiAnswerModel:   getEnv(EnvGeminiAnswerModel, ""),
		GroqAnswerModel:     getEnv(EnvGroqAnswerModel, ""),
		CerebrasAnswerModel: getEnv(EnvCerebrasAnswerModel, ""),

		// Retrieval Policy
		PreferredDepartment: getEnv(EnvPreferredDepartment, "COMP"),
		MaxSearchResults:    getIntEnv(EnvMaxSearchResults, 5),
		PlanningListLimit:   getIntEnv(EnvPlanningListLimit, 10),

		// Metrics Authentication
		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),

		// Server Configuration
		Port:            getEnv(EnvPort, "8080"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),

		// Data Configuration
		DataDir: getEnv(EnvDataDir, getDefaultDataDir()),

		// Scraper Configuration
		ScraperTimeout:      getDurationEnv(EnvScraperTimeout, ScraperRequest),
		ScraperMaxRetries:   getIntEnv(EnvScraperMaxRetries, 10),
		CatalogBaseURL:      getEnv(EnvCatalogBaseURL, "https://coursecatalogue.mcgill.ca"),
		CatalogDepartments:  getListEnv(EnvCatalogDepts, []string{"COMP", "MATH", "ECSE", "PHYS"}),
		CatalogRefreshEvery: getDurationEnv(EnvCatalogRefreshEvery, CatalogRefreshInterval),

		// Rate Limits
		GlobalRateLimitRPS:        getFloatEnv(EnvGlobalRateRPS, 100.0),
		UserRateLimitBurst:        getFloatEnv(EnvUserRateBurst, 15.0),
		UserRateLimitRefillPerSec: getFloatEnv(EnvUserRateRefill, 0.1), // 1 per 10s
		LLMBurstTokens:            getFloatEnv(EnvLLMRateBurst, 40.0),
		LLMRefillPerHour:          getFloatEnv(EnvLLMRateRefill, 20.0),
		LLMDailyLimit:             getIntEnv(EnvLLMRateDaily, 100),

		// R2 Snapshot Feature
		R2Enabled:         getBoolEnv(EnvR2Enabled, false),
		R2AccountID:       getEnv(EnvR2AccountID, ""),
		R2AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
		R2SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
		R2BucketName:      getEnv(EnvR2BucketName, ""),
		R2SnapshotKey:     getEnv(EnvR2SnapshotKey, "catalog/snapshot.db.zst"),

		// Sentry (Better Stack Errors)
		SentryToken:       getEnv(EnvSentryToken, ""),
		SentryHost:        getEnv(EnvSentryHost, "errors.betterstack.com"),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),

		// Better Stack Logs
		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New(EnvPort+" is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New(EnvDataDir+" is required"))
	}
	if c.PreferredDepartment == "" {
		errs = append(errs, errors.New(EnvPreferredDepartment+" cannot be empty"))
	}
	if c.MaxSearchResults <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvMaxSearchResults, c.MaxSearchResults))
	}
	if c.PlanningListLimit <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvPlanningListLimit, c.PlanningListLimit))
	}
	if c.ScraperTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvScraperTimeout, c.ScraperTimeout))
	}
	if c.ScraperMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvScraperMaxRetries, c.ScraperMaxRetries))
	}
	if c.R2Enabled {
		if c.R2AccountID == "" || c.R2AccessKeyID == "" || c.R2SecretAccessKey == "" || c.R2BucketName == "" {
			errs = append(errs, errors.New("R2 snapshot enabled but credentials are incomplete"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getListEnv retrieves a comma-separated list environment variable.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, strings.ToUpper(trimmed))
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "catalog.db")
}

// VectorDBPath returns the directory used by the persistent vector index
func (c *Config) VectorDBPath() string {
	return filepath.Join(c.DataDir, "vectordb")
}

// HasLLMProvider returns true if at least one LLM provider is configured.
func (c *Config) HasLLMProvider() bool {
	return c.GeminiAPIKey != "" || c.GroqAPIKey != "" || c.CerebrasAPIKey != ""
}
