// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "CC_PORT"
	EnvLogLevel        = "CC_LOG_LEVEL"
	EnvShutdownTimeout = "CC_SHUTDOWN_TIMEOUT"
	EnvServerName      = "CC_SERVER_NAME"
	EnvInstanceID      = "CC_INSTANCE_ID"

	// Data
	EnvDataDir = "CC_DATA_DIR"

	// Retrieval
	EnvPreferredDepartment = "CC_PREFERRED_DEPARTMENT"
	EnvMaxSearchResults    = "CC_MAX_SEARCH_RESULTS"
	EnvPlanningListLimit   = "CC_PLANNING_LIST_LIMIT"

	// Scraper
	EnvScraperTimeout    = "CC_SCRAPER_TIMEOUT"
	EnvScraperMaxRetries = "CC_SCRAPER_MAX_RETRIES"
	EnvCatalogBaseURL    = "CC_CATALOG_BASE_URL"
	EnvCatalogDepts      = "CC_CATALOG_DEPARTMENTS"

	// Rate Limits
	EnvGlobalRateRPS  = "CC_GLOBAL_RATE_RPS"
	EnvUserRateBurst  = "CC_USER_RATE_BURST"
	EnvUserRateRefill = "CC_USER_RATE_REFILL"
	EnvLLMRateBurst   = "CC_LLM_RATE_BURST"
	EnvLLMRateRefill  = "CC_LLM_RATE_REFILL"
	EnvLLMRateDaily   = "CC_LLM_RATE_DAILY"

	// Background Tasks
	EnvWarmupWait          = "CC_WARMUP_WAIT"
	EnvCatalogRefreshEvery = "CC_CATALOG_REFRESH_INTERVAL"

	// LLM Feature
	EnvGeminiAPIKey        = "CC_GEMINI_API_KEY"
	EnvGroqAPIKey          = "CC_GROQ_API_KEY"
	EnvCerebrasAPIKey      = "CC_CEREBRAS_API_KEY"
	EnvLLMPrimaryProvider  = "CC_LLM_PRIMARY_PROVIDER"
	EnvLLMFallbackProvider = "CC_LLM_FALLBACK_PROVIDER"
	EnvGeminiAnswerModel   = "CC_GEMINI_ANSWER_MODEL"
	EnvGroqAnswerModel     = "CC_GROQ_ANSWER_MODEL"
	EnvCerebrasAnswerModel = "CC_CEREBRAS_ANSWER_MODEL"

	// R2 Snapshot Feature
	EnvR2Enabled         = "CC_R2_ENABLED"
	EnvR2AccountID       = "CC_R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "CC_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "CC_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "CC_R2_BUCKET_NAME"
	EnvR2SnapshotKey     = "CC_R2_SNAPSHOT_KEY"

	// Sentry Feature
	EnvSentryToken       = "CC_SENTRY_TOKEN"
	EnvSentryHost        = "CC_SENTRY_HOST"
	EnvSentryEnvironment = "CC_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "CC_SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackToken    = "CC_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "CC_BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsUsername = "CC_METRICS_USERNAME"
	EnvMetricsPassword = "CC_METRICS_PASSWORD"
)
