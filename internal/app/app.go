// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/coursecraft/coursecraft-go/internal/answer"
	"github.com/coursecraft/coursecraft-go/internal/buildinfo"
	"github.com/coursecraft/coursecraft-go/internal/config"
	"github.com/coursecraft/coursecraft-go/internal/delta"
	"github.com/coursecraft/coursecraft-go/internal/genai"
	"github.com/coursecraft/coursecraft-go/internal/logger"
	"github.com/coursecraft/coursecraft-go/internal/maintenance"
	"github.com/coursecraft/coursecraft-go/internal/metrics"
	"github.com/coursecraft/coursecraft-go/internal/query"
	"github.com/coursecraft/coursecraft-go/internal/r2client"
	"github.com/coursecraft/coursecraft-go/internal/rag"
	"github.com/coursecraft/coursecraft-go/internal/ratelimit"
	"github.com/coursecraft/coursecraft-go/internal/scraper"
	"github.com/coursecraft/coursecraft-go/internal/scraper/ecalendar"
	"github.com/coursecraft/coursecraft-go/internal/sentry"
	"github.com/coursecraft/coursecraft-go/internal/snapshot"
	"github.com/coursecraft/coursecraft-go/internal/storage"
	"github.com/coursecraft/coursecraft-go/internal/warmup"
)

const (
	// readinessTimeout is the grace period after which the service reports
	// ready even if the initial catalog load has not finished. A stale
	// catalog answers better than no service at all.
	readinessTimeout = 10 * time.Minute

	scraperWorkers = 4

	leaderLockKey = "catalog/leader.lock"
	leaderLockTTL = 10 * time.Minute
	scheduleKey   = "catalog/schedule.json"

	snapshotPollInterval = 5 * time.Minute
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg             *config.Config
	logger          *logger.Logger
	db              *storage.DB
	hotSwap         *storage.HotSwapDB // Non-nil only when R2 snapshots are enabled
	metrics         *metrics.Metrics
	registry        *prometheus.Registry
	scraperClient   *scraper.Client
	catalog         *ecalendar.Scraper
	titles          *query.TitleIndex
	bm25Index       *rag.BM25Index
	vectorDB        *rag.VectorDB
	retriever       *rag.Retriever
	composer        *answer.Composer
	catalogComposer *answer.Composer // Model-free composer for LLM-rate-limited clients
	answerer        genai.Answerer
	reformulator    genai.Reformulator
	globalLimiter   *ratelimit.Limiter
	clientLimiter   *ratelimit.KeyedLimiter
	llmLimiter      *ratelimit.KeyedLimiter
	readinessState  *warmup.ReadinessState
	snapshots       *snapshot.Manager
	deltaLog        *delta.R2Log
	schedule        *maintenance.R2ScheduleStore
	server          *http.Server
	wg              sync.WaitGroup
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	log = log.WithField("service", "coursecraft")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Set as default logger so package-level slog.*Context() calls pick up
	// request IDs via ContextHandler.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...")
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Version,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed")
	} else if cfg.SentryToken != "" {
		log.WithField("environment", cfg.SentryEnvironment).Info("Error tracking enabled")
	}

	app := &Application{cfg: cfg, logger: log}

	if cfg.R2Enabled {
		if err := app.initR2(ctx); err != nil {
			return nil, err
		}
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	app.initMetrics()
	app.initRetrieval(ctx)
	app.initRateLimiters()

	app.readinessState = warmup.NewReadinessState(readinessTimeout)

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := app.setupRouter()
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       config.ServerHTTPRead,
		ReadHeaderTimeout: config.ServerHTTPRead,
		WriteTimeout:      config.ServerHTTPWrite,
		IdleTimeout:       config.ServerHTTPIdle,
	}

	log.Info("Application initialized")
	return app, nil
}

// initR2 sets up the R2 client, snapshot manager, delta log, and shared
// schedule store, and restores the latest catalog snapshot when one exists.
func (a *Application) initR2(ctx context.Context) error {
	cfg := a.cfg

	client, err := r2client.New(ctx, r2client.Config{
		Endpoint:    fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID),
		AccessKeyID: cfg.R2AccessKeyID,
		SecretKey:   cfg.R2SecretAccessKey,
		BucketName:  cfg.R2BucketName,
	})
	if err != nil {
		return fmt.Errorf("r2 client: %w", err)
	}

	a.snapshots = snapshot.New(client, snapshot.Config{
		SnapshotKey:  cfg.R2SnapshotKey,
		LockKey:      leaderLockKey,
		LockTTL:      leaderLockTTL,
		PollInterval: snapshotPollInterval,
		TempDir:      cfg.DataDir,
	})

	instanceID, _ := os.Hostname()
	a.deltaLog, err = delta.NewR2Log(client, "catalog/delta", instanceID)
	if err != nil {
		return fmt.Errorf("delta log: %w", err)
	}

	a.schedule, err = maintenance.NewR2ScheduleStore(client, scheduleKey, 10*time.Second)
	if err != nil {
		return fmt.Errorf("schedule store: %w", err)
	}

	// Restore the shared snapshot before opening the database so every
	// instance starts from the same catalog.
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	dbPath, etag, err := a.snapshots.DownloadSnapshot(ctx, cfg.DataDir)
	switch {
	case err == nil:
		a.snapshots.SetCurrentETag(etag)
		a.logger.WithField("path", dbPath).WithField("etag", etag).Info("Catalog snapshot restored")
	case errors.Is(err, snapshot.ErrNotFound):
		a.logger.Info("No catalog snapshot in R2, starting from local database")
	default:
		a.logger.WithError(err).Warn("Snapshot restore failed, starting from local database")
	}

	return nil
}

func (a *Application) initDatabase(ctx context.Context) error {
	cfg := a.cfg

	if cfg.R2Enabled {
		hotSwap, err := storage.NewHotSwapDB(ctx, cfg.SQLitePath())
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		a.hotSwap = hotSwap
		a.db = hotSwap.DB()
	} else {
		db, err := storage.New(ctx, cfg.SQLitePath())
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		a.db = db
	}

	a.logger.WithField("path", cfg.SQLitePath()).Info("Database connected")
	return nil
}

func (a *Application) initMetrics() {
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	a.metrics = metrics.New(a.registry)
	a.db.SetMetrics(a.metrics)
	a.logger.Info("Metrics initialized")
}

// initRetrieval wires the scraper, indexes, LLM providers, retriever, and
// composer. Missing LLM keys degrade features instead of failing startup.
func (a *Application) initRetrieval(ctx context.Context) {
	cfg, log := a.cfg, a.logger

	a.scraperClient = scraper.NewClient(
		cfg.ScraperTimeout,
		scraperWorkers,
		config.ScraperRateLimit,
		2*config.ScraperRateLimit,
		cfg.ScraperMaxRetries,
	)
	if cfg.CatalogBaseURL != "" {
		a.scraperClient.SetBaseURLs(scraper.DomainCatalogue, []string{cfg.CatalogBaseURL})
	}
	a.catalog = ecalendar.New(a.scraperClient, a.metrics, log)

	a.titles = query.NewTitleIndex(a.db, cfg.PreferredDepartment, log)
	a.bm25Index = rag.NewBM25Index(log)

	if cfg.GeminiAPIKey != "" {
		vectorDB, err := rag.NewVectorDB(cfg.VectorDBPath(), cfg.GeminiAPIKey, log)
		if err != nil {
			log.WithError(err).Warn("Vector database unavailable, semantic search degraded to BM25 only")
		} else {
			a.vectorDB = vectorDB
		}
	} else {
		log.Info("Gemini API key not configured, vector search disabled")
	}

	if cfg.HasLLMProvider() {
		llmCfg := buildLLMConfig(cfg)

		answerer, err := genai.CreateAnswerer(ctx, llmCfg)
		if err != nil {
			log.WithError(err).Warn("Answerer initialization failed")
		} else {
			a.answerer = answerer
		}

		reformulator, err := genai.CreateReformulator(ctx, llmCfg)
		if err != nil {
			log.WithError(err).Warn("Reformulator initialization failed")
		} else {
			a.reformulator = reformulator
		}
	} else {
		log.Info("No LLM provider configured, answers degrade to catalog extracts")
	}

	a.retriever = rag.NewRetriever(a.db, a.titles, a.vectorDB, a.bm25Index, a.reformulator, a.metrics, log)

	var gen answer.Generator
	if a.answerer != nil {
		gen = a.answerer
	}
	a.composer = answer.NewComposer(a.db, gen, log)
	a.catalogComposer = answer.NewComposer(a.db, nil, log)
}

func (a *Application) initRateLimiters() {
	cfg := a.cfg

	a.globalLimiter = ratelimit.New(cfg.GlobalRateLimitRPS, cfg.GlobalRateLimitRPS)

	a.clientLimiter = ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "client",
		Burst:         cfg.UserRateLimitBurst,
		RefillRate:    cfg.UserRateLimitRefillPerSec,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       a.metrics,
	})

	a.llmLimiter = ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "llm",
		Burst:         cfg.LLMBurstTokens,
		RefillRate:    cfg.LLMRefillPerHour / 3600.0,
		DailyLimit:    cfg.LLMDailyLimit,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       a.metrics,
	})
}

// buildLLMConfig maps the flat environment configuration onto the provider
// chain. The primary and fallback providers lead the order; any remaining
// configured provider is appended as a last resort.
func buildLLMConfig(cfg *config.Config) genai.LLMConfig {
	llmCfg := genai.LLMConfig{
		Gemini: genai.ProviderConfig{
			APIKey:            cfg.GeminiAPIKey,
			AnswerModels:      modelChain(cfg.GeminiAnswerModel, genai.DefaultGeminiAnswerModels),
			ReformulateModels: genai.DefaultGeminiReformulateModels,
		},
		Groq: genai.ProviderConfig{
			APIKey:            cfg.GroqAPIKey,
			AnswerModels:      modelChain(cfg.GroqAnswerModel, genai.DefaultGroqAnswerModels),
			ReformulateModels: genai.DefaultGroqReformulateModels,
		},
		Cerebras: genai.ProviderConfig{
			APIKey:            cfg.CerebrasAPIKey,
			AnswerModels:      modelChain(cfg.CerebrasAnswerModel, genai.DefaultCerebrasAnswerModels),
			ReformulateModels: genai.DefaultCerebrasReformulateModels,
		},
		RetryConfig: genai.DefaultRetryConfig(),
	}

	seen := make(map[genai.Provider]bool)
	add := func(name string) {
		p := genai.Provider(name)
		if p == "" || seen[p] || !llmCfg.HasProvider(p) {
			return
		}
		seen[p] = true
		llmCfg.Providers = append(llmCfg.Providers, p)
	}
	add(cfg.LLMPrimaryProvider)
	add(cfg.LLMFallbackProvider)
	for _, p := range genai.DefaultProviders {
		add(string(p))
	}

	return llmCfg
}

// modelChain puts the configured model first, keeping the defaults as
// fallbacks.
func modelChain(override string, defaults []string) []string {
	if override == "" {
		return defaults
	}
	chain := []string{override}
	for _, m := range defaults {
		if m != override {
			chain = append(chain, m)
		}
	}
	return chain
}

// Run starts the HTTP server and background jobs, then blocks until a
// shutdown signal arrives. It returns after graceful shutdown completes.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Shutdown signal received")

	// Stop background jobs first so no job races the closing database.
	cancel()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		a.logger.Info("Background jobs stopped")
	case <-time.After(a.cfg.ShutdownTimeout):
		a.logger.Warn("Timeout waiting for background jobs")
	}

	return a.shutdown()
}

func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

// waitForShutdownSignal blocks until SIGINT/SIGTERM is received.
func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown stops the HTTP server, then closes resources. Background jobs
// must already be stopped when this is called.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Closing resources...")

	if a.snapshots != nil {
		a.snapshots.StopPolling()
		if err := a.snapshots.ReleaseLeaderLock(shutdownCtx); err != nil {
			a.logger.WithError(err).Warn("Leader lock release failed")
		}
	}

	if a.answerer != nil {
		if err := a.answerer.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "answerer").Error("Component close error")
		}
	}
	if a.reformulator != nil {
		if err := a.reformulator.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "reformulator").Error("Component close error")
		}
	}

	var closeErr error
	if a.hotSwap != nil {
		closeErr = a.hotSwap.Close()
	} else if a.db != nil {
		closeErr = a.db.Close()
	}
	if closeErr != nil {
		a.logger.WithError(closeErr).WithField("component", "database").Error("Component close error")
	}

	if a.clientLimiter != nil {
		a.clientLimiter.Stop()
	}
	if a.llmLimiter != nil {
		a.llmLimiter.Stop()
	}

	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}
