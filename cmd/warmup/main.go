// Package main is a CLI that loads the course catalog and builds the
// search indexes ahead of server startup. Useful for seeding a fresh
// deployment or refreshing a stale database from cron.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/coursecraft/coursecraft-go/internal/config"
	"github.com/coursecraft/coursecraft-go/internal/logger"
	"github.com/coursecraft/coursecraft-go/internal/query"
	"github.com/coursecraft/coursecraft-go/internal/rag"
	"github.com/coursecraft/coursecraft-go/internal/scraper"
	"github.com/coursecraft/coursecraft-go/internal/scraper/ecalendar"
	"github.com/coursecraft/coursecraft-go/internal/storage"
	"github.com/coursecraft/coursecraft-go/internal/warmup"
)

var (
	resetFlag       = flag.Bool("reset", false, "Delete all catalog data before scraping")
	departmentsFlag = flag.String("departments", "", "Comma-separated departments to scrape (default: configured list)")
	timeoutFlag     = flag.Duration("timeout", 30*time.Minute, "Overall warmup timeout")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("Starting catalog warmup tool")

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		log.WithError(err).Fatal("Failed to open database")
	}
	defer func() { _ = db.Close() }()
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	departments := cfg.CatalogDepartments
	if *departmentsFlag != "" {
		departments = warmup.ParseDepartments(*departmentsFlag)
	}
	if len(departments) == 0 {
		log.Info("No departments to scrape, exiting")
		return
	}
	log.WithField("departments", departments).Info("Departments to scrape")

	client := scraper.NewClient(cfg.ScraperTimeout, 4, config.ScraperRateLimit, 2*config.ScraperRateLimit, cfg.ScraperMaxRetries)
	if cfg.CatalogBaseURL != "" {
		client.SetBaseURLs(scraper.DomainCatalogue, []string{cfg.CatalogBaseURL})
	}

	deps := warmup.Deps{
		DB:      db,
		Scraper: ecalendar.New(client, nil, log),
		Titles:  query.NewTitleIndex(db, cfg.PreferredDepartment, log),
		BM25:    rag.NewBM25Index(log),
	}

	start := time.Now()
	stats, err := warmup.Run(ctx, deps, log, warmup.Options{
		Departments: departments,
		Reset:       *resetFlag,
	})
	if err != nil {
		log.WithError(err).Fatal("Warmup failed")
	}

	log.WithField("courses", stats.Courses.Load()).
		WithField("edges", stats.Edges.Load()).
		WithField("bm25_docs", stats.BM25Docs.Load()).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Warmup complete")

	fmt.Printf("Warmup complete: %d courses, %d edges in %s\n",
		stats.Courses.Load(), stats.Edges.Load(), time.Since(start).Round(time.Second))
}
