// Package warmup loads the course catalog and builds the search indexes
// before the service starts answering queries.
package warmup

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coursecraft/coursecraft-go/internal/logger"
	"github.com/coursecraft/coursecraft-go/internal/metrics"
	"github.com/coursecraft/coursecraft-go/internal/query"
	"github.com/coursecraft/coursecraft-go/internal/rag"
	"github.com/coursecraft/coursecraft-go/internal/scraper/ecalendar"
	"github.com/coursecraft/coursecraft-go/internal/storage"
)

// Stats tracks warmup progress. All fields use atomic operations for
// concurrent access.
type Stats struct {
	Courses    atomic.Int64
	Edges      atomic.Int64
	BM25Docs   atomic.Int64
	VectorDocs atomic.Int64
}

// Options configures a warmup run.
type Options struct {
	// Departments to scrape ("COMP,MATH,ECSE"). Empty skips scraping and
	// builds indexes from whatever the database already holds (the
	// normal path after a snapshot restore).
	Departments []string

	// Reset drops cached catalog data before scraping.
	Reset bool

	Metrics *metrics.Metrics
}

// Deps are the components warmup loads and builds. Scraper, BM25, and
// VectorDB may be nil; nil components are skipped.
type Deps struct {
	DB       *storage.DB
	Scraper  *ecalendar.Scraper
	Titles   *query.TitleIndex
	BM25     *rag.BM25Index
	VectorDB *rag.VectorDB
}

// Run executes a warmup: optional catalog scrape, then concurrent index
// builds. Index build failures are returned joined so one failing index
// doesn't hide another.
func Run(ctx context.Context, deps Deps, log *logger.Logger, opts Options) (*Stats, error) {
	stats := &Stats{}
	startTime := time.Now()
	defer func() {
		opts.Metrics.RecordWarmupDuration(time.Since(startTime).Seconds())
	}()

	if opts.Reset {
		log.Warn("Resetting catalog data...")
		if err := resetCatalog(ctx, deps.DB); err != nil {
			return nil, fmt.Errorf("failed to reset catalog: %w", err)
		}
		log.Info("Catalog reset complete")
	}

	if len(opts.Departments) > 0 && deps.Scraper != nil {
		if err := scrapeCatalog(ctx, deps, log, opts, stats); err != nil {
			// Index builds still run: a partially scraped catalog beats
			// an unsearchable one.
			log.WithError(err).Warn("Catalog scrape finished with errors")
		}
	}

	if err := buildIndexes(ctx, deps, log, opts, stats); err != nil {
		return stats, err
	}

	log.WithFields(map[string]any{
		"duration":    time.Since(startTime).String(),
		"courses":     stats.Courses.Load(),
		"edges":       stats.Edges.Load(),
		"bm25_docs":   stats.BM25Docs.Load(),
		"vector_docs": stats.VectorDocs.Load(),
	}).Info("Warmup complete")

	return stats, nil
}

// RunInBackground executes a warmup asynchronously and marks readiness
// when it completes. Uses context.Background() so an HTTP request
// context ending does not cancel the warmup.
//
//nolint:contextcheck // Intentionally detached from the caller's context
func RunInBackground(_ context.Context, deps Deps, readiness *ReadinessState, log *logger.Logger, opts Options) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("Panic in background warmup")
			}
		}()

		log.WithField("departments", opts.Departments).Info("Starting background warmup")

		stats, err := Run(context.Background(), deps, log, opts)
		if err != nil {
			log.WithError(err).Warn("Background warmup finished with errors")
		} else {
			log.WithFields(map[string]any{
				"courses":     stats.Courses.Load(),
				"bm25_docs":   stats.BM25Docs.Load(),
				"vector_docs": stats.VectorDocs.Load(),
			}).Info("Background warmup completed successfully")
		}

		if readiness != nil {
			readiness.MarkReady()
		}
	}()
}

// ParseDepartments converts a comma-separated department list to upper
// case codes.
func ParseDepartments(departments string) []string {
	if departments == "" {
		return []string{}
	}

	var result []string
	for _, d := range strings.Split(departments, ",") {
		d = strings.ToUpper(strings.TrimSpace(d))
		if d != "" {
			result = append(result, d)
		}
	}
	return result
}

// scrapeCatalog fetches each department sequentially; the scraper's own
// rate limiter spaces out the page requests.
func scrapeCatalog(ctx context.Context, deps Deps, log *logger.Logger, opts Options, stats *Stats) error {
	start := time.Now()
	var failed int

	for _, dept := range opts.Departments {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("catalog scrape canceled: %w", err)
		}

		results, err := deps.Scraper.Department(ctx, dept)
		if err != nil {
			log.WithError(err).WithField("department", dept).Warn("Department scrape failed")
			failed++
			continue
		}

		courses := make([]*storage.Course, 0, len(results))
		var edges []*storage.PrereqEdge
		for _, r := range results {
			courses = append(courses, r.Course)
			edges = append(edges, r.Edges...)
		}

		if err := deps.DB.SaveCoursesBatch(ctx, courses); err != nil {
			log.WithError(err).WithField("department", dept).Warn("Failed to save course batch")
			failed++
			continue
		}
		if err := deps.DB.SaveEdgesBatch(ctx, edges); err != nil {
			log.WithError(err).WithField("department", dept).Warn("Failed to save edge batch")
		}

		stats.Courses.Add(int64(len(courses)))
		stats.Edges.Add(int64(len(edges)))
		log.WithFields(map[string]any{
			"department": dept,
			"courses":    len(courses),
			"edges":      len(edges),
		}).Info("Department cached")
	}

	status := "success"
	if failed > 0 {
		status = "partial"
	}
	opts.Metrics.RecordWarmupTask("catalog", status)
	log.WithField("duration", time.Since(start).String()).Info("Catalog scrape finished")

	if failed == len(opts.Departments) {
		return fmt.Errorf("all %d departments failed to scrape", failed)
	}
	return nil
}

// buildIndexes builds the title index, BM25 index, and vector store
// concurrently from the cached catalog.
func buildIndexes(ctx context.Context, deps Deps, log *logger.Logger, opts Options, stats *Stats) error {
	courses, err := deps.DB.GetAllCourses(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if len(courses) == 0 {
		log.Warn("Catalog is empty; indexes not built")
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)

	if deps.Titles != nil {
		g.Go(func() error {
			if err := deps.Titles.Build(ctx); err != nil {
				opts.Metrics.RecordWarmupTask("titles", "error")
				return fmt.Errorf("title index: %w", err)
			}
			opts.Metrics.RecordWarmupTask("titles", "success")
			return nil
		})
	}

	if deps.BM25 != nil {
		g.Go(func() error {
			if err := deps.BM25.Initialize(courses); err != nil {
				opts.Metrics.RecordWarmupTask("bm25", "error")
				return fmt.Errorf("bm25 index: %w", err)
			}
			stats.BM25Docs.Store(int64(deps.BM25.Count()))
			opts.Metrics.RecordWarmupTask("bm25", "success")
			return nil
		})
	}

	if deps.VectorDB != nil {
		g.Go(func() error {
			if err := deps.VectorDB.Initialize(ctx, courses); err != nil {
				opts.Metrics.RecordWarmupTask("vector", "error")
				return fmt.Errorf("vector store: %w", err)
			}
			stats.VectorDocs.Store(int64(deps.VectorDB.Count()))
			opts.Metrics.RecordWarmupTask("vector", "success")
			return nil
		})
	}

	return g.Wait()
}

// resetCatalog deletes cached catalog data.
func resetCatalog(ctx context.Context, db *storage.DB) error {
	for _, table := range []string{"prereq_edges", "courses"} {
		if _, err := db.Writer().ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	if _, err := db.Writer().ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum: %w", err)
	}
	return nil
}
