package app

import (
	"context"
	"time"

	"github.com/coursecraft/coursecraft-go/internal/config"
	"github.com/coursecraft/coursecraft-go/internal/maintenance"
	"github.com/coursecraft/coursecraft-go/internal/storage"
	"github.com/coursecraft/coursecraft-go/internal/warmup"
)

// catalogRefreshHour is the local hour for the daily catalog refresh.
// 3 AM keeps the scrape away from peak query traffic.
const catalogRefreshHour = 3

// startBackgroundJobs launches the long-running goroutines. Each job
// recovers its own panics so one failing job cannot take down the rest.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.runJob(ctx, "catalog_refresh", a.catalogRefresh)
	a.runJob(ctx, "catalog_metrics", a.updateCatalogMetrics)

	if a.cfg.R2Enabled && a.hotSwap != nil {
		// Followers pick up snapshots the leader uploads.
		a.snapshots.StartPolling(ctx, a.hotSwap, a.cfg.DataDir)
	}
}

func (a *Application) runJob(ctx context.Context, name string, job func(context.Context)) {
	a.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				a.logger.WithField("panic", r).WithField("job", name).Error("Panic in background job")
			}
		}()
		job(ctx)
	})
}

// catalogRefresh runs the initial catalog load on startup, then refreshes
// daily at a fixed local hour.
func (a *Application) catalogRefresh(ctx context.Context) {
	a.logger.Debug("Catalog refresh job started")
	defer a.logger.Debug("Catalog refresh job stopped")

	// The initial load uses an independent context so a fast shutdown
	// during startup cannot corrupt a half-built index.
	initialCtx, initialCancel := context.WithTimeout(context.Background(), 30*time.Minute)
	//nolint:contextcheck // Intentionally using independent context
	a.performCatalogRefresh(initialCtx, true)
	initialCancel()

	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), catalogRefreshHour, 0, 0, 0, now.Location())
		if now.After(next) {
			next = next.Add(24 * time.Hour)
		}

		a.logger.WithField("next_run", next.Format(time.RFC3339)).Info("Scheduled next catalog refresh")

		select {
		case <-ctx.Done():
			a.logger.Debug("Catalog refresh received shutdown signal")
			return
		case <-time.After(time.Until(next)):
			a.performCatalogRefresh(ctx, false)
		}
	}
}

// performCatalogRefresh scrapes the catalog and rebuilds the indexes.
// On the startup run it marks the service ready regardless of outcome;
// serving a stale or partial catalog beats serving nothing.
func (a *Application) performCatalogRefresh(ctx context.Context, startup bool) {
	start := time.Now()
	a.logger.Info("Starting catalog refresh...")

	var stats *warmup.Stats
	var err error
	if a.cfg.R2Enabled {
		stats, err = a.refreshCoordinated(ctx)
	} else {
		stats, err = warmup.Run(ctx, a.warmupDeps(), a.logger, warmup.Options{
			Departments: a.cfg.CatalogDepartments,
			Metrics:     a.metrics,
		})
	}

	if startup {
		a.readinessState.MarkReady()
		a.logger.Info("Service marked as ready after initial catalog load")
	}

	a.metrics.RecordJob("catalog_refresh", time.Since(start).Seconds())

	if err != nil {
		a.logger.WithError(err).Error("Catalog refresh failed")
		return
	}

	a.logger.WithField("courses", stats.Courses.Load()).
		WithField("edges", stats.Edges.Load()).
		WithField("bm25_docs", stats.BM25Docs.Load()).
		WithField("vector_docs", stats.VectorDocs.Load()).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Catalog refresh completed")
}

// refreshCoordinated is the multi-instance refresh path. Exactly one
// instance scrapes per interval: the leader merges pending delta logs,
// scrapes when the shared schedule says a refresh is due, and uploads a
// fresh snapshot. Followers rebuild indexes from the restored snapshot;
// a follower that finds an empty catalog scrapes anyway and records the
// results in the delta log for the next leader to merge.
func (a *Application) refreshCoordinated(ctx context.Context) (*warmup.Stats, error) {
	isLeader, err := a.snapshots.AcquireLeaderLock(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("Leader election failed, refreshing as follower")
		isLeader = false
	}

	if isLeader {
		defer func() {
			if err := a.snapshots.ReleaseLeaderLock(ctx); err != nil {
				a.logger.WithError(err).Warn("Leader lock release failed")
			}
		}()
		return a.refreshAsLeader(ctx)
	}
	return a.refreshAsFollower(ctx)
}

func (a *Application) refreshAsLeader(ctx context.Context) (*warmup.Stats, error) {
	mergeStart := time.Now()
	if mergeStats, err := a.deltaLog.MergeIntoDB(ctx, a.db); err != nil {
		a.logger.WithError(err).Warn("Delta log merge failed")
	} else if mergeStats.ObjectsProcessed > 0 {
		a.metrics.RecordJob("delta_merge", time.Since(mergeStart).Seconds())
		a.logger.WithField("merged", mergeStats.ObjectsMerged).
			WithField("skipped", mergeStats.ObjectsSkipped).
			Info("Delta logs merged")
	}

	state, _, err := a.schedule.Ensure(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("Schedule state unavailable, assuming refresh is due")
	}
	due := err != nil || isMaintenanceDue(state.LastRefresh, a.cfg.CatalogRefreshEvery, time.Now())

	departments := a.cfg.CatalogDepartments
	if !due {
		a.logger.Info("Catalog refreshed recently by another instance, rebuilding indexes only")
		departments = nil
	}

	stats, err := warmup.Run(ctx, a.warmupDeps(), a.logger, warmup.Options{
		Departments: departments,
		Metrics:     a.metrics,
	})
	if err != nil {
		return stats, err
	}

	if due {
		uploadStart := time.Now()
		if etag, err := a.snapshots.UploadSnapshot(ctx, a.db); err != nil {
			a.metrics.RecordSnapshotOp("upload", "error")
			a.logger.WithError(err).Error("Snapshot upload failed")
		} else {
			a.metrics.RecordSnapshotOp("upload", "success")
			a.metrics.RecordJob("snapshot_upload", time.Since(uploadStart).Seconds())
			a.logger.WithField("etag", etag).Info("Catalog snapshot uploaded")
		}

		if err := a.schedule.Update(ctx, func(s *maintenance.State) {
			s.LastRefresh = time.Now().Unix()
		}); err != nil {
			a.logger.WithError(err).Warn("Schedule update failed")
		}
	}

	return stats, nil
}

func (a *Application) refreshAsFollower(ctx context.Context) (*warmup.Stats, error) {
	count, err := a.db.CountCourses(ctx)
	if err != nil {
		return nil, err
	}

	var departments []string
	if count == 0 {
		// No snapshot to lean on yet. Scrape locally so this instance can
		// serve, and hand the data to the leader through the delta log.
		departments = a.cfg.CatalogDepartments
	}

	stats, err := warmup.Run(ctx, a.warmupDeps(), a.logger, warmup.Options{
		Departments: departments,
		Metrics:     a.metrics,
	})
	if err != nil {
		return stats, err
	}

	if count == 0 && stats.Courses.Load() > 0 {
		a.recordScrapeDelta(ctx)
	}

	return stats, nil
}

// recordScrapeDelta ships this instance's freshly scraped catalog to the
// delta log so the snapshot leader can merge it.
func (a *Application) recordScrapeDelta(ctx context.Context) {
	courses, err := a.db.GetAllCourses(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("Delta record skipped: course load failed")
		return
	}
	edges, err := a.db.GetAllEdges(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("Delta record skipped: edge load failed")
		return
	}

	coursePtrs := make([]*storage.Course, len(courses))
	for i := range courses {
		coursePtrs[i] = &courses[i]
	}
	edgePtrs := make([]*storage.PrereqEdge, len(edges))
	for i := range edges {
		edgePtrs[i] = &edges[i]
	}

	if err := a.deltaLog.RecordCourses(ctx, coursePtrs); err != nil {
		a.logger.WithError(err).Warn("Delta course record failed")
	}
	if err := a.deltaLog.RecordEdges(ctx, edgePtrs); err != nil {
		a.logger.WithError(err).Warn("Delta edge record failed")
	}
}

// updateCatalogMetrics periodically records catalog and index sizes to
// Prometheus.
func (a *Application) updateCatalogMetrics(ctx context.Context) {
	a.logger.Debug("Catalog metrics job started")
	defer a.logger.Debug("Catalog metrics job stopped")

	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()

	a.recordCatalogMetrics(ctx)

	for {
		select {
		case <-ctx.Done():
			a.logger.Debug("Catalog metrics received shutdown signal")
			return
		case <-ticker.C:
			a.recordCatalogMetrics(ctx)
		}
	}
}

func (a *Application) recordCatalogMetrics(ctx context.Context) {
	if courses, err := a.db.CountCourses(ctx); err == nil {
		a.metrics.SetCatalogSize("courses", int64(courses))
	}
	if edges, err := a.db.CountEdges(ctx); err == nil {
		a.metrics.SetCatalogSize("prereq_edges", int64(edges))
	}

	if a.bm25Index != nil {
		a.metrics.SetIndexSize("bm25", a.bm25Index.Count())
	}
	if a.vectorDB != nil {
		a.metrics.SetIndexSize("vector", a.vectorDB.Count())
	}
}

func (a *Application) warmupDeps() warmup.Deps {
	return warmup.Deps{
		DB:       a.db,
		Scraper:  a.catalog,
		Titles:   a.titles,
		BM25:     a.bm25Index,
		VectorDB: a.vectorDB,
	}
}

// isMaintenanceDue reports whether a job whose last run finished at
// lastUnix should run again. interval <= 0 disables the job.
func isMaintenanceDue(lastUnix int64, interval time.Duration, now time.Time) bool {
	if interval <= 0 {
		return false
	}
	if lastUnix <= 0 {
		return true
	}
	return now.Sub(time.Unix(lastUnix, 0)) >= interval
}
