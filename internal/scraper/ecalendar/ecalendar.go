package ecalendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coursecraft/coursecraft-go/internal/logger"
	"github.com/coursecraft/coursecraft-go/internal/metrics"
	"github.com/coursecraft/coursecraft-go/internal/scraper"
	"github.com/coursecraft/coursecraft-go/internal/storage"
)

// Scraper fetches and parses catalogue pages. Concurrent requests for
// the same page are deduplicated, and the working base URL is cached
// with automatic failover.
type Scraper struct {
	client  *scraper.Client
	urls    *scraper.URLCache
	flight  *scraper.CacheWrapper
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// ScrapeResult is one parsed course page.
type ScrapeResult struct {
	Course *storage.Course
	Edges  []*storage.PrereqEdge
}

// New creates a catalogue scraper. m may be nil.
func New(client *scraper.Client, m *metrics.Metrics, log *logger.Logger) *Scraper {
	return &Scraper{
		client:  client,
		urls:    scraper.NewURLCache(client, scraper.DomainCatalogue),
		flight:  scraper.NewCacheWrapper(),
		metrics: m,
		logger:  log.WithModule("ecalendar"),
	}
}

// CourseLinks fetches the catalogue index and returns every course page
// URL it lists.
func (s *Scraper) CourseLinks(ctx context.Context) ([]string, error) {
	start := time.Now()

	baseURL, err := s.urls.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve catalogue URL: %w", err)
	}

	doc, err := s.client.GetDocument(ctx, baseURL+coursesPath)
	if err != nil {
		// A dead base URL should trigger re-detection before giving up.
		if scraper.IsNetworkError(err) {
			s.urls.Clear()
			if newURL, ferr := s.urls.Get(ctx); ferr == nil && newURL != baseURL {
				baseURL = newURL
				doc, err = s.client.GetDocument(ctx, baseURL+coursesPath)
			}
		}
		if err != nil {
			s.metrics.RecordScraperRequest("catalog", "error", time.Since(start).Seconds())
			return nil, fmt.Errorf("fetch catalogue index: %w", err)
		}
	}

	links := parseCourseLinks(doc, baseURL)
	s.metrics.RecordScraperRequest("catalog", "success", time.Since(start).Seconds())
	s.logger.WithField("count", len(links)).Info("Catalogue index scraped")
	return links, nil
}

// Course fetches and parses a single course page. Concurrent calls for
// the same URL share one request.
func (s *Scraper) Course(ctx context.Context, pageURL string) (*ScrapeResult, error) {
	result, err := s.flight.DoScrape(ctx, pageURL, func() (interface{}, error) {
		return s.scrapeCourse(ctx, pageURL)
	})
	if err != nil {
		return nil, err
	}
	return result.(*ScrapeResult), nil
}

func (s *Scraper) scrapeCourse(ctx context.Context, pageURL string) (*ScrapeResult, error) {
	start := time.Now()
	dept := departmentOfLink(pageURL)

	doc, err := s.client.GetDocument(ctx, pageURL)
	if err != nil {
		s.metrics.RecordScraperRequest(dept, "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("fetch course page %s: %w", pageURL, err)
	}

	course, edges := parseCoursePage(doc, pageURL)
	if course == nil {
		s.metrics.RecordScraperRequest(dept, "parse_error", time.Since(start).Seconds())
		return nil, fmt.Errorf("no course found at %s", pageURL)
	}
	course.UpdatedAt = time.Now().Unix()

	s.metrics.RecordScraperRequest(course.Department, "success", time.Since(start).Seconds())
	return &ScrapeResult{Course: course, Edges: edges}, nil
}

// Department scrapes every course of one department. Pages that fail to
// parse are logged and skipped rather than failing the whole run.
func (s *Scraper) Department(ctx context.Context, department string) ([]*ScrapeResult, error) {
	links, err := s.CourseLinks(ctx)
	if err != nil {
		return nil, err
	}

	prefix := strings.ToLower(department) + "-"
	var results []*ScrapeResult
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if !strings.HasPrefix(linkSlug(link), prefix) {
			continue
		}

		result, err := s.Course(ctx, link)
		if err != nil {
			s.logger.WithError(err).WithField("url", link).Warn("Skipping course page")
			continue
		}
		results = append(results, result)
	}

	s.logger.WithFields(map[string]any{
		"department": department,
		"count":      len(results),
	}).Info("Department scraped")
	return results, nil
}

// linkSlug returns the "comp-250" part of a course page URL.
func linkSlug(link string) string {
	if i := strings.LastIndex(link, "/"); i >= 0 {
		return link[i+1:]
	}
	return link
}

func departmentOfLink(link string) string {
	slug := linkSlug(link)
	if i := strings.Index(slug, "-"); i > 0 {
		return strings.ToUpper(slug[:i])
	}
	return "unknown"
}
