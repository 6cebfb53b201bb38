// Package scraper provides the HTTP plumbing for catalog scraping: a
// rate-limited client with retry and URL failover, singleflight
// deduplication, and a lock-free cache for the working base URL.
package scraper

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/corpix/uarand"

	apperrors "github.com/coursecraft/coursecraft-go/internal/errors"
)

// DomainCatalogue is the failover domain key for the course catalogue.
const DomainCatalogue = "catalogue"

// Client is an HTTP client for web scraping with rate limiting and URL
// failover.
type Client struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
	maxRetries  int
	baseURLs    map[string][]string
	mu          sync.RWMutex
}

// NewClient creates a scraper client. workers bounds concurrent
// requests; minDelay/maxDelay is the politeness pause added after each
// acquired slot.
func NewClient(timeout time.Duration, workers int, minDelay, maxDelay time.Duration, maxRetries int) *Client {
	// The catalogue moved hosts once already; keep the old location as a
	// fallback.
	baseURLs := map[string][]string{
		DomainCatalogue: {
			"https://coursecatalogue.mcgill.ca",
			"https://www.mcgill.ca",
		},
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		rateLimiter: NewRateLimiter(workers, minDelay, maxDelay),
		maxRetries:  maxRetries,
		baseURLs:    baseURLs,
	}
}

// SetBaseURLs replaces the failover URLs for a domain. Used by tests and
// by deployments that front the catalogue with a mirror.
func (c *Client) SetBaseURLs(domain string, urls []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURLs[domain] = append([]string(nil), urls...)
}

// Get performs a GET request with rate limiting and retries.
// Caller is responsible for closing the response body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	var resp *http.Response

	err := RetryWithBackoff(ctx, c.maxRetries, 1*time.Second, func() error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("User-Agent", c.randomUserAgent())
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-CA,en;q=0.9,fr-CA;q=0.8")
		req.Header.Set("Accept-Encoding", "gzip, deflate")

		resp, err = c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// Close body for non-success responses since we won't return it
			_ = resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusTooManyRequests:
				return apperrors.NewScraperError(url, resp.StatusCode, apperrors.ErrRateLimitExceeded)
			case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
				return apperrors.NewScraperError(url, resp.StatusCode, apperrors.ErrUnavailable)
			case http.StatusNotFound:
				return &permanentError{err: apperrors.NewScraperError(url, resp.StatusCode, apperrors.ErrNotFound)}
			case http.StatusForbidden, http.StatusUnauthorized:
				return &permanentError{err: apperrors.NewScraperError(url, resp.StatusCode, errors.New("access denied"))}
			default:
				return apperrors.NewScraperError(url, resp.StatusCode, errors.New("unexpected status"))
			}
		}

		// Success - caller must close response body
		return nil
	})

	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetDocument performs a GET request and parses the response as HTML.
func (c *Client) GetDocument(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress gzip: %w", err)
		}
		defer func() { _ = gzipReader.Close() }()
		reader = gzipReader
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// randomUserAgent returns a random browser user agent string.
func (c *Client) randomUserAgent() string {
	return uarand.GetRandom()
}

// TryFailoverURLs attempts each configured base URL for a domain and
// returns the first one that responds.
func (c *Client) TryFailoverURLs(ctx context.Context, domain string) (string, error) {
	c.mu.RLock()
	urls, exists := c.baseURLs[domain]
	c.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("no failover URLs configured for domain: %s", domain)
	}

	for _, baseURL := range urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
		if err != nil {
			continue
		}
		req.Header.Set("User-Agent", c.randomUserAgent())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			continue
		}
		_ = resp.Body.Close()

		if resp.StatusCode < 500 {
			return baseURL, nil
		}
	}

	return "", fmt.Errorf("all failover URLs failed for domain: %s", domain)
}

// GetBaseURLs returns a copy of the base URLs for a domain.
func (c *Client) GetBaseURLs(domain string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	urls, exists := c.baseURLs[domain]
	if !exists {
		return nil
	}
	result := make([]string, len(urls))
	copy(result, urls)
	return result
}

// permanentError marks an error that retries cannot fix (404, 403, 401).
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// IsNetworkError reports whether an error looks transient: a timeout, a
// broken connection, or a retryable server response. Permanent HTTP
// client errors report false so callers don't trigger failover for them.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var permErr *permanentError
	if errors.As(err, &permErr) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"server error",
		"rate limited",
		"unexpected EOF",
		"timeout",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
