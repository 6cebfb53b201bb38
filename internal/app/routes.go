package app

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coursecraft/coursecraft-go/internal/answer"
	"github.com/coursecraft/coursecraft-go/internal/buildinfo"
	"github.com/coursecraft/coursecraft-go/internal/config"
	"github.com/coursecraft/coursecraft-go/internal/query"
	"github.com/coursecraft/coursecraft-go/internal/rag"
)

// maxResultsCap bounds the per-request result count regardless of what
// the client asks for.
const maxResultsCap = 20

// setupRouter builds the gin engine with middleware and all routes.
func (a *Application) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sentryMiddleware())
	router.Use(securityHeadersMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/", a.serviceInfo)
	router.GET("/healthz", a.livenessCheck)
	router.GET("/ready", a.readinessCheck)

	metricsAuth := metricsAuthMiddleware(a.cfg.MetricsPassword != "", a.cfg.MetricsUsername, a.cfg.MetricsPassword)
	router.GET("/metrics", metricsAuth, gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	api.Use(a.rateLimitMiddleware())
	api.Use(a.readinessMiddleware())
	api.POST("/query", a.handleQuery)
	api.GET("/courses/:id", a.handleGetCourse)
	api.GET("/courses/:id/prereqs", a.handleGetPrereqs)

	return router
}

func (a *Application) serviceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "coursecraft",
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
	})
}

// livenessCheck reports process health only: a live process with a
// broken catalog should be restarted, not kept out of rotation.
func (a *Application) livenessCheck(c *gin.Context) {
	if err := a.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readinessCheck reports whether the instance should receive traffic:
// initial warmup done (or timed out) and the database serving queries.
func (a *Application) readinessCheck(c *gin.Context) {
	ctx := c.Request.Context()

	status := a.readinessState.Status()
	if !status.Ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "warming_up",
			"warmup": status,
		})
		return
	}

	if err := a.db.Ready(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}

	courses, _ := a.db.CountCourses(ctx)
	edges, _ := a.db.CountEdges(ctx)

	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"courses": courses,
		"edges":   edges,
		"features": gin.H{
			"bm25":          a.bm25Index != nil && a.bm25Index.IsEnabled(),
			"vector_search": a.vectorDB != nil,
			"llm":           a.answerer != nil && a.answerer.IsEnabled(),
		},
	})
}

// queryRequest is the body of POST /api/query.
type queryRequest struct {
	Question   string `json:"question" binding:"required"`
	MaxResults int    `json:"max_results"`
}

// queryResponse pairs the composed answer with the retrieval evidence.
type queryResponse struct {
	Answer  *answer.Response `json:"answer"`
	Results []rag.Result     `json:"results"`
}

// handleQuery runs the full pipeline: hybrid retrieval, then answer
// composition. Model-generated answers are gated by the per-client LLM
// limiter; a denied client still gets the deterministic catalog answer.
func (a *Application) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = a.cfg.MaxSearchResults
	}
	if maxResults > maxResultsCap {
		maxResults = maxResultsCap
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), config.APIRequestTimeout)
	defer cancel()

	res, err := a.retriever.Search(ctx, question, maxResults)
	if err != nil {
		a.metrics.RecordHTTPError("search_failed", "api")
		a.logger.WithError(err).Error("Search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	composer := a.composer
	if a.wouldGenerate(res) && !a.llmLimiter.Allow(c.ClientIP()) {
		a.metrics.RecordRateLimiterDrop("llm")
		composer = a.catalogComposer
	}

	resp, err := composer.Compose(ctx, question, res)
	if err != nil {
		a.metrics.RecordHTTPError("compose_failed", "api")
		a.logger.WithError(err).Error("Answer composition failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "answer composition failed"})
		return
	}

	c.JSON(http.StatusOK, queryResponse{Answer: resp, Results: res.Results})
}

// wouldGenerate mirrors the composer's routing: only queries that miss
// every deterministic path reach the language model, so only those
// consume an LLM token.
func (a *Application) wouldGenerate(res *rag.RetrievalResult) bool {
	if a.answerer == nil || !a.answerer.IsEnabled() {
		return false
	}
	if res == nil {
		return true
	}
	if res.IsPlanningQuery {
		return false
	}
	if res.Intent == query.IntentPrereqChain || res.Intent == query.IntentReversePrereq {
		return false
	}
	if res.NeedsClarification && len(res.Alternatives) > 0 {
		return false
	}
	return true
}

// handleGetCourse returns the catalog record for one course.
func (a *Application) handleGetCourse(c *gin.Context) {
	id, ok := courseIDParam(c)
	if !ok {
		return
	}

	course, err := a.db.GetCourse(c.Request.Context(), id)
	if err != nil {
		a.metrics.RecordHTTPError("course_lookup_failed", "api")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "course lookup failed"})
		return
	}
	if course == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		return
	}

	c.JSON(http.StatusOK, course)
}

// handleGetPrereqs returns the requirement edges around one course:
// what it requires, what it co-requires, and what requires it.
func (a *Application) handleGetPrereqs(c *gin.Context) {
	id, ok := courseIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	course, err := a.db.GetCourse(ctx, id)
	if err != nil {
		a.metrics.RecordHTTPError("course_lookup_failed", "api")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "course lookup failed"})
		return
	}
	if course == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		return
	}

	prereqs, err := a.db.GetPrereqs(ctx, id)
	if err != nil {
		a.metrics.RecordHTTPError("prereq_lookup_failed", "api")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prerequisite lookup failed"})
		return
	}
	coreqs, err := a.db.GetCoreqs(ctx, id)
	if err != nil {
		a.metrics.RecordHTTPError("prereq_lookup_failed", "api")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prerequisite lookup failed"})
		return
	}
	requiredBy, err := a.db.GetRequiring(ctx, id)
	if err != nil {
		a.metrics.RecordHTTPError("prereq_lookup_failed", "api")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prerequisite lookup failed"})
		return
	}

	prereqIDs := make([]string, 0, len(prereqs))
	for _, e := range prereqs {
		prereqIDs = append(prereqIDs, e.SrcCourseID)
	}
	coreqIDs := make([]string, 0, len(coreqs))
	for _, e := range coreqs {
		coreqIDs = append(coreqIDs, e.SrcCourseID)
	}
	if requiredBy == nil {
		requiredBy = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"course_id":   id,
		"prereq_text": course.PrereqText,
		"prereqs":     prereqIDs,
		"coreqs":      coreqIDs,
		"required_by": requiredBy,
	})
}

// courseIDParam normalizes the :id path parameter ("comp-250", "COMP250",
// "COMP 250") into canonical catalog form. Writes the 400 itself when the
// parameter is not a course code.
func courseIDParam(c *gin.Context) (string, bool) {
	raw := strings.ReplaceAll(c.Param("id"), "-", " ")
	id := query.ExtractCourseID(raw)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return "", false
	}
	return id, true
}
