package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coursecraft/coursecraft-go/internal/logger"
	"github.com/coursecraft/coursecraft-go/internal/metrics"
	"github.com/coursecraft/coursecraft-go/internal/query"
	"github.com/coursecraft/coursecraft-go/internal/storage"
)

const (
	// DeptContextScore marks department-context courses injected next to
	// semantic results when only a partial planning signal was detected.
	DeptContextScore = 0.5

	// planningListLimit bounds structured planning lists
	planningListLimit = 12

	// availableListLimit bounds "available after completing" lists, which
	// tend to be longer than other planning lists
	availableListLimit = 15

	// deptContextLimit bounds injected department-context courses
	deptContextLimit = 15
)

// Result is a single retrieved course. Score is 0.0 for structural
// matches (direct fetch, reverse lookup, planning lists) and the semantic
// distance (lower = more similar) otherwise.
type Result struct {
	CourseID string          `json:"course_id"`
	Score    float64         `json:"score"`
	Course   *storage.Course `json:"course,omitempty"`
}

// RetrievalResult is the ordered outcome of a hybrid search, possibly
// carrying disambiguation or planning flags.
type RetrievalResult struct {
	Results []Result `json:"results"`

	// NeedsClarification is set when the query matched a title shared by
	// several courses; Alternatives then holds every candidate id,
	// including the default that was returned first.
	NeedsClarification bool     `json:"needs_clarification,omitempty"`
	Alternatives       []string `json:"alternatives,omitempty"`

	// IsPlanningQuery is set when a structured planning list was
	// returned; Plan carries the detected department/term/level.
	IsPlanningQuery bool               `json:"is_planning_query,omitempty"`
	PlanningType    query.PlanningType `json:"planning_type,omitempty"`
	Plan            *query.Plan        `json:"-"`

	// Intent is the coarse classification of the query, recorded for
	// the answer layer and metrics.
	Intent query.Intent `json:"intent,omitempty"`
}

// Reformulator optionally rewrites a query for better semantic recall.
// It is a capability, not a requirement: structural and planning paths
// never touch it, and a nil Reformulator disables rewriting entirely.
type Reformulator interface {
	Reformulate(ctx context.Context, q string) (string, error)
}

// Retriever routes course questions between structural lookups and
// semantic fallback search.
type Retriever struct {
	store        storage.CourseRepository
	titles       *query.TitleIndex
	vectorDB     *VectorDB
	bm25Index    *BM25Index
	reformulator Reformulator
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

// NewRetriever creates a hybrid retriever. vectorDB, bm25Index,
// reformulator, and m may be nil; structural retrieval works without any
// of them.
func NewRetriever(
	store storage.CourseRepository,
	titles *query.TitleIndex,
	vectorDB *VectorDB,
	bm25Index *BM25Index,
	reformulator Reformulator,
	m *metrics.Metrics,
	log *logger.Logger,
) *Retriever {
	return &Retriever{
		store:        store,
		titles:       titles,
		vectorDB:     vectorDB,
		bm25Index:    bm25Index,
		reformulator: reformulator,
		metrics:      m,
		logger:       log,
	}
}

// Search runs the retrieval decision tree:
//
//  1. concrete planning query → structured list, all scores 0.0
//  2. "prerequisites for X" → direct fetch of X
//  3. "what requires X" → reverse prerequisite lookup
//  4. explicit course codes → direct fetch of each
//  5. otherwise → semantic fallback (BM25 + vector, RRF-fused), with
//     department context injected when a partial planning signal exists
//
// Structural paths return empty results for "not found", never an error;
// errors mean the store or the similarity index failed.
func (r *Retriever) Search(ctx context.Context, rawQuery string, maxResults int) (*RetrievalResult, error) {
	start := time.Now()

	q := query.ReplaceAliases(rawQuery)
	intent := query.ClassifyIntent(q)
	r.metrics.RecordIntent(string(intent))

	// Planning detection is skipped when a real course code is present:
	// a question about a named course beats generic planning heuristics.
	var plan *query.Plan
	if !query.HasCourseCode(q) {
		plan = query.DetectPlanning(q)
	}

	if plan != nil && plan.Type != "" {
		result, err := r.searchPlanning(ctx, plan, intent)
		if err != nil {
			return nil, err
		}
		if result != nil {
			r.recordSearch("planning", start)
			return result, nil
		}
		// Structured fetch produced nothing; fall through to the
		// remaining strategies with the plan kept for context injection.
	}

	courseID, alternatives := r.resolvePrimaryCourse(q)

	if courseID != "" && query.IsAskingPrereqsFor(q) {
		result, err := r.searchDirect(ctx, courseID, alternatives, intent)
		if err != nil {
			return nil, err
		}
		if result != nil {
			r.recordSearch("direct", start)
			return result, nil
		}
		// Course not found: give semantic search a chance.
	}

	if courseID != "" && query.IsAskingWhatRequires(q) {
		result, err := r.searchReverse(ctx, courseID, intent)
		if err != nil {
			return nil, err
		}
		r.recordSearch("reverse", start)
		return result, nil
	}

	if ids := query.ExtractCourseIDs(q); len(ids) > 0 {
		result, err := r.searchByIDs(ctx, ids, alternatives, intent)
		if err != nil {
			return nil, err
		}
		if result != nil {
			r.recordSearch("multi", start)
			return result, nil
		}
	}

	result, err := r.searchSemantic(ctx, q, plan, maxResults, intent)
	if err != nil {
		return nil, err
	}
	r.recordSearch("semantic", start)
	return result, nil
}

// resolvePrimaryCourse finds the course a query is about: an explicit
// code wins and is never ambiguous; otherwise the title index is
// consulted, which may return alternatives.
func (r *Retriever) resolvePrimaryCourse(q string) (string, []string) {
	if id := query.ExtractCourseID(q); id != "" {
		return id, nil
	}
	return r.titles.Resolve(q)
}

// searchPlanning dispatches a concrete planning query to the matching
// structured fetch. Returns (nil, nil) when the fetch yields no courses
// so the caller can fall through.
func (r *Retriever) searchPlanning(ctx context.Context, plan *query.Plan, intent query.Intent) (*RetrievalResult, error) {
	var courses []storage.Course
	var err error

	switch plan.Type {
	case query.PlanningFirstSemester:
		courses, err = r.store.ListEntryLevel(ctx, plan.Department, planningListLimit)

	case query.PlanningByLevel:
		if plan.Department == "" {
			return nil, nil
		}
		courses, err = r.store.ListByLevel(ctx, plan.Department, plan.Level, planningListLimit)

	case query.PlanningAvailable:
		if len(plan.Completed) == 0 {
			return nil, nil
		}
		courses, err = r.store.ListAvailable(ctx, plan.Completed, availableListLimit)
		if err == nil && plan.Department != "" {
			courses = filterByDepartment(courses, plan.Department)
		}

	case query.PlanningRecommendation:
		if plan.Department == "" {
			return nil, nil
		}
		if plan.Level >= 200 {
			courses, err = r.store.ListByLevel(ctx, plan.Department, plan.Level, planningListLimit)
		} else {
			courses, err = r.store.ListEntryLevel(ctx, plan.Department, planningListLimit)
		}

	default:
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("planning fetch (%s): %w", plan.Type, err)
	}
	if len(courses) == 0 {
		return nil, nil
	}

	r.metrics.RecordPlanningType(string(plan.Type))

	results := make([]Result, 0, len(courses))
	for i := range courses {
		results = append(results, Result{
			CourseID: courses[i].ID,
			Score:    0.0,
			Course:   &courses[i],
		})
	}

	return &RetrievalResult{
		Results:         results,
		IsPlanningQuery: true,
		PlanningType:    plan.Type,
		Plan:            plan,
		Intent:          intent,
	}, nil
}

// searchDirect fetches one course by id. Returns (nil, nil) when the
// course does not exist so the caller can fall through to semantic
// search.
func (r *Retriever) searchDirect(ctx context.Context, courseID string, alternatives []string, intent query.Intent) (*RetrievalResult, error) {
	course, err := r.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("direct fetch %s: %w", courseID, err)
	}
	if course == nil {
		return nil, nil
	}

	result := &RetrievalResult{
		Results: []Result{{CourseID: course.ID, Score: 0.0, Course: course}},
		Intent:  intent,
	}
	r.attachAlternatives(result, alternatives)
	return result, nil
}

// searchReverse finds every course that requires the given course. An
// empty list is a valid outcome, not an error.
func (r *Retriever) searchReverse(ctx context.Context, courseID string, intent query.Intent) (*RetrievalResult, error) {
	courses, err := r.store.FindCoursesMentioning(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("reverse lookup %s: %w", courseID, err)
	}

	results := make([]Result, 0, len(courses))
	for i := range courses {
		results = append(results, Result{
			CourseID: courses[i].ID,
			Score:    0.0,
			Course:   &courses[i],
		})
	}
	return &RetrievalResult{Results: results, Intent: intent}, nil
}

// searchByIDs fetches every explicitly mentioned course. Returns
// (nil, nil) when none of them exist.
func (r *Retriever) searchByIDs(ctx context.Context, ids []string, alternatives []string, intent query.Intent) (*RetrievalResult, error) {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		course, err := r.store.GetCourse(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", id, err)
		}
		if course == nil {
			continue
		}
		results = append(results, Result{CourseID: course.ID, Score: 0.0, Course: course})
	}
	if len(results) == 0 {
		return nil, nil
	}

	result := &RetrievalResult{Results: results, Intent: intent}
	r.attachAlternatives(result, alternatives)
	return result, nil
}

// searchSemantic is the fallback: BM25 and vector search run in
// parallel, fused with RRF, sorted ascending by distance. When a partial
// planning signal named a department, that department's entry-level
// courses are appended as context markers (score 0.5) so the evidence
// set is not purely similarity-based.
func (r *Retriever) searchSemantic(ctx context.Context, q string, plan *query.Plan, maxResults int, intent query.Intent) (*RetrievalResult, error) {
	if maxResults <= 0 {
		maxResults = DefaultSearchResults
	}

	searchQuery := q
	if r.reformulator != nil {
		if rq, err := r.reformulator.Reformulate(ctx, q); err != nil {
			r.logger.WithError(err).Warn("Query reformulation failed, using original query")
		} else if strings.TrimSpace(rq) != "" {
			searchQuery = rq
		}
	}

	vectorEnabled := r.vectorDB.IsEnabled()
	bm25Enabled := r.bm25Index.IsEnabled()

	var (
		bm25Results   []BM25Result
		vectorResults []VectorResult
		bm25Err       error
		vectorErr     error
		wg            sync.WaitGroup
	)

	// Fetch more than requested for better fusion overlap
	fetchN := maxResults * 3
	if fetchN < 30 {
		fetchN = 30
	}

	if bm25Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bm25Results, bm25Err = r.bm25Index.Search(searchQuery, fetchN)
		}()
	}
	if vectorEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vectorResults, vectorErr = r.vectorDB.Search(ctx, searchQuery, fetchN)
		}()
	}
	wg.Wait()

	// A failed source with no surviving source is an upstream failure,
	// not an empty match; the two are deliberately distinguishable.
	if bm25Err != nil && vectorErr != nil {
		return nil, fmt.Errorf("semantic search: bm25: %v; vector: %w", bm25Err, vectorErr)
	}
	if bm25Err != nil {
		if !vectorEnabled {
			return nil, fmt.Errorf("semantic search: %w", bm25Err)
		}
		r.logger.WithError(bm25Err).Warn("BM25 search failed, using vector results only")
	}
	if vectorErr != nil {
		if !bm25Enabled {
			return nil, fmt.Errorf("semantic search: %w", vectorErr)
		}
		r.logger.WithError(vectorErr).Warn("Vector search failed, using BM25 results only")
	}

	fused := FuseRRFWithDefaults(bm25Results, vectorResults, maxResults)

	results := make([]Result, 0, len(fused)+deptContextLimit)
	for _, f := range fused {
		results = append(results, Result{
			CourseID: f.CourseID,
			Score:    float64(f.Distance()),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})

	if plan != nil && plan.Department != "" {
		results = r.injectDepartmentContext(ctx, results, plan.Department)
	}

	return &RetrievalResult{Results: results, Plan: plan, Intent: intent}, nil
}

// injectDepartmentContext appends entry-level courses from the detected
// department that semantic search missed. Best-effort: a store failure
// here only loses the extra context.
func (r *Retriever) injectDepartmentContext(ctx context.Context, results []Result, department string) []Result {
	courses, err := r.store.ListEntryLevel(ctx, department, deptContextLimit)
	if err != nil {
		r.logger.WithError(err).WithField("department", department).
			Warn("Failed to inject department context")
		return results
	}

	existing := make(map[string]bool, len(results))
	for _, res := range results {
		existing[res.CourseID] = true
	}
	for i := range courses {
		if existing[courses[i].ID] {
			continue
		}
		results = append(results, Result{
			CourseID: courses[i].ID,
			Score:    DeptContextScore,
			Course:   &courses[i],
		})
	}
	return results
}

// Enrich hydrates course ids into full records, preserving order and
// silently skipping ids that no longer exist.
func (r *Retriever) Enrich(ctx context.Context, ids []string) ([]*storage.Course, error) {
	courses := make([]*storage.Course, 0, len(ids))
	for _, id := range ids {
		course, err := r.store.GetCourse(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("enrich %s: %w", id, err)
		}
		if course != nil {
			courses = append(courses, course)
		}
	}
	return courses, nil
}

func (r *Retriever) attachAlternatives(result *RetrievalResult, alternatives []string) {
	if len(alternatives) > 1 {
		result.NeedsClarification = true
		result.Alternatives = alternatives
		r.metrics.RecordDisambiguation("prompted")
	}
}

func (r *Retriever) recordSearch(path string, start time.Time) {
	r.metrics.RecordSearch(path, "ok", time.Since(start).Seconds())
}

func filterByDepartment(courses []storage.Course, department string) []storage.Course {
	department = strings.ToUpper(department)
	filtered := courses[:0]
	for _, c := range courses {
		if c.Department == department {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
