// Package rag provides the retrieval layer for course search: a chromem
// vector store with Gemini embeddings, a BM25 lexical index, RRF fusion
// of the two, and the hybrid retriever that routes queries between
// structural lookups and semantic fallback.
package rag

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/coursecraft/coursecraft-go/internal/genai"
	"github.com/coursecraft/coursecraft-go/internal/logger"
	"github.com/coursecraft/coursecraft-go/internal/storage"
)

const (
	// CourseCollectionName is the name of the course collection in chromem
	CourseCollectionName = "courses"

	// DefaultSearchResults is the default number of results for semantic search
	DefaultSearchResults = 10

	// MaxSearchResults is the maximum number of results for semantic search
	MaxSearchResults = 50

	// MinSimilarityThreshold is the minimum cosine similarity to include a
	// result. Course documents are short (title + description + requirement
	// sentences), so weak matches below this are noise.
	MinSimilarityThreshold float32 = 0.3
)

// VectorDB wraps a chromem-go database for course semantic search.
// All methods are safe to call on a nil receiver; a nil VectorDB means
// semantic search is disabled.
type VectorDB struct {
	db            *chromem.DB
	collection    *chromem.Collection
	embeddingFunc chromem.EmbeddingFunc
	logger        *logger.Logger
	mu            sync.RWMutex
	initialized   bool
}

// VectorResult is a semantic search hit for a course.
type VectorResult struct {
	CourseID   string
	Title      string
	Department string
	Similarity float32 // Cosine similarity (0-1)
}

// Distance converts similarity to ascending-is-better distance, the scale
// the retriever reports for semantic results.
func (r VectorResult) Distance() float32 {
	return 1 - r.Similarity
}

// NewVectorDB creates a persistent vector database under persistDir.
// Returns (nil, nil) when apiKey is empty: semantic search is an optional
// capability and the rest of the system runs without it.
func NewVectorDB(persistDir, apiKey string, log *logger.Logger) (*VectorDB, error) {
	if apiKey == "" {
		log.Info("Gemini API key not configured, semantic search disabled")
		return nil, nil
	}

	embeddingFunc := genai.NewEmbeddingFunc(apiKey)

	chromemPath := filepath.Join(persistDir, "chromem", "courses")
	db, err := chromem.NewPersistentDB(chromemPath, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create chromem database: %w", err)
	}

	return &VectorDB{
		db:            db,
		embeddingFunc: embeddingFunc,
		logger:        log,
	}, nil
}

// courseDocument builds the embedded text for a course: title,
// description, and requirement sentences joined into one passage.
func courseDocument(c *storage.Course) string {
	parts := make([]string, 0, 4)
	for _, s := range []string{c.Title, c.Description, c.PrereqText, c.CoreqText} {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Initialize loads the course collection, reusing persisted embeddings
// when present and embedding the given courses otherwise. Call once
// during warmup.
func (v *VectorDB) Initialize(ctx context.Context, courses []storage.Course) error {
	if v == nil {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	collection, err := v.db.GetOrCreateCollection(CourseCollectionName, nil, v.embeddingFunc)
	if err != nil {
		return fmt.Errorf("failed to get/create collection: %w", err)
	}
	v.collection = collection

	existingCount := collection.Count()
	if existingCount > 0 {
		v.logger.WithField("count", existingCount).Info("Loaded existing course embeddings from disk")
		v.initialized = true
		return nil
	}

	if len(courses) > 0 {
		if err := v.addCoursesInternal(ctx, courses); err != nil {
			return fmt.Errorf("failed to add courses: %w", err)
		}
		v.logger.WithField("count", len(courses)).Info("Indexed courses for semantic search")
	}

	v.initialized = true
	return nil
}

// AddCourses embeds and stores course documents. Courses with no usable
// text are skipped.
func (v *VectorDB) AddCourses(ctx context.Context, courses []storage.Course) error {
	if v == nil || v.collection == nil || len(courses) == 0 {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	return v.addCoursesInternal(ctx, courses)
}

// addCoursesInternal assumes the lock is held.
func (v *VectorDB) addCoursesInternal(ctx context.Context, courses []storage.Course) error {
	docs := make([]chromem.Document, 0, len(courses))
	seen := make(map[string]bool, len(courses))

	for i := range courses {
		c := &courses[i]
		if c.ID == "" || seen[c.ID] {
			continue
		}
		content := courseDocument(c)
		if content == "" {
			continue
		}
		seen[c.ID] = true
		docs = append(docs, chromem.Document{
			ID:      c.ID,
			Content: content,
			Metadata: map[string]string{
				"course_id":  c.ID,
				"title":      c.Title,
				"department": c.Department,
			},
		})
	}

	if len(docs) == 0 {
		return nil
	}

	if err := v.collection.AddDocuments(ctx, docs, 4); err != nil { // 4 concurrent embeddings
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Search performs semantic search and returns courses sorted by
// descending similarity. Results below MinSimilarityThreshold are
// dropped. Returns (nil, nil) when disabled or the collection is empty.
func (v *VectorDB) Search(ctx context.Context, query string, nResults int) ([]VectorResult, error) {
	if v == nil || v.collection == nil || query == "" {
		return nil, nil
	}

	if nResults <= 0 {
		nResults = DefaultSearchResults
	}
	if nResults > MaxSearchResults {
		nResults = MaxSearchResults
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	// chromem-go errors when nResults exceeds the document count
	docCount := v.collection.Count()
	if docCount == 0 {
		return nil, nil
	}
	queryLimit := nResults
	if queryLimit > docCount {
		queryLimit = docCount
	}

	results, err := v.collection.Query(ctx, query, queryLimit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	searchResults := make([]VectorResult, 0, len(results))
	for _, result := range results {
		if result.Similarity < MinSimilarityThreshold {
			continue
		}
		courseID := result.Metadata["course_id"]
		if courseID == "" {
			courseID = result.ID
		}
		searchResults = append(searchResults, VectorResult{
			CourseID:   courseID,
			Title:      result.Metadata["title"],
			Department: result.Metadata["department"],
			Similarity: result.Similarity,
		})
	}

	sort.Slice(searchResults, func(i, j int) bool {
		return searchResults[i].Similarity > searchResults[j].Similarity
	})

	return searchResults, nil
}

// Reset drops the course collection so a catalog refresh can rebuild it.
func (v *VectorDB) Reset() error {
	if v == nil || v.db == nil {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.db.DeleteCollection(CourseCollectionName); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	collection, err := v.db.GetOrCreateCollection(CourseCollectionName, nil, v.embeddingFunc)
	if err != nil {
		return fmt.Errorf("failed to recreate collection: %w", err)
	}
	v.collection = collection
	return nil
}

// Count returns the number of documents in the collection
func (v *VectorDB) Count() int {
	if v == nil || v.collection == nil {
		return 0
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.collection.Count()
}

// IsEnabled returns true if the vector database is initialized and ready
func (v *VectorDB) IsEnabled() bool {
	if v == nil {
		return false
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.initialized && v.collection != nil
}

// Close closes the vector database.
// chromem-go persists on every operation; nothing to flush.
func (v *VectorDB) Close() error {
	return nil
}
