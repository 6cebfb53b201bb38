package rag

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	bm25 "github.com/iwilltry42/bm25-go/bm25"

	"github.com/coursecraft/coursecraft-go/internal/logger"
	"github.com/coursecraft/coursecraft-go/internal/storage"
)

// BM25Index provides keyword search over course documents. One document
// per course: title, description, and requirement sentences.
type BM25Index struct {
	bm25Okapi   *bm25.BM25Okapi
	corpus      []string
	docIDToCID  map[int]string     // document index -> course id
	metadata    map[string]docMeta // course id -> metadata
	logger      *logger.Logger
	mu          sync.RWMutex
	initialized bool
}

type docMeta struct {
	Title      string
	Department string
}

// BM25Result is a lexical search hit for a course.
type BM25Result struct {
	CourseID   string
	Title      string
	Department string
	Score      float64 // BM25 score (higher is better)
	Rank       int     // Rank position (1-indexed)
}

// NewBM25Index creates a new BM25 index
func NewBM25Index(log *logger.Logger) *BM25Index {
	return &BM25Index{
		docIDToCID: make(map[int]string),
		metadata:   make(map[string]docMeta),
		logger:     log,
	}
}

// Initialize builds the BM25 index from the course catalog. May be
// called again after a catalog refresh; the whole index is rebuilt since
// BM25 IDF values depend on the full corpus.
func (idx *BM25Index) Initialize(courses []storage.Course) error {
	if idx == nil {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	var corpus []string
	docIDToCID := make(map[int]string)
	metadata := make(map[string]docMeta, len(courses))

	docIndex := 0
	for i := range courses {
		c := &courses[i]
		content := courseDocument(c)
		if strings.TrimSpace(content) == "" {
			continue
		}
		metadata[c.ID] = docMeta{Title: c.Title, Department: c.Department}
		corpus = append(corpus, content)
		docIDToCID[docIndex] = c.ID
		docIndex++
	}

	idx.corpus = corpus
	idx.docIDToCID = docIDToCID
	idx.metadata = metadata
	idx.bm25Okapi = nil

	if len(corpus) == 0 {
		idx.initialized = true
		return nil
	}

	// k1=1.5, b=0.75 are standard BM25 parameters
	bm25Okapi, err := bm25.NewBM25Okapi(corpus, tokenizeWords, 1.5, 0.75, nil)
	if err != nil {
		return fmt.Errorf("failed to create BM25 index: %w", err)
	}
	idx.bm25Okapi = bm25Okapi
	idx.initialized = true

	idx.logger.WithField("docs", len(corpus)).Info("BM25 index initialized")
	return nil
}

// Search performs BM25 keyword search, returning results sorted by score
// descending with 1-indexed ranks assigned.
func (idx *BM25Index) Search(query string, topN int) ([]BM25Result, error) {
	if idx == nil || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.initialized || idx.bm25Okapi == nil {
		return nil, nil
	}

	tokenizedQuery := tokenizeWords(query)
	if len(tokenizedQuery) == 0 {
		return nil, nil
	}

	scores, err := idx.bm25Okapi.GetScores(tokenizedQuery)
	if err != nil {
		return nil, fmt.Errorf("BM25 scoring failed: %w", err)
	}

	type scoredDoc struct {
		docID int
		score float64
	}
	var scoredDocs []scoredDoc
	for docID, score := range scores {
		if score > 0 {
			scoredDocs = append(scoredDocs, scoredDoc{docID: docID, score: score})
		}
	}

	sort.Slice(scoredDocs, func(i, j int) bool {
		return scoredDocs[i].score > scoredDocs[j].score
	})

	if topN > 0 && len(scoredDocs) > topN {
		scoredDocs = scoredDocs[:topN]
	}

	results := make([]BM25Result, 0, len(scoredDocs))
	for i, sd := range scoredDocs {
		courseID := idx.docIDToCID[sd.docID]
		if courseID == "" {
			continue
		}
		meta := idx.metadata[courseID]
		results = append(results, BM25Result{
			CourseID:   courseID,
			Title:      meta.Title,
			Department: meta.Department,
			Score:      sd.score,
			Rank:       i + 1,
		})
	}

	return results, nil
}

// IsEnabled returns true if the index is initialized
func (idx *BM25Index) IsEnabled() bool {
	if idx == nil {
		return false
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.initialized && idx.bm25Okapi != nil
}

// Count returns the number of documents in the index
func (idx *BM25Index) Count() int {
	if idx == nil {
		return 0
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.corpus)
}

// tokenizeWords lowercases and splits on anything that is not a letter
// or digit. Course codes like "COMP 250" become ["comp", "250"], which
// keeps code mentions searchable.
func tokenizeWords(text string) []string {
	text = strings.ToLower(text)

	var tokens []string
	var current strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}
