package rag

import (
	"reflect"
	"testing"

	"github.com/coursecraft/coursecraft-go/internal/logger"
	"github.com/coursecraft/coursecraft-go/internal/storage"
)

func testCourses() []storage.Course {
	return []storage.Course{
		{
			ID:          "COMP 250",
			Title:       "Introduction to Computer Science",
			Department:  "COMP",
			Description: "Mathematical tools, data structures, recursion, sorting and searching algorithms.",
			PrereqText:  "COMP 202.",
		},
		{
			ID:          "COMP 310",
			Title:       "Operating Systems",
			Department:  "COMP",
			Description: "Process scheduling, virtual memory, file systems, concurrency.",
			PrereqText:  "COMP 250.",
		},
		{
			ID:          "MATH 240",
			Title:       "Discrete Structures",
			Department:  "MATH",
			Description: "Mathematical foundations: logic, proofs, sets, graph theory.",
			PrereqText:  "MATH 140.",
		},
	}
}

func TestNewBM25Index(t *testing.T) {
	log := logger.New("debug")
	idx := NewBM25Index(log)

	if idx == nil {
		t.Fatal("NewBM25Index() returned nil")
	}
	if idx.IsEnabled() {
		t.Error("IsEnabled() should be false before initialization")
	}
	if idx.Count() != 0 {
		t.Errorf("Count() = %d before initialization, want 0", idx.Count())
	}
}

func TestBM25IndexInitialize(t *testing.T) {
	log := logger.New("debug")
	idx := NewBM25Index(log)

	if err := idx.Initialize(testCourses()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !idx.IsEnabled() {
		t.Error("IsEnabled() should be true after initialization")
	}
	if idx.Count() != 3 {
		t.Errorf("Count() = %d, want 3", idx.Count())
	}
}

func TestBM25IndexInitializeSkipsEmptyDocuments(t *testing.T) {
	log := logger.New("debug")
	idx := NewBM25Index(log)

	courses := append(testCourses(), storage.Course{ID: "COMP 999", Department: "COMP"})
	if err := idx.Initialize(courses); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if idx.Count() != 3 {
		t.Errorf("Count() = %d, want 3 (course with no text skipped)", idx.Count())
	}
}

func TestBM25IndexSearch(t *testing.T) {
	log := logger.New("debug")
	idx := NewBM25Index(log)
	if err := idx.Initialize(testCourses()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	tests := []struct {
		name      string
		query     string
		wantFirst string
	}{
		{"operating systems terms", "virtual memory scheduling", "COMP 310"},
		{"discrete math terms", "graph theory proofs logic", "MATH 240"},
		{"course code tokens", "COMP 310 concurrency", "COMP 310"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := idx.Search(tt.query, 10)
			if err != nil {
				t.Fatalf("Search(%q) error = %v", tt.query, err)
			}
			if len(results) == 0 {
				t.Fatalf("Search(%q) returned no results", tt.query)
			}
			if results[0].CourseID != tt.wantFirst {
				t.Errorf("Search(%q) first = %s, want %s", tt.query, results[0].CourseID, tt.wantFirst)
			}
			for i, r := range results {
				if r.Rank != i+1 {
					t.Errorf("result %d has rank %d, want %d", i, r.Rank, i+1)
				}
				if i > 0 && results[i-1].Score < r.Score {
					t.Errorf("results not sorted by score descending at %d", i)
				}
			}
		})
	}
}

func TestBM25IndexSearchTopN(t *testing.T) {
	log := logger.New("debug")
	idx := NewBM25Index(log)
	if err := idx.Initialize(testCourses()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	results, err := idx.Search("comp", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) > 1 {
		t.Errorf("Search() with topN=1 returned %d results", len(results))
	}
}

func TestBM25IndexSearchEdgeCases(t *testing.T) {
	log := logger.New("debug")

	var nilIdx *BM25Index
	if results, err := nilIdx.Search("anything", 10); err != nil || results != nil {
		t.Errorf("nil index Search() = (%v, %v), want (nil, nil)", results, err)
	}
	if nilIdx.IsEnabled() {
		t.Error("nil index IsEnabled() should be false")
	}
	if err := nilIdx.Initialize(nil); err != nil {
		t.Errorf("nil index Initialize() error = %v", err)
	}

	uninit := NewBM25Index(log)
	if results, err := uninit.Search("anything", 10); err != nil || results != nil {
		t.Errorf("uninitialized Search() = (%v, %v), want (nil, nil)", results, err)
	}

	idx := NewBM25Index(log)
	if err := idx.Initialize(testCourses()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if results, err := idx.Search("   ", 10); err != nil || results != nil {
		t.Errorf("blank query Search() = (%v, %v), want (nil, nil)", results, err)
	}
	if results, err := idx.Search("?!...", 10); err != nil || results != nil {
		t.Errorf("punctuation-only query Search() = (%v, %v), want (nil, nil)", results, err)
	}
}

func TestBM25IndexReinitialize(t *testing.T) {
	log := logger.New("debug")
	idx := NewBM25Index(log)
	if err := idx.Initialize(testCourses()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	// Rebuild with a smaller catalog; old documents must be gone.
	if err := idx.Initialize(testCourses()[:1]); err != nil {
		t.Fatalf("re-Initialize() error = %v", err)
	}
	if idx.Count() != 1 {
		t.Errorf("Count() after rebuild = %d, want 1", idx.Count())
	}

	results, err := idx.Search("virtual memory scheduling", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for _, r := range results {
		if r.CourseID == "COMP 310" {
			t.Error("Search() returned a course removed by rebuild")
		}
	}
}

func TestTokenizeWords(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"COMP 250", []string{"comp", "250"}},
		{"What are the prereqs?", []string{"what", "are", "the", "prereqs"}},
		{"graph-theory, proofs", []string{"graph", "theory", "proofs"}},
		{"", nil},
		{"?!.", nil},
	}

	for _, tt := range tests {
		got := tokenizeWords(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("tokenizeWords(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
