package query

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/coursecraft/coursecraft-go/internal/storage"
)

type fakeCourseLister struct {
	courses []storage.Course
	err     error
}

func (f *fakeCourseLister) GetAllCourses(_ context.Context) ([]storage.Course, error) {
	return f.courses, f.err
}

func testTitleIndex(t *testing.T) *TitleIndex {
	t.Helper()
	store := &fakeCourseLister{courses: []storage.Course{
		{ID: "COMP 202", Title: "Foundations of Programming"},
		{ID: "COMP 250", Title: "Introduction to Computer Science"},
		{ID: "COMP 310", Title: "Operating Systems"},
		{ID: "ECSE 427", Title: "Operating Systems"},
		{ID: "MATH 140", Title: "Calculus 1"},
		{ID: "MATH 222", Title: "Calculus 3."},
		{ID: "COMP 396", Title: "Placeholder for undergraduate research project"},
	}}

	idx := NewTitleIndex(store, "COMP", nil)
	if err := idx.Build(context.Background()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return idx
}

func TestTitleIndexReady(t *testing.T) {
	store := &fakeCourseLister{}
	idx := NewTitleIndex(store, "COMP", nil)

	if idx.Ready() {
		t.Error("index should not be ready before Build")
	}

	id, alts := idx.Resolve("Operating Systems")
	if id != "" || alts != nil {
		t.Errorf("Resolve before Build = (%q, %v), want empty", id, alts)
	}

	if err := idx.Build(context.Background()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !idx.Ready() {
		t.Error("index should be ready after Build")
	}

	var nilIdx *TitleIndex
	if nilIdx.Ready() {
		t.Error("nil index should not report ready")
	}
}

func TestTitleIndexBuildError(t *testing.T) {
	store := &fakeCourseLister{err: errors.New("db closed")}
	idx := NewTitleIndex(store, "COMP", nil)

	if err := idx.Build(context.Background()); err == nil {
		t.Error("expected Build to propagate store error")
	}
	if idx.Ready() {
		t.Error("failed Build must not mark the index ready")
	}
}

func TestTitleIndexResolve(t *testing.T) {
	idx := testTitleIndex(t)

	tests := []struct {
		name     string
		query    string
		wantID   string
		wantAlts []string
	}{
		{
			name:   "exact title",
			query:  "Foundations of Programming",
			wantID: "COMP 202",
		},
		{
			name:   "scaffolding prefix stripped",
			query:  "What are the prerequisites for Introduction to Computer Science?",
			wantID: "COMP 250",
		},
		{
			name:     "ambiguous title prefers configured department",
			query:    "Tell me about Operating Systems",
			wantID:   "COMP 310",
			wantAlts: []string{"COMP 310", "ECSE 427"},
		},
		{
			name:     "about suffix stripped",
			query:    "What is Operating Systems about?",
			wantID:   "COMP 310",
			wantAlts: []string{"COMP 310", "ECSE 427"},
		},
		{
			name:   "title as substring of query",
			query:  "When should I take Calculus 1 exactly?",
			wantID: "MATH 140",
		},
		{
			name:   "trailing period in stored title",
			query:  "Tell me about Calculus 3",
			wantID: "MATH 222",
		},
		{
			name:   "partial query contained in a title",
			query:  "What is Foundations of Prog?",
			wantID: "COMP 202",
		},
		{
			name:   "title words out of order",
			query:  "What is Computer Science Introduction?",
			wantID: "COMP 250",
		},
		{
			name:   "no match",
			query:  "Tell me about underwater basket weaving",
			wantID: "",
		},
		{
			name:   "short fragment does not match",
			query:  "What is Prog?",
			wantID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, gotAlts := idx.Resolve(tt.query)
			if gotID != tt.wantID {
				t.Errorf("Resolve(%q) id = %q, want %q", tt.query, gotID, tt.wantID)
			}
			if !reflect.DeepEqual(gotAlts, tt.wantAlts) {
				t.Errorf("Resolve(%q) alternatives = %v, want %v", tt.query, gotAlts, tt.wantAlts)
			}
		})
	}
}

func TestTitleIndexSkipsPlaceholderTitles(t *testing.T) {
	idx := testTitleIndex(t)

	id, _ := idx.Resolve("Placeholder for undergraduate research project")
	if id != "" {
		t.Errorf("placeholder title should not resolve, got %q", id)
	}
}

func TestTitleIndexPreferredDepartmentFallback(t *testing.T) {
	// Neither candidate is in the preferred department: the
	// lexicographically first id wins.
	store := &fakeCourseLister{courses: []storage.Course{
		{ID: "PHYS 230", Title: "Dynamics of Simple Systems"},
		{ID: "MECH 210", Title: "Dynamics of Simple Systems"},
	}}
	idx := NewTitleIndex(store, "COMP", nil)
	if err := idx.Build(context.Background()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	id, alts := idx.Resolve("Dynamics of Simple Systems")
	if id != "MECH 210" {
		t.Errorf("default id = %q, want MECH 210", id)
	}
	if !reflect.DeepEqual(alts, []string{"MECH 210", "PHYS 230"}) {
		t.Errorf("alternatives = %v", alts)
	}
}
