package warmup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coursecraft/coursecraft-go/internal/logger"
	"github.com/coursecraft/coursecraft-go/internal/query"
	"github.com/coursecraft/coursecraft-go/internal/rag"
	"github.com/coursecraft/coursecraft-go/internal/scraper"
	"github.com/coursecraft/coursecraft-go/internal/scraper/ecalendar"
	"github.com/coursecraft/coursecraft-go/internal/storage"
)

func TestParseDepartments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty string", "", []string{}},
		{"single department", "comp", []string{"COMP"}},
		{"multiple departments", "COMP,MATH,ECSE", []string{"COMP", "MATH", "ECSE"}},
		{"with spaces", "comp, math , ecse", []string{"COMP", "MATH", "ECSE"}},
		{"with empty items", "COMP,,MATH", []string{"COMP", "MATH"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDepartments(tt.input)
			if len(got) != len(tt.want) {
				t.Errorf("ParseDepartments() got %v departments, want %v", len(got), len(tt.want))
				return
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseDepartments()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func newWarmupCatalogueServer(t *testing.T) *httptest.Server {
	t.Helper()

	pages := map[string]string{
		"/courses/": `<html><body>
<a href="/courses/comp-202">COMP 202</a>
<a href="/courses/comp-250">COMP 250</a>
</body></html>`,
		"/courses/comp-202": `<html>
<head><title>COMP 202. Foundations of Programming. | Course Catalogue</title></head>
<body>
<div class="section__content">Introduction to computer programming.</div>
<div class="text detail-credits">Credits: 3.0</div>
<div class="detail-terms_offered"><span class="value">Fall, Winter</span></div>
</body></html>`,
		"/courses/comp-250": `<html>
<head><title>COMP 250. Introduction to Computer Science. | Course Catalogue</title></head>
<body>
<div class="section__content">Data structures and algorithms.</div>
<div class="text detail-credits">Credits: 3.0</div>
<div class="detail-note_text"><ul><li>Prerequisite: COMP 202.</li></ul></div>
</body></html>`,
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(page))
	}))
}

func newWarmupDeps(t *testing.T, serverURL string) Deps {
	t.Helper()

	db, err := storage.NewTestDB()
	if err != nil {
		t.Fatalf("NewTestDB() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	log := logger.New("error")
	client := scraper.NewClient(2*time.Second, 5, 0, 0, 1)
	client.SetBaseURLs(scraper.DomainCatalogue, []string{serverURL})

	return Deps{
		DB:      db,
		Scraper: ecalendar.New(client, nil, log),
		Titles:  query.NewTitleIndex(db, "COMP", log),
		BM25:    rag.NewBM25Index(log),
	}
}

func TestRunScrapesAndIndexes(t *testing.T) {
	srv := newWarmupCatalogueServer(t)
	defer srv.Close()

	deps := newWarmupDeps(t, srv.URL)
	log := logger.New("error")

	stats, err := Run(context.Background(), deps, log, Options{Departments: []string{"COMP"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := stats.Courses.Load(); got != 2 {
		t.Errorf("Courses = %d, want 2", got)
	}
	if got := stats.Edges.Load(); got != 1 {
		t.Errorf("Edges = %d, want 1", got)
	}
	if got := stats.BM25Docs.Load(); got != 2 {
		t.Errorf("BM25Docs = %d, want 2", got)
	}

	course, err := deps.DB.GetCourse(context.Background(), "COMP 250")
	if err != nil {
		t.Fatalf("GetCourse() error = %v", err)
	}
	if course == nil || course.Title != "Introduction to Computer Science" {
		t.Errorf("stored course = %+v", course)
	}

	prereqs, err := deps.DB.GetPrereqs(context.Background(), "COMP 250")
	if err != nil {
		t.Fatalf("GetPrereqs() error = %v", err)
	}
	if len(prereqs) != 1 || prereqs[0].SrcCourseID != "COMP 202" {
		t.Errorf("prereqs = %+v", prereqs)
	}
}

func TestRunEmptyCatalogSkipsIndexes(t *testing.T) {
	db, err := storage.NewTestDB()
	if err != nil {
		t.Fatalf("NewTestDB() error = %v", err)
	}
	defer db.Close()

	log := logger.New("error")
	deps := Deps{DB: db, BM25: rag.NewBM25Index(log)}

	stats, err := Run(context.Background(), deps, log, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := stats.BM25Docs.Load(); got != 0 {
		t.Errorf("BM25Docs = %d, want 0", got)
	}
}

func TestRunResetClearsCatalog(t *testing.T) {
	srv := newWarmupCatalogueServer(t)
	defer srv.Close()

	deps := newWarmupDeps(t, srv.URL)
	log := logger.New("error")

	if err := deps.DB.SaveCourse(context.Background(), &storage.Course{
		ID:         "COMP 999",
		Title:      "Stale Course",
		Department: "COMP",
	}); err != nil {
		t.Fatalf("SaveCourse() error = %v", err)
	}

	if _, err := Run(context.Background(), deps, log, Options{
		Departments: []string{"COMP"},
		Reset:       true,
	}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	stale, err := deps.DB.GetCourse(context.Background(), "COMP 999")
	if err != nil {
		t.Fatalf("GetCourse() error = %v", err)
	}
	if stale != nil {
		t.Errorf("stale course survived reset: %+v", stale)
	}

	count, err := deps.DB.CountCourses(context.Background())
	if err != nil {
		t.Fatalf("CountCourses() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountCourses() = %d, want 2", count)
	}
}

func TestRunAllDepartmentsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	deps := newWarmupDeps(t, srv.URL)
	log := logger.New("error")

	// The scrape fails but Run still completes with an empty catalog.
	stats, err := Run(context.Background(), deps, log, Options{Departments: []string{"COMP"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := stats.Courses.Load(); got != 0 {
		t.Errorf("Courses = %d, want 0", got)
	}
}

func TestRunInBackgroundMarksReady(t *testing.T) {
	srv := newWarmupCatalogueServer(t)
	defer srv.Close()

	deps := newWarmupDeps(t, srv.URL)
	log := logger.New("error")
	readiness := NewReadinessState(30 * time.Second)

	RunInBackground(context.Background(), deps, readiness, log, Options{Departments: []string{"COMP"}})

	deadline := time.After(10 * time.Second)
	for !readiness.IsReady() {
		select {
		case <-deadline:
			t.Fatal("readiness was never marked")
		case <-time.After(50 * time.Millisecond):
		}
	}
	if !readiness.WarmupCompleted() {
		t.Error("WarmupCompleted() = false after background warmup")
	}
}
