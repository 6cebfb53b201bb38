package query

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/coursecraft/coursecraft-go/internal/logger"
	"github.com/coursecraft/coursecraft-go/internal/storage"
	"github.com/coursecraft/coursecraft-go/internal/stringutil"
)

// CourseLister provides the course rows the title index is built from.
// Implemented by storage.DB.
type CourseLister interface {
	GetAllCourses(ctx context.Context) ([]storage.Course, error)
}

// scaffoldPrefixes are question phrases stripped from the front of a query
// before title matching, ordered most-specific-first so "what are the
// prerequisites for" is removed before the bare "what is".
var scaffoldPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^what are the prerequisites for\s+`),
	regexp.MustCompile(`(?i)^what are the prereqs for\s+`),
	regexp.MustCompile(`(?i)^what do i need for\s+`),
	regexp.MustCompile(`(?i)^prerequisites for\s+`),
	regexp.MustCompile(`(?i)^prereqs for\s+`),
	regexp.MustCompile(`(?i)^requirements for\s+`),
	regexp.MustCompile(`(?i)^what is\s+`),
	regexp.MustCompile(`(?i)^tell me about\s+`),
	regexp.MustCompile(`(?i)^describe\s+`),
	regexp.MustCompile(`(?i)^when is\s+`),
	regexp.MustCompile(`(?i)^is\s+`),
}

var scaffoldSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s+about\??$`),
	regexp.MustCompile(`(?i)\s+offered\??$`),
	regexp.MustCompile(`(?i)\s+like\??$`),
	regexp.MustCompile(`\??$`),
}

// minTitleMatchLen guards substring matching against short titles and
// short cleaned queries producing false positives.
const minTitleMatchLen = 5

// TitleIndex resolves free-text course titles to course ids. It is built
// explicitly via Build and is safe for concurrent use; Resolve returns
// nothing until the first successful Build completes.
type TitleIndex struct {
	mu            sync.RWMutex
	byTitle       map[string]string   // normalized title -> default course id
	duplicates    map[string][]string // normalized title -> all course ids sharing it
	titlesByLen   []string            // normalized titles, longest first
	ready         bool
	store         CourseLister
	preferredDept string
	log           *logger.Logger
}

// NewTitleIndex creates an empty title index. preferredDept breaks ties
// when several courses share a title: a course in that department becomes
// the default resolution, the rest become alternatives.
func NewTitleIndex(store CourseLister, preferredDept string, log *logger.Logger) *TitleIndex {
	return &TitleIndex{
		store:         store,
		preferredDept: strings.ToUpper(preferredDept),
		log:           log,
	}
}

// normalizeTitle lowercases, trims, and strips a trailing period.
func normalizeTitle(title string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(title)), ".")
}

// Build loads all course titles into memory. It may be called again to
// rebuild the index after a catalog refresh; readers see either the old
// or the new index, never a partial one.
func (t *TitleIndex) Build(ctx context.Context) error {
	courses, err := t.store.GetAllCourses(ctx)
	if err != nil {
		return fmt.Errorf("title index: load courses: %w", err)
	}

	titleToCourses := make(map[string][]string)
	for _, c := range courses {
		if !c.HasResolvedTitle() {
			continue
		}
		normalized := normalizeTitle(c.Title)
		if normalized == "" {
			continue
		}
		titleToCourses[normalized] = append(titleToCourses[normalized], c.ID)
	}

	byTitle := make(map[string]string, len(titleToCourses))
	duplicates := make(map[string][]string)
	titlesByLen := make([]string, 0, len(titleToCourses))

	for normalized, ids := range titleToCourses {
		sort.Strings(ids)
		titlesByLen = append(titlesByLen, normalized)
		if len(ids) == 1 {
			byTitle[normalized] = ids[0]
			continue
		}
		duplicates[normalized] = ids
		byTitle[normalized] = t.pickDefault(ids)
	}

	sort.Slice(titlesByLen, func(i, j int) bool {
		if len(titlesByLen[i]) != len(titlesByLen[j]) {
			return len(titlesByLen[i]) > len(titlesByLen[j])
		}
		return titlesByLen[i] < titlesByLen[j]
	})

	t.mu.Lock()
	t.byTitle = byTitle
	t.duplicates = duplicates
	t.titlesByLen = titlesByLen
	t.ready = true
	t.mu.Unlock()

	if t.log != nil {
		t.log.Info("title index built",
			"titles", len(byTitle),
			"ambiguous_titles", len(duplicates))
	}
	return nil
}

// pickDefault chooses the default id for an ambiguous title: a course in
// the preferred department if any, else the lexicographically first id.
// ids must be sorted.
func (t *TitleIndex) pickDefault(ids []string) string {
	if t.preferredDept != "" {
		for _, id := range ids {
			if strings.HasPrefix(id, t.preferredDept+" ") {
				return id
			}
		}
	}
	return ids[0]
}

// Ready reports whether the index has been built at least once.
func (t *TitleIndex) Ready() bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

// Resolve matches a course title mentioned in the query and returns its
// course id, plus the full list of candidate ids when the title is shared
// by several courses. Match strategies, first hit wins:
//
//  1. exact match on the query with scaffolding phrases stripped
//  2. longest known title contained in the query
//  3. stripped query contained in a known title
//
// Returns ("", nil) when nothing matches or the index is not built.
func (t *TitleIndex) Resolve(query string) (courseID string, alternatives []string) {
	if t == nil {
		return "", nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.ready || len(t.byTitle) == 0 {
		return "", nil
	}

	cleaned := strings.ToLower(strings.TrimSpace(query))
	for _, p := range scaffoldPrefixes {
		cleaned = p.ReplaceAllString(cleaned, "")
	}
	for _, p := range scaffoldSuffixes {
		cleaned = p.ReplaceAllString(cleaned, "")
	}
	cleaned = normalizeTitle(cleaned)

	// 1. Exact match on the cleaned query
	if id, ok := t.byTitle[cleaned]; ok {
		return id, t.duplicates[cleaned]
	}

	// 2. Longest title contained in the query; longest first prefers the
	// more specific of two overlapping titles.
	queryNormalized := normalizeTitle(strings.ToLower(query))
	for _, title := range t.titlesByLen {
		if len(title) < minTitleMatchLen {
			break
		}
		if strings.Contains(queryNormalized, title) {
			return t.byTitle[title], t.duplicates[title]
		}
	}

	// 3. Cleaned query contained in a title (partial title mention)
	if len(cleaned) >= minTitleMatchLen {
		for _, title := range t.titlesByLen {
			if strings.Contains(title, cleaned) {
				return t.byTitle[title], t.duplicates[title]
			}
		}
	}

	// 4. Every word of the cleaned query appears in a title, any order
	// ("algorithms and data structures" for "data structures and
	// algorithms"). Single words are excluded: too many false hits.
	if len(cleaned) >= minTitleMatchLen && strings.Contains(cleaned, " ") {
		for _, title := range t.titlesByLen {
			if stringutil.ContainsAllWords(title, cleaned) {
				return t.byTitle[title], t.duplicates[title]
			}
		}
	}

	return "", nil
}
