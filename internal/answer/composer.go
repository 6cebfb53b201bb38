// Package answer turns retrieval results into user-facing responses.
// Structural questions (planning lists, prerequisite-chain verdicts,
// reverse lookups, disambiguation) are answered deterministically from
// the catalog; everything else is handed to the language model with a
// formatted evidence block.
package answer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/coursecraft/coursecraft-go/internal/logger"
	"github.com/coursecraft/coursecraft-go/internal/query"
	"github.com/coursecraft/coursecraft-go/internal/rag"
	"github.com/coursecraft/coursecraft-go/internal/storage"
)

// Response sources, recorded so callers can tell deterministic answers
// from model-generated ones.
const (
	SourcePlanning      = "planning"
	SourceChain         = "prereq_chain"
	SourceReverse       = "reverse_prereq"
	SourceClarification = "clarification"
	SourceModel         = "model"
	SourceCatalog       = "catalog"
)

// Generator produces prose from a question and an evidence block. A nil
// or disabled generator degrades Compose to catalog-only responses.
type Generator interface {
	Answer(ctx context.Context, question, evidence string) (string, error)
	IsEnabled() bool
}

// Response is a composed answer ready for the API surface.
type Response struct {
	Text   string `json:"text"`
	Source string `json:"source"`

	// NeedsClarification mirrors the retrieval flag so clients can offer
	// the alternatives as quick choices.
	NeedsClarification bool     `json:"needs_clarification,omitempty"`
	Alternatives       []string `json:"alternatives,omitempty"`

	// CourseIDs lists the courses used as evidence, in order.
	CourseIDs []string `json:"course_ids,omitempty"`
}

// Composer routes retrieval results to the right response strategy.
type Composer struct {
	store  storage.CourseRepository
	gen    Generator
	logger *logger.Logger
}

// NewComposer creates a composer. gen may be nil; responses then come
// from the catalog alone.
func NewComposer(store storage.CourseRepository, gen Generator, log *logger.Logger) *Composer {
	return &Composer{
		store:  store,
		gen:    gen,
		logger: log.WithModule("answer"),
	}
}

// Compose builds the response for a query and its retrieval result.
//
// Deterministic paths fire first: planning lists, prerequisite-chain
// verdicts ("should I take X before Y"), reverse lookups ("what requires
// X"), and clarification prompts for ambiguous titles. Only unresolved
// questions reach the language model.
func (c *Composer) Compose(ctx context.Context, rawQuery string, res *rag.RetrievalResult) (*Response, error) {
	if res == nil {
		res = &rag.RetrievalResult{}
	}
	q := query.ReplaceAliases(rawQuery)

	if res.IsPlanningQuery {
		return &Response{
			Text:      formatPlanning(res),
			Source:    SourcePlanning,
			CourseIDs: resultIDs(res),
		}, nil
	}

	if res.Intent == query.IntentPrereqChain {
		if codes := query.ExtractCourseIDs(q); len(codes) >= 2 {
			return c.chainVerdict(ctx, codes[0], codes[1])
		}
	}

	if res.Intent == query.IntentReversePrereq {
		if id := query.ExtractCourseID(q); id != "" {
			return c.reverseList(ctx, id, res)
		}
	}

	if res.NeedsClarification && len(res.Alternatives) > 0 {
		return c.clarification(ctx, rawQuery, res.Alternatives)
	}

	return c.generate(ctx, rawQuery, res)
}

// chainVerdict answers "should I take X before Y" by searching for X in
// Y's requirement sentences. The check is a flexible-separator substring
// match over free text, not a parse of the requirement logic, so OR
// groups and exemptions read as plain mentions.
func (c *Composer) chainVerdict(ctx context.Context, first, second string) (*Response, error) {
	target, err := c.store.GetCourse(ctx, second)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", second, err)
	}
	if target == nil {
		return &Response{
			Text:   fmt.Sprintf("I couldn't find **%s** in the database. Please check the course code.", second),
			Source: SourceChain,
		}, nil
	}

	firstCourse, err := c.store.GetCourse(ctx, first)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", first, err)
	}

	targetStr := CourseLabel(target)
	firstStr := labelOr(firstCourse, first)
	resp := &Response{Source: SourceChain, CourseIDs: []string{first, second}}

	if target.PrereqText == "" && target.CoreqText == "" {
		resp.Text = fmt.Sprintf(
			"I don't have prerequisite or corequisite information for **%s**.\n\n"+
				"The course exists in the database but the requirement data wasn't scraped. "+
				"Please check the [McGill eCalendar](https://www.mcgill.ca/study/2024-2025/courses/%s) directly.",
			targetStr, strings.ToLower(strings.ReplaceAll(second, " ", "-")))
		return resp, nil
	}

	mention := codeMention(first)
	switch {
	case mention.MatchString(target.PrereqText):
		resp.Text = fmt.Sprintf(
			"**Yes**, %s is a prerequisite for %s.\n\n**Prerequisites for %s:** %s",
			firstStr, targetStr, second, target.PrereqText)

	case mention.MatchString(target.CoreqText):
		text := fmt.Sprintf(
			"**%s is a corequisite** (not prerequisite) for %s.\n\n"+
				"This means you can take them at the same time, OR complete %s first.\n\n"+
				"**Corequisites for %s:** %s",
			firstStr, targetStr, firstStr, second, target.CoreqText)
		if target.PrereqText != "" {
			text += fmt.Sprintf("\n**Prerequisites for %s:** %s", second, target.PrereqText)
		}
		resp.Text = text

	default:
		var b strings.Builder
		fmt.Fprintf(&b, "**No**, %s is not listed as a direct prerequisite for %s.\n\n", firstStr, targetStr)
		if target.PrereqText != "" {
			fmt.Fprintf(&b, "**Prerequisites for %s:** %s\n", second, target.PrereqText)
		}
		if target.CoreqText != "" {
			fmt.Fprintf(&b, "**Corequisites for %s:** %s", second, target.CoreqText)
		}
		resp.Text = b.String()
	}
	return resp, nil
}

// reverseList renders the courses that require the given course, which
// the retriever has already fetched.
func (c *Composer) reverseList(ctx context.Context, courseID string, res *rag.RetrievalResult) (*Response, error) {
	if len(res.Results) == 0 {
		return &Response{
			Text:   fmt.Sprintf("No courses in the database list %s as a prerequisite.", courseID),
			Source: SourceReverse,
		}, nil
	}

	source, err := c.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", courseID, err)
	}

	lines := make([]string, 0, len(res.Results))
	for _, r := range res.Results {
		lines = append(lines, "• "+labelOr(r.Course, r.CourseID))
	}

	return &Response{
		Text:      fmt.Sprintf("After completing %s, you can take:\n\n%s", labelOr(source, courseID), strings.Join(lines, "\n")),
		Source:    SourceReverse,
		CourseIDs: resultIDs(res),
	}, nil
}

// clarification asks the user to pick between courses sharing a title.
func (c *Composer) clarification(ctx context.Context, rawQuery string, alternatives []string) (*Response, error) {
	lines := make([]string, 0, len(alternatives))
	for _, id := range alternatives {
		course, err := c.store.GetCourse(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", id, err)
		}
		if course != nil {
			lines = append(lines, fmt.Sprintf("- %s - %s", CourseLabel(course), course.Department))
		} else {
			lines = append(lines, "- "+id)
		}
	}

	example := strings.TrimSuffix(strings.TrimSpace(rawQuery), "?")
	text := fmt.Sprintf(
		"I found multiple courses with that title. Please specify which one you mean by including the course code:\n\n%s"+
			"\n\nFor example, you can ask: \"%s (%s)?\" or just ask about a specific course code.",
		strings.Join(lines, "\n"), example, alternatives[0])

	return &Response{
		Text:               text,
		Source:             SourceClarification,
		NeedsClarification: true,
		Alternatives:       alternatives,
	}, nil
}

// generate hands the question and a formatted evidence block to the
// model. Without a generator the evidence itself becomes the answer.
func (c *Composer) generate(ctx context.Context, rawQuery string, res *rag.RetrievalResult) (*Response, error) {
	evidence, err := c.gatherEvidence(ctx, res)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(evidence))
	for _, course := range evidence {
		ids = append(ids, course.ID)
	}

	if c.gen == nil || !c.gen.IsEnabled() {
		return c.catalogFallback(evidence, ids), nil
	}

	text, err := c.gen.Answer(ctx, rawQuery, ContextBlock(evidence))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &Response{Text: text, Source: SourceModel, CourseIDs: ids}, nil
}

// gatherEvidence resolves the retrieved courses to full records, then
// pulls in every course mentioned in their requirement sentences so the
// model can reason about the whole prerequisite chain.
func (c *Composer) gatherEvidence(ctx context.Context, res *rag.RetrievalResult) ([]*storage.Course, error) {
	seen := make(map[string]bool, len(res.Results))
	courses := make([]*storage.Course, 0, len(res.Results))

	for _, r := range res.Results {
		if seen[r.CourseID] {
			continue
		}
		seen[r.CourseID] = true

		course := r.Course
		if course == nil {
			var err error
			course, err = c.store.GetCourse(ctx, r.CourseID)
			if err != nil {
				return nil, fmt.Errorf("enrich %s: %w", r.CourseID, err)
			}
		}
		if course != nil {
			courses = append(courses, course)
		}
	}

	var mentioned []string
	for _, course := range courses {
		for _, text := range []string{course.PrereqText, course.CoreqText} {
			for _, id := range query.ExtractCourseIDs(text) {
				if !seen[id] {
					seen[id] = true
					mentioned = append(mentioned, id)
				}
			}
		}
	}
	for _, id := range mentioned {
		course, err := c.store.GetCourse(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("enrich %s: %w", id, err)
		}
		if course != nil {
			courses = append(courses, course)
		}
	}

	return courses, nil
}

// catalogFallback lists the evidence directly when no model is
// configured.
func (c *Composer) catalogFallback(evidence []*storage.Course, ids []string) *Response {
	if len(evidence) == 0 {
		return &Response{
			Text:   "I couldn't find any matching courses. Try mentioning a course code (like COMP 250) or a department.",
			Source: SourceCatalog,
		}
	}

	var b strings.Builder
	b.WriteString("Here's what the catalogue has:\n\n")
	for _, course := range evidence {
		b.WriteString(courseCard(course) + "\n\n")
	}
	return &Response{Text: b.String(), Source: SourceCatalog, CourseIDs: ids}
}

// codeMention matches a course code with flexible separators, so
// "COMP 250", "COMP-250", and "COMP250" all count as mentions.
func codeMention(courseID string) *regexp.Regexp {
	pattern := strings.ReplaceAll(regexp.QuoteMeta(courseID), " ", `[\s\-]?`)
	return regexp.MustCompile("(?i)" + pattern)
}

func labelOr(c *storage.Course, courseID string) string {
	if label := CourseLabel(c); label != "" {
		return label
	}
	return courseID
}

func resultIDs(res *rag.RetrievalResult) []string {
	ids := make([]string, 0, len(res.Results))
	for _, r := range res.Results {
		ids = append(ids, r.CourseID)
	}
	return ids
}
