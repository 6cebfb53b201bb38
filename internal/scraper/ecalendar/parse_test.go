package ecalendar

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/coursecraft/coursecraft-go/internal/storage"
)

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse HTML: %v", err)
	}
	return doc
}

const catalogIndexHTML = `<html><body>
<a href="/courses/comp-250">COMP 250</a>
<a href="/courses/comp-250/index.html">COMP 250 again</a>
<a href="/courses/math-140/">MATH 140</a>
<a href="/courses/ecse-223">ECSE 223</a>
<a href="/courses/">all courses</a>
<a href="/programs/cs-major">not a course</a>
<a href="/courses/comp-250d1-extra">malformed</a>
</body></html>`

func TestParseCourseLinks(t *testing.T) {
	doc := parseHTML(t, catalogIndexHTML)

	links := parseCourseLinks(doc, "https://coursecatalogue.mcgill.ca")
	want := []string{
		"https://coursecatalogue.mcgill.ca/courses/comp-250",
		"https://coursecatalogue.mcgill.ca/courses/math-140",
		"https://coursecatalogue.mcgill.ca/courses/ecse-223",
	}

	if len(links) != len(want) {
		t.Fatalf("parseCourseLinks() = %v, want %v", links, want)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("links[%d] = %q, want %q", i, links[i], want[i])
		}
	}
}

const coursePageHTML = `<html>
<head><title>COMP 273. Introduction to Computer Systems. | Course Catalogue</title></head>
<body>
<div class="section__content">Number representations, combinational and sequential circuits, MIPS assembly.</div>
<div class="text detail-credits">Credits: 3.0</div>
<div class="detail-terms_offered"><span class="value">Fall, Winter</span></div>
<div class="detail-note_text"><ul>
<li>Prerequisite: COMP 250.</li>
<li>Corequisite: COMP 206 or COMP-208.</li>
<li>3 hours of lectures.</li>
</ul></div>
</body></html>`

func TestParseCoursePage(t *testing.T) {
	doc := parseHTML(t, coursePageHTML)

	course, edges := parseCoursePage(doc, "https://coursecatalogue.mcgill.ca/courses/comp-273")
	if course == nil {
		t.Fatal("parseCoursePage() returned nil course")
	}

	if course.ID != "COMP 273" {
		t.Errorf("ID = %q", course.ID)
	}
	if course.Title != "Introduction to Computer Systems" {
		t.Errorf("Title = %q", course.Title)
	}
	if course.Department != "COMP" {
		t.Errorf("Department = %q", course.Department)
	}
	if course.Credits != 3.0 {
		t.Errorf("Credits = %v", course.Credits)
	}
	if !course.OfferedFall || !course.OfferedWinter || course.OfferedSummer {
		t.Errorf("terms = fall:%v winter:%v summer:%v", course.OfferedFall, course.OfferedWinter, course.OfferedSummer)
	}
	if course.PrereqText != "Prerequisite: COMP 250." {
		t.Errorf("PrereqText = %q", course.PrereqText)
	}
	if course.CoreqText != "Corequisite: COMP 206 or COMP-208." {
		t.Errorf("CoreqText = %q", course.CoreqText)
	}
	if !strings.Contains(course.Description, "MIPS assembly") {
		t.Errorf("Description = %q", course.Description)
	}

	wantEdges := []*storage.PrereqEdge{
		{SrcCourseID: "COMP 250", DstCourseID: "COMP 273", Kind: storage.EdgeKindPrereq},
		{SrcCourseID: "COMP 206", DstCourseID: "COMP 273", Kind: storage.EdgeKindCoreq},
		{SrcCourseID: "COMP 208", DstCourseID: "COMP 273", Kind: storage.EdgeKindCoreq},
	}
	if len(edges) != len(wantEdges) {
		t.Fatalf("edges = %d, want %d", len(edges), len(wantEdges))
	}
	for i, want := range wantEdges {
		if *edges[i] != *want {
			t.Errorf("edges[%d] = %+v, want %+v", i, edges[i], want)
		}
	}
}

func TestParseCoursePageDashTitle(t *testing.T) {
	doc := parseHTML(t, `<html><head><title>MATH 140 - Calculus 1 | Course Catalogue</title></head><body></body></html>`)

	course, edges := parseCoursePage(doc, "")
	if course == nil {
		t.Fatal("parseCoursePage() returned nil course")
	}
	if course.ID != "MATH 140" || course.Title != "Calculus 1" {
		t.Errorf("course = %q / %q", course.ID, course.Title)
	}
	if len(edges) != 0 {
		t.Errorf("edges = %v, want none", edges)
	}
}

func TestParseCoursePageIDFromURL(t *testing.T) {
	doc := parseHTML(t, `<html><head><title>Course Catalogue</title></head><body></body></html>`)

	course, _ := parseCoursePage(doc, "https://coursecatalogue.mcgill.ca/courses/ecse-223")
	if course == nil {
		t.Fatal("parseCoursePage() returned nil course")
	}
	if course.ID != "ECSE 223" {
		t.Errorf("ID = %q, want fallback from URL", course.ID)
	}
	if course.Department != "ECSE" {
		t.Errorf("Department = %q", course.Department)
	}
}

func TestParseCoursePageNoID(t *testing.T) {
	doc := parseHTML(t, `<html><head><title>Course Catalogue</title></head><body></body></html>`)

	course, edges := parseCoursePage(doc, "")
	if course != nil || edges != nil {
		t.Errorf("parseCoursePage() = (%v, %v), want (nil, nil)", course, edges)
	}
}

func TestParseCoursePageLooseRequirementParagraph(t *testing.T) {
	// Older pages carry the requirement as a plain paragraph instead of
	// a note list.
	doc := parseHTML(t, `<html>
<head><title>COMP 251. Algorithms and Data Structures. | Course Catalogue</title></head>
<body><p>Prerequisites: COMP 250; MATH 235 or MATH 240.</p></body></html>`)

	course, edges := parseCoursePage(doc, "")
	if course == nil {
		t.Fatal("parseCoursePage() returned nil course")
	}
	if course.PrereqText != "Prerequisites: COMP 250; MATH 235 or MATH 240." {
		t.Errorf("PrereqText = %q", course.PrereqText)
	}
	if len(edges) != 3 {
		t.Errorf("edges = %d, want 3", len(edges))
	}
}

func TestRequirementEdgesDedupAndSelf(t *testing.T) {
	edges := requirementEdges("Prerequisites: COMP 250, COMP 250, and COMP 273.", "COMP 273", storage.EdgeKindPrereq)
	if len(edges) != 1 {
		t.Fatalf("edges = %v, want only COMP 250", edges)
	}
	if edges[0].SrcCourseID != "COMP 250" {
		t.Errorf("edge src = %q", edges[0].SrcCourseID)
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Introduction to Computer Systems.", "Introduction to Computer Systems"},
		{"OPERATING SYSTEMS", "Operating Systems"},
		{"  Calculus 1 ", "Calculus 1"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cleanTitle(tt.in); got != tt.want {
			t.Errorf("cleanTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
