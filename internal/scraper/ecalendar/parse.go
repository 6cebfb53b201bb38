// Package ecalendar scrapes the McGill course catalogue into course
// records and derived prerequisite edges.
package ecalendar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/coursecraft/coursecraft-go/internal/storage"
)

// coursesPath is the catalogue index listing every course page.
const coursesPath = "/courses/"

var (
	// courseLinkRegex matches catalogue course hrefs like
	// "/courses/comp-250" or "/courses/comp-250/index.html".
	courseLinkRegex = regexp.MustCompile(`(?i)^/courses/([a-z]{3,4})-(\d{3}[a-z]?)(/index\.html)?/?$`)

	// titleDotRegex matches "COMP 273. Introduction to Computer Systems. | ..."
	titleDotRegex = regexp.MustCompile(`^([A-Z]{3,4})[- ]?(\d{3}[A-Z]?)\.\s+(.+?)\s+\|`)

	// titleDashRegex matches "COMP 273 - Introduction to Computer Systems | ..."
	titleDashRegex = regexp.MustCompile(`^([A-Z]{3,4})[- ]?(\d{3}[A-Z]?)\s*[-–]\s*(.+?)\s+\|`)

	creditsRegex = regexp.MustCompile(`(\d+\.?\d*)`)

	prereqLabelRegex = regexp.MustCompile(`(?i)^Prerequisite[s()\s]*:`)
	coreqLabelRegex  = regexp.MustCompile(`(?i)^Corequisite[s()\s]*:`)

	// mentionRegex extracts course codes from requirement sentences.
	mentionRegex = regexp.MustCompile(`([A-Z]{3,4})[- ]?(\d{3})`)
)

// titleCaser normalizes shouty all-caps titles some older pages carry.
var titleCaser = cases.Title(language.English)

// parseCourseLinks extracts every unique course page URL from the
// catalogue index, normalized without the trailing /index.html.
func parseCourseLinks(doc *goquery.Document, baseURL string) []string {
	var links []string
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := courseLinkRegex.FindStringSubmatch(href)
		if m == nil {
			return
		}

		code := strings.ToUpper(m[1]) + " " + strings.ToUpper(m[2])
		if seen[code] {
			return
		}
		seen[code] = true
		links = append(links, fmt.Sprintf("%s/courses/%s-%s", baseURL, strings.ToLower(m[1]), strings.ToLower(m[2])))
	})

	return links
}

// parseCoursePage extracts a course record and its derived requirement
// edges from a catalogue course page. pageURL is used as an id fallback
// when the title tag is missing or unparseable.
func parseCoursePage(doc *goquery.Document, pageURL string) (*storage.Course, []*storage.PrereqEdge) {
	course := &storage.Course{}

	pageTitle := strings.TrimSpace(doc.Find("title").First().Text())
	if m := titleDotRegex.FindStringSubmatch(pageTitle); m != nil {
		course.ID = m[1] + " " + m[2]
		course.Title = cleanTitle(m[3])
	} else if m := titleDashRegex.FindStringSubmatch(pageTitle); m != nil {
		course.ID = m[1] + " " + m[2]
		course.Title = cleanTitle(m[3])
	}

	if course.ID == "" && pageURL != "" {
		if m := courseLinkRegex.FindStringSubmatch(pathOf(pageURL)); m != nil {
			course.ID = strings.ToUpper(m[1]) + " " + strings.ToUpper(m[2])
		}
	}
	if course.ID == "" {
		return nil, nil
	}
	course.Department = strings.Fields(course.ID)[0]

	course.Description = strings.TrimSpace(doc.Find("div.section__content").First().Text())

	creditsText := doc.Find("div.detail-credits").First().Text()
	if m := creditsRegex.FindStringSubmatch(creditsText); m != nil {
		course.Credits, _ = strconv.ParseFloat(m[1], 64)
	}

	terms := doc.Find("div.detail-terms_offered span.value").First().Text()
	course.OfferedFall = strings.Contains(terms, "Fall")
	course.OfferedWinter = strings.Contains(terms, "Winter")
	course.OfferedSummer = strings.Contains(terms, "Summer")

	course.PrereqText = findRequirementText(doc, prereqLabelRegex)
	course.CoreqText = findRequirementText(doc, coreqLabelRegex)

	var edges []*storage.PrereqEdge
	edges = append(edges, requirementEdges(course.PrereqText, course.ID, storage.EdgeKindPrereq)...)
	edges = append(edges, requirementEdges(course.CoreqText, course.ID, storage.EdgeKindCoreq)...)

	return course, edges
}

// findRequirementText locates the requirement sentence matching the
// label ("Prerequisite(s):" or "Corequisite(s):"). Newer pages carry it
// as a note list item; older ones as a loose paragraph.
func findRequirementText(doc *goquery.Document, label *regexp.Regexp) string {
	var text string

	doc.Find("div.detail-note_text li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		t := strings.TrimSpace(li.Text())
		if label.MatchString(t) {
			text = t
			return false
		}
		return true
	})
	if text != "" {
		return text
	}

	doc.Find("li, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := strings.TrimSpace(s.Text())
		if label.MatchString(t) {
			text = t
			return false
		}
		return true
	})
	return text
}

// requirementEdges derives structural edges from a requirement sentence.
// Every mentioned code becomes an edge; OR groups and exemptions are not
// distinguished, which matches how reverse lookups consume the edges.
func requirementEdges(text, dstID, kind string) []*storage.PrereqEdge {
	if text == "" {
		return nil
	}

	var edges []*storage.PrereqEdge
	seen := make(map[string]bool)
	for _, m := range mentionRegex.FindAllStringSubmatch(text, -1) {
		src := m[1] + " " + m[2]
		if src == dstID || seen[src] {
			continue
		}
		seen[src] = true
		edges = append(edges, &storage.PrereqEdge{
			SrcCourseID: src,
			DstCourseID: dstID,
			Kind:        kind,
		})
	}
	return edges
}

// cleanTitle strips the trailing period the catalogue puts after titles
// and normalizes all-caps titles to title case.
func cleanTitle(title string) string {
	title = strings.TrimSuffix(strings.TrimSpace(title), ".")
	if title != "" && title == strings.ToUpper(title) && strings.ContainsAny(title, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		title = titleCaser.String(strings.ToLower(title))
	}
	return title
}

// pathOf returns the path component of a URL without parsing errors
// mattering: everything after the host.
func pathOf(rawURL string) string {
	if i := strings.Index(rawURL, "://"); i >= 0 {
		rawURL = rawURL[i+3:]
	}
	if i := strings.Index(rawURL, "/"); i >= 0 {
		return rawURL[i:]
	}
	return ""
}
