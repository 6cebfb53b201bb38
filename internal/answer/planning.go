package answer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coursecraft/coursecraft-go/internal/query"
	"github.com/coursecraft/coursecraft-go/internal/rag"
	"github.com/coursecraft/coursecraft-go/internal/storage"
)

// List caps per planning type. "Available after completing" lists run
// longer because they enumerate an unlock set rather than a starting
// point.
const (
	firstSemesterRecommendedCap = 5
	firstSemesterOthersCap      = 3
	byLevelCap                  = 8
	availableCap                = 10
	recommendationCap           = 6
)

// formatPlanning renders a structured planning list as markdown. The
// course records arrive fully populated from the planning fetch.
func formatPlanning(res *rag.RetrievalResult) string {
	courses := planCourses(res)
	if len(courses) == 0 {
		return "I couldn't find any courses matching your criteria. Try being more specific about the department or term."
	}

	plan := res.Plan
	if plan == nil {
		plan = &query.Plan{Type: res.PlanningType}
	}

	switch res.PlanningType {
	case query.PlanningFirstSemester:
		return formatFirstSemester(plan, courses)
	case query.PlanningByLevel:
		return formatByLevel(plan, courses)
	case query.PlanningAvailable:
		return formatAvailable(plan, courses)
	default:
		return formatRecommendation(courses)
	}
}

func planCourses(res *rag.RetrievalResult) []*storage.Course {
	courses := make([]*storage.Course, 0, len(res.Results))
	for _, r := range res.Results {
		if r.Course != nil {
			courses = append(courses, r.Course)
		}
	}
	return courses
}

// formatFirstSemester splits entry-level courses into 100-200 level
// recommendations and higher-numbered options.
func formatFirstSemester(plan *query.Plan, courses []*storage.Course) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here are entry-level %s courses with no prerequisites%s:\n\n",
		departmentName(plan.Department), termSuffix(plan.Term, " in "))

	var recommended, others []*storage.Course
	for _, c := range courses {
		if courseLevel(c.ID) < 300 {
			recommended = append(recommended, c)
		} else {
			others = append(others, c)
		}
	}

	if len(recommended) > 0 {
		b.WriteString("**Recommended for beginners:**\n\n")
		for _, c := range capCourses(recommended, firstSemesterRecommendedCap) {
			b.WriteString(courseCard(c) + "\n\n")
		}
	}
	if len(others) > 0 && len(recommended) < 3 {
		b.WriteString("\n**Other options:**\n\n")
		for _, c := range capCourses(others, firstSemesterOthersCap) {
			b.WriteString(courseCard(c) + "\n\n")
		}
	}

	if plan.Department == "COMP" {
		b.WriteString("\n💡 **Tip:** COMP 202 or COMP 208 are typically the first programming courses, followed by COMP 250.")
	}
	return b.String()
}

func formatByLevel(plan *query.Plan, courses []*storage.Course) string {
	var b strings.Builder
	levelStr := ""
	if plan.Level > 0 {
		levelStr = fmt.Sprintf("%d-level ", plan.Level)
	}
	fmt.Fprintf(&b, "Here are %s%s courses%s:\n\n",
		levelStr, departmentName(plan.Department), termSuffix(plan.Term, " offered in "))

	for _, c := range capCourses(courses, byLevelCap) {
		b.WriteString(courseCard(c) + "\n\n")
	}
	return b.String()
}

func formatAvailable(plan *query.Plan, courses []*storage.Course) string {
	completedStr := "your courses"
	if len(plan.Completed) > 0 {
		completedStr = strings.Join(plan.Completed, ", ")
	}
	deptFilter := ""
	if plan.Department != "" {
		deptFilter = " in " + plan.Department
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on completing %s, here are courses you can take%s%s:\n\n",
		completedStr, deptFilter, termSuffix(plan.Term, " for "))

	for _, c := range capCourses(courses, availableCap) {
		b.WriteString(courseCard(c) + "\n\n")
	}
	if len(courses) > availableCap {
		fmt.Fprintf(&b, "\n...and %d more courses available.", len(courses)-availableCap)
	}
	return b.String()
}

func formatRecommendation(courses []*storage.Course) string {
	var b strings.Builder
	b.WriteString("Here are some courses that might interest you:\n\n")
	for _, c := range capCourses(courses, recommendationCap) {
		b.WriteString(courseCard(c) + "\n\n")
	}
	return b.String()
}

func departmentName(dept string) string {
	if dept == "" {
		return "various departments"
	}
	return dept
}

// termSuffix renders " in Fall" / " offered in Winter" style fragments,
// or "" when no term was detected.
func termSuffix(term, prefix string) string {
	if term == "" {
		return ""
	}
	return prefix + strings.ToUpper(term[:1]) + term[1:]
}

// courseLevel parses the hundreds band of a course number ("COMP 250" →
// 250). Unparseable codes sort as high-level so they never crowd the
// beginner list.
func courseLevel(courseID string) int {
	fields := strings.Fields(courseID)
	if len(fields) < 2 || len(fields[1]) < 3 {
		return 999
	}
	n, err := strconv.Atoi(fields[1][:3])
	if err != nil {
		return 999
	}
	return n
}

func capCourses(courses []*storage.Course, n int) []*storage.Course {
	if len(courses) > n {
		return courses[:n]
	}
	return courses
}
