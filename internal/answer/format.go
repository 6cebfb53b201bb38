package answer

import (
	"fmt"
	"strings"

	"github.com/coursecraft/coursecraft-go/internal/storage"
)

// cardDescriptionLimit truncates long descriptions in list-style cards so
// planning responses stay scannable.
const cardDescriptionLimit = 150

// CourseLabel formats a course as "CODE (Title)", or just "CODE" when the
// title is missing or still a scrape placeholder. Never invents a title.
func CourseLabel(c *storage.Course) string {
	if c == nil {
		return ""
	}
	if c.HasResolvedTitle() {
		return fmt.Sprintf("%s (%s)", c.ID, c.Title)
	}
	return c.ID
}

// formatOffering renders the offered terms of a course ("Fall, Winter").
func formatOffering(c *storage.Course) string {
	var terms []string
	if c.OfferedFall {
		terms = append(terms, "Fall")
	}
	if c.OfferedWinter {
		terms = append(terms, "Winter")
	}
	if c.OfferedSummer {
		terms = append(terms, "Summer")
	}
	if len(terms) == 0 {
		return "Not specified"
	}
	return strings.Join(terms, ", ")
}

// courseCard renders one course as a markdown list entry for planning and
// catalog-style responses.
func courseCard(c *storage.Course) string {
	prereqs := c.PrereqText
	if prereqs == "" {
		prereqs = "None"
	}

	desc := c.Description
	if len(desc) > cardDescriptionLimit {
		desc = desc[:cardDescriptionLimit] + "..."
	}

	title := ""
	if c.HasResolvedTitle() {
		title = fmt.Sprintf(" (%s)", c.Title)
	}

	return fmt.Sprintf("**%s**%s\n   - Prereqs: %s\n   - Offered: %s\n   - %s",
		c.ID, title, prereqs, formatOffering(c), desc)
}

// ContextBlock renders the evidence string handed to the answer model:
// one block per course with description, requirement sentences, and
// offered terms, separated by blank lines.
func ContextBlock(courses []*storage.Course) string {
	blocks := make([]string, 0, len(courses))
	for _, c := range courses {
		if c == nil {
			continue
		}

		desc := c.Description
		if desc == "" || desc == "N/A" {
			desc = "No description available."
		}
		prereqs := c.PrereqText
		if prereqs == "" {
			prereqs = "None"
		}
		coreqs := c.CoreqText
		if coreqs == "" {
			coreqs = "None"
		}

		blocks = append(blocks, fmt.Sprintf(
			"%s - %g credits, %s\nDescription: %s\nPrereqs: %s\nCoreqs: %s\nOffered: %s",
			CourseLabel(c), c.Credits, c.Department, desc, prereqs, coreqs, formatOffering(c)))
	}
	return strings.Join(blocks, "\n\n")
}
