package query

import (
	"regexp"
	"strings"
)

// Intent is the coarse question type of a course query.
type Intent string

const (
	// IntentPrereq asks what a course requires ("prerequisites for X").
	// This is the default when nothing else matches.
	IntentPrereq Intent = "prereq"

	// IntentReversePrereq asks what requires a course ("what can I take
	// after X", "which courses require X").
	IntentReversePrereq Intent = "reverse_prereq"

	// IntentPrereqChain asks about ordering between two courses ("should
	// I take X before Y").
	IntentPrereqChain Intent = "prereq_chain"
)

// Chain patterns are checked before reverse patterns: "should I take X
// before Y" contains "take ... after"-adjacent wording that would
// otherwise misclassify as a reverse lookup.
var chainPatterns = []*regexp.Regexp{
	regexp.MustCompile(`should i take .+ before`),
	regexp.MustCompile(`do i need .+ before`),
	regexp.MustCompile(`is .+ required (for|before)`),
	regexp.MustCompile(`take .+ before .+\?`),
	regexp.MustCompile(`need .+ (for|to take)`),
}

var reversePatterns = []*regexp.Regexp{
	regexp.MustCompile(`what can i take after`),
	regexp.MustCompile(`what should i take after`),
	regexp.MustCompile(`what courses? require`),
	regexp.MustCompile(`i finished .+,? what'?s next`),
	regexp.MustCompile(`after .+,? what`),
	regexp.MustCompile(`courses? that need`),
	regexp.MustCompile(`what('s| is) next after`),
	regexp.MustCompile(`take after`),
}

// ClassifyIntent determines the question type from ordered pattern
// families. Chain patterns win over reverse patterns; anything else is a
// plain prerequisite question.
func ClassifyIntent(query string) Intent {
	queryLower := strings.ToLower(query)

	for _, p := range chainPatterns {
		if p.MatchString(queryLower) {
			return IntentPrereqChain
		}
	}
	for _, p := range reversePatterns {
		if p.MatchString(queryLower) {
			return IntentReversePrereq
		}
	}
	return IntentPrereq
}

var prereqsForPhrases = []string{
	"prerequisite for", "prerequisites for", "prereqs for",
	"what do i need for", "requirements for",
}

var whatRequiresPhrases = []string{
	"require", "need", "courses that use", "after", "next",
	"finished", "completed", "done with", "taken", "what can i take",
}

// IsAskingPrereqsFor reports whether the query asks for a course's own
// prerequisites ("what are the prerequisites for X").
func IsAskingPrereqsFor(query string) bool {
	queryLower := strings.ToLower(query)
	for _, phrase := range prereqsForPhrases {
		if strings.Contains(queryLower, phrase) {
			return true
		}
	}
	return false
}

// IsAskingWhatRequires reports whether the query asks which courses list
// a given course as a prerequisite ("which courses require X"). Queries
// containing "for" are excluded so "prerequisites for X" never lands
// here.
func IsAskingWhatRequires(query string) bool {
	queryLower := strings.ToLower(query)
	if strings.Contains(queryLower, "for") {
		return false
	}
	for _, phrase := range whatRequiresPhrases {
		if strings.Contains(queryLower, phrase) {
			return true
		}
	}
	return false
}
