package query

import (
	"regexp"
	"strconv"
	"strings"
)

// PlanningType is the category of a planning/recommendation query.
type PlanningType string

const (
	PlanningFirstSemester  PlanningType = "first_semester"
	PlanningAvailable      PlanningType = "available"
	PlanningByLevel        PlanningType = "by_level"
	PlanningRecommendation PlanningType = "recommendation"
)

// Plan holds the structured reading of a planning query. Type may be
// empty when only a department or term was recognized; the retriever uses
// such partial plans for context injection rather than a list response.
type Plan struct {
	Type       PlanningType
	Department string
	Term       string
	Level      int
	Completed  []string
}

type deptRule struct {
	pattern *regexp.Regexp
	dept    string
}

// deptRules maps subject mentions to department codes. Order matters:
// "software engineering" must be tested before the bare engineering
// patterns, and the first match wins.
var deptRules = []deptRule{
	// Computer Science & Engineering
	{regexp.MustCompile(`\b(cs|comp(?:uter)?(?:\s+science)?)\b`), "COMP"},
	{regexp.MustCompile(`\b(software\s+engineering?|swe)\b`), "ECSE"},
	{regexp.MustCompile(`\b(ecse|electrical(?:\s+engineering)?|ece)\b`), "ECSE"},
	{regexp.MustCompile(`\b(mech(?:anical)?(?:\s+engineering)?)\b`), "MECH"},
	{regexp.MustCompile(`\b(civil(?:\s+engineering)?|cive)\b`), "CIVE"},
	{regexp.MustCompile(`\b(mining(?:\s+engineering)?|mimi)\b`), "MIMI"},
	// Sciences
	{regexp.MustCompile(`\b(math(?:ematics)?)\b`), "MATH"},
	{regexp.MustCompile(`\b(phys(?:ics)?)\b`), "PHYS"},
	{regexp.MustCompile(`\b(chem(?:istry)?)\b`), "CHEM"},
	{regexp.MustCompile(`\b(biol(?:ogy)?)\b`), "BIOL"},
	{regexp.MustCompile(`\b(biochem(?:istry)?|bioc)\b`), "BIOC"},
	{regexp.MustCompile(`\b(neurosci(?:ence)?|nrsc)\b`), "NRSC"},
	{regexp.MustCompile(`\b(microbiol(?:ogy)?|immunol(?:ogy)?|mimm)\b`), "MIMM"},
	{regexp.MustCompile(`\b(anat(?:omy)?)\b`), "ANAT"},
	{regexp.MustCompile(`\b(physiol(?:ogy)?|phgy)\b`), "PHGY"},
	{regexp.MustCompile(`\b(atmospheric|oceanograph(?:y|ic)?|atoc)\b`), "ATOC"},
	{regexp.MustCompile(`\b(earth\s+(?:and\s+)?planetary|epsc)\b`), "EPSC"},
	{regexp.MustCompile(`\b(pharmac(?:y|ology)|phar)\b`), "PHAR"},
	// Social Sciences
	{regexp.MustCompile(`\b(econ(?:omics)?)\b`), "ECON"},
	{regexp.MustCompile(`\b(psyc(?:hology)?)\b`), "PSYC"},
	{regexp.MustCompile(`\b(soci(?:ology)?)\b`), "SOCI"},
	{regexp.MustCompile(`\b(anth(?:ropology)?)\b`), "ANTH"},
	{regexp.MustCompile(`\b(poli(?:tical)?\s*sci(?:ence)?|political\s+science)\b`), "POLI"},
	{regexp.MustCompile(`\b(geog(?:raphy)?)\b`), "GEOG"},
	{regexp.MustCompile(`\b(ling(?:uistics)?)\b`), "LING"},
	{regexp.MustCompile(`\b(kine(?:siology)?)\b`), "KINE"},
	{regexp.MustCompile(`\b(social\s+work|swrk)\b`), "SWRK"},
	{regexp.MustCompile(`\b(nutr(?:ition)?|diet(?:etics)?)\b`), "NUTR"},
	// Humanities
	{regexp.MustCompile(`\b(hist(?:ory)?)\b`), "HIST"},
	{regexp.MustCompile(`\b(english|engl)\b`), "ENGL"},
	{regexp.MustCompile(`\b(french\s+(?:language|lit|studies?)|fren)\b`), "FREN"},
	{regexp.MustCompile(`\b(phil(?:osophy)?)\b`), "PHIL"},
	{regexp.MustCompile(`\b(relig(?:ion|ious\s+stud(?:ies)?))\b`), "RELI"},
	{regexp.MustCompile(`\b(art\s+hist(?:ory)?|arth)\b`), "ARTH"},
	{regexp.MustCompile(`\b(music|musc)\b`), "MUSC"},
	// Professional / Other
	{regexp.MustCompile(`\b(mgmt|management)\b`), "MGMT"},
	{regexp.MustCompile(`\b(nurs(?:ing)?)\b`), "NURS"},
	{regexp.MustCompile(`\b(envir(?:onmental)?(?:\s+stud(?:ies)?)?|envi)\b`), "ENVI"},
	{regexp.MustCompile(`\b(educ(?:ation)?|edpe|edsl)\b`), "EDPE"},
}

var fallTerms = []string{"fall", "autumn", "first semester", "semester 1", "f1"}
var winterTerms = []string{"winter", "second semester", "semester 2", "w2"}

type levelRule struct {
	pattern *regexp.Regexp
	level   int // 0 means extract the hundreds digit from the match
}

// levelRules maps year wording to course levels. U0-U4 are the local
// year notations.
var levelRules = []levelRule{
	{regexp.MustCompile(`\bu2\b`), 200},
	{regexp.MustCompile(`\bu3\b`), 300},
	{regexp.MustCompile(`\bu4\b`), 400},
	{regexp.MustCompile(`\b(second|2nd|sophomore)\s*(year)?\b`), 200},
	{regexp.MustCompile(`\b(third|3rd|junior)\s*(year)?\b`), 300},
	{regexp.MustCompile(`\b(fourth|4th|senior)\s*(year)?\b`), 400},
	{regexp.MustCompile(`\b(graduate|grad|masters?|phd)\b`), 500},
	{regexp.MustCompile(`\b(\d)00[\s\-]?level\b`), 0},
}

var firstSemesterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bu0\b`),
	regexp.MustCompile(`\bu1\b`),
	regexp.MustCompile(`foundation\s+program`),
	regexp.MustCompile(`first\s*(semester|year)`),
	regexp.MustCompile(`start(ing)?\s*(with|out)`),
	regexp.MustCompile(`begin(ning|ner)?`),
	regexp.MustCompile(`intro(ductory|duction)?`),
	regexp.MustCompile(`entry[\s\-]?level`),
	regexp.MustCompile(`no\s*prereq`),
	regexp.MustCompile(`should\s+i\s+take\s+first`),
	regexp.MustCompile(`take\s+first`),
}

// availablePatterns only fire when at least two course codes appear, e.g.
// "after COMP 250 and MATH 133"; a single code reads better as a reverse
// prerequisite lookup.
var availablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(after|with|having|completed?|done|finished|took)\s+[A-Z]{3,4}\s*\d{3}.+[A-Z]{3,4}\s*\d{3}`),
	regexp.MustCompile(`(?i)available\s+to\s+(me|take)`),
}

var recommendationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`should\s+i\s+take`),
	regexp.MustCompile(`recommend`),
	regexp.MustCompile(`suggest`),
	regexp.MustCompile(`best\s+courses?`),
	regexp.MustCompile(`good\s+courses?`),
	regexp.MustCompile(`what\s+courses?\s+(should|to)`),
}

// DetectPlanning reads a query as a planning/recommendation request.
// Type priority: first_semester, then available, then by_level, then
// recommendation. When no type matches but a department or term was
// recognized, a partial Plan with empty Type is returned so the caller
// can still inject department context. Returns nil otherwise.
//
// Callers should skip planning detection entirely when the query mentions
// a real course code (see HasCourseCode).
func DetectPlanning(query string) *Plan {
	queryLower := strings.ToLower(query)
	plan := &Plan{}

	for _, rule := range deptRules {
		if rule.pattern.MatchString(queryLower) {
			plan.Department = rule.dept
			break
		}
	}

	if containsAny(queryLower, fallTerms) {
		plan.Term = "fall"
	} else if containsAny(queryLower, winterTerms) {
		plan.Term = "winter"
	} else if strings.Contains(queryLower, "summer") {
		plan.Term = "summer"
	}

	for _, rule := range levelRules {
		m := rule.pattern.FindStringSubmatch(queryLower)
		if m == nil {
			continue
		}
		if rule.level == 0 {
			digit, err := strconv.Atoi(m[1])
			if err == nil {
				plan.Level = digit * 100
			}
		} else {
			plan.Level = rule.level
		}
		break
	}

	if matchesAny(queryLower, firstSemesterPatterns) {
		plan.Type = PlanningFirstSemester
		return plan
	}

	if matchesAny(query, availablePatterns) {
		plan.Type = PlanningAvailable
		plan.Completed = ExtractCourseIDs(query)
		return plan
	}

	if plan.Level != 0 {
		plan.Type = PlanningByLevel
		return plan
	}

	if matchesAny(queryLower, recommendationPatterns) {
		plan.Type = PlanningRecommendation
		return plan
	}

	// Partial plan: lets the retriever inject department courses for
	// queries like "What COMP courses are offered in fall?" that match no
	// specific planning pattern.
	if plan.Department != "" || plan.Term != "" {
		return plan
	}

	return nil
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
