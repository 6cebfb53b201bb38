// Package query implements query understanding for course questions:
// nickname normalization, course-code extraction, title resolution,
// intent classification, and planning-query detection. All functions are
// deterministic; no network or model calls happen here.
package query

import (
	"regexp"
	"sort"
)

// courseAliases maps common course nicknames to canonical codes.
// Students rarely type "MATH 141"; they type "calc 2".
var courseAliases = map[string]string{
	// Math courses
	"calc 1": "MATH 140", "calculus 1": "MATH 140",
	"calc 2": "MATH 141", "calculus 2": "MATH 141",
	"calc 3": "MATH 222", "calculus 3": "MATH 222",
	"linear algebra": "MATH 133", "lin alg": "MATH 133",
	"discrete math": "MATH 240", "discrete": "MATH 240",
	"ode": "MATH 323", "pde": "MATH 324",
	"real analysis": "MATH 242",
	// CS courses
	"intro to cs": "COMP 202", "intro cs": "COMP 202",
	"data structures": "COMP 250",
	"algorithms":      "COMP 251",
	"operating systems": "COMP 310", "os": "COMP 310",
	"databases": "COMP 421",
	"ai":        "COMP 424",
	"machine learning": "COMP 551", "ml": "COMP 551",
	"compilers": "COMP 520",
	"computer graphics": "COMP 557", "graphics": "COMP 557",
}

type aliasRule struct {
	pattern *regexp.Regexp
	code    string
}

// aliasRules is ordered longest-alias-first so "calc 2" is replaced
// before a shorter alias could match inside it.
var aliasRules = buildAliasRules()

func buildAliasRules() []aliasRule {
	aliases := make([]string, 0, len(courseAliases))
	for alias := range courseAliases {
		aliases = append(aliases, alias)
	}
	sort.Slice(aliases, func(i, j int) bool {
		if len(aliases[i]) != len(aliases[j]) {
			return len(aliases[i]) > len(aliases[j])
		}
		return aliases[i] < aliases[j]
	})

	rules := make([]aliasRule, 0, len(aliases))
	for _, alias := range aliases {
		rules = append(rules, aliasRule{
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(alias) + `\b`),
			code:    courseAliases[alias],
		})
	}
	return rules
}

// ReplaceAliases substitutes course nicknames with canonical course codes.
// Matching is case-insensitive and word-bounded; the rest of the query is
// left untouched.
func ReplaceAliases(query string) string {
	result := query
	for _, rule := range aliasRules {
		result = rule.pattern.ReplaceAllString(result, rule.code)
	}
	return result
}
