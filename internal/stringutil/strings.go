// Package stringutil provides common string manipulation utilities.
package stringutil

import "strings"

// IsNumeric checks if a string contains only digits.
// Returns false for empty strings.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ContainsAllWords reports whether every whitespace-separated word of
// words occurs in s, case-insensitively and in any order. Useful for
// matching course titles mentioned with the words rearranged:
// "algorithms and data structures" matches the title
// "data structures and algorithms".
func ContainsAllWords(s, words string) bool {
	if strings.TrimSpace(words) == "" {
		return true
	}
	if s == "" {
		return false
	}

	sLower := strings.ToLower(s)
	for _, w := range strings.Fields(strings.ToLower(words)) {
		if !strings.Contains(sLower, w) {
			return false
		}
	}
	return true
}
