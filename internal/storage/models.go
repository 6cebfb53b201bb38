package storage

import (
	"errors"
	"strings"
)

// Common errors
var (
	// ErrNotFound is returned when a resource is not found in the database
	ErrNotFound = errors.New("resource not found")
)

// Edge kinds for the prereq_edges table.
const (
	EdgeKindPrereq = "prereq"
	EdgeKindCoreq  = "coreq"
)

// PlaceholderTitlePrefix marks a course whose title has not been scraped yet.
// Such records exist because prerequisite sentences mention courses outside
// the scraped departments.
const PlaceholderTitlePrefix = "Placeholder for"

// Course represents a course record.
// ID is the canonical code ("COMP 250"): 3-4 uppercase letters, one space,
// a 3-digit number, and an optional trailing letter.
type Course struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	Credits       float64 `json:"credits"`
	Department    string  `json:"department"`
	OfferedFall   bool    `json:"offered_fall"`
	OfferedWinter bool    `json:"offered_winter"`
	OfferedSummer bool    `json:"offered_summer"`
	PrereqText    string  `json:"prereq_text,omitempty"`
	CoreqText     string  `json:"coreq_text,omitempty"`
	UpdatedAt     int64   `json:"updated_at"`
}

// HasResolvedTitle reports whether the course carries a real scraped title
// rather than a placeholder sentinel.
func (c *Course) HasResolvedTitle() bool {
	if c == nil {
		return false
	}
	if c.Title == "" || c.Title == "N/A" {
		return false
	}
	return !strings.HasPrefix(c.Title, PlaceholderTitlePrefix)
}

// OfferedIn reports whether the course is offered in the given term
// ("fall", "winter", or "summer"). Unknown terms report false.
func (c *Course) OfferedIn(term string) bool {
	if c == nil {
		return false
	}
	switch strings.ToLower(term) {
	case "fall":
		return c.OfferedFall
	case "winter":
		return c.OfferedWinter
	case "summer":
		return c.OfferedSummer
	}
	return false
}

// PrereqEdge represents a directed structural relation: Src is required
// (kind=prereq) or co-required (kind=coreq) for Dst. The composite key
// (src, dst, kind) is unique.
//
// Edges are a derived shadow of the free-text prerequisite sentence and may
// be absent for any given course; reverse lookups must fall back to text
// matching when no edges exist.
type PrereqEdge struct {
	SrcCourseID string `json:"src_course_id"`
	DstCourseID string `json:"dst_course_id"`
	Kind        string `json:"kind"`
}
