package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	apperrors "github.com/coursecraft/coursecraft-go/internal/errors"
)

const courseColumns = `id, title, description, credits, department,
	offered_fall, offered_winter, offered_summer, prereq_text, coreq_text, updated_at`

// codeRe matches course codes inside free-text prerequisite sentences,
// tolerating "COMP 250", "COMP-250", and "COMP250" spellings.
var codeRe = regexp.MustCompile(`\b([A-Z]{3,4})[\s\-]?(\d{3}[A-Z]?)\b`)

func scanCourse(scanner interface{ Scan(dest ...any) error }) (*Course, error) {
	var c Course
	var description, prereqText, coreqText sql.NullString
	err := scanner.Scan(
		&c.ID,
		&c.Title,
		&description,
		&c.Credits,
		&c.Department,
		&c.OfferedFall,
		&c.OfferedWinter,
		&c.OfferedSummer,
		&prereqText,
		&coreqText,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Description = description.String
	c.PrereqText = prereqText.String
	c.CoreqText = coreqText.String
	return &c, nil
}

// GetCourse retrieves a course by its canonical code.
// Returns (nil, nil) when the course does not exist.
func (db *DB) GetCourse(ctx context.Context, id string) (*Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = ?`

	course, err := scanCourse(db.reader.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to query course",
			"course_id", id,
			"error", err)
		return nil, fmt.Errorf("query course: %w", err)
	}

	return course, nil
}

// ListCourses retrieves courses filtered by department and/or term.
// Either filter may be empty. Results are ordered by course code, which
// within a department sorts ascending by course number.
func (db *DB) ListCourses(ctx context.Context, department, term string) ([]Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses`
	var conds []string
	var args []any

	if department != "" {
		conds = append(conds, "department = ?")
		args = append(args, strings.ToUpper(department))
	}
	switch strings.ToLower(term) {
	case "fall":
		conds = append(conds, "offered_fall = 1")
	case "winter":
		conds = append(conds, "offered_winter = 1")
	case "summer":
		conds = append(conds, "offered_summer = 1")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	return db.queryCourses(ctx, "ListCourses", query, args...)
}

// ListEntryLevel retrieves courses with no effective prerequisites:
// an empty prerequisite sentence, an explicit "none", or a sentence that
// only mentions CEGEP-level background with no course codes.
// Results are ordered ascending by course number and capped at limit.
func (db *DB) ListEntryLevel(ctx context.Context, department string, limit int) ([]Course, error) {
	courses, err := db.ListCourses(ctx, department, "")
	if err != nil {
		return nil, err
	}

	entry := make([]Course, 0, limit)
	for _, c := range courses {
		if !isEntryLevel(c.PrereqText) {
			continue
		}
		entry = append(entry, c)
		if limit > 0 && len(entry) >= limit {
			break
		}
	}
	return entry, nil
}

func isEntryLevel(prereqText string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(prereqText))
	trimmed = strings.TrimSuffix(trimmed, ".")
	if trimmed == "" || trimmed == "none" || trimmed == "n/a" {
		return true
	}
	// CEGEP-only requirements count as entry level for university planning.
	if strings.Contains(trimmed, "cegep") && !codeRe.MatchString(strings.ToUpper(trimmed)) {
		return true
	}
	return false
}

// ListByLevel retrieves courses whose number starts with the level's
// hundreds digit, e.g. level 200 matches "COMP 2xx".
func (db *DB) ListByLevel(ctx context.Context, department string, level, limit int) ([]Course, error) {
	if level < 100 || level > 900 {
		return nil, nil
	}
	pattern := sanitizeSearchTerm(strings.ToUpper(department)) + " " + string(rune('0'+level/100)) + "%"

	query := `SELECT ` + courseColumns + ` FROM courses WHERE id LIKE ? ESCAPE '\' ORDER BY id`
	courses, err := db.queryCourses(ctx, "ListByLevel", query, pattern)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(courses) > limit {
		courses = courses[:limit]
	}
	return courses, nil
}

// ListAvailable retrieves courses a student can plausibly take given the
// completed course codes.
//
// Eligibility is a documented heuristic, not a boolean-expression parser:
// a course qualifies when every code mentioned in its prerequisite
// sentence is completed, or when at least one is (approximating OR-listed
// alternatives such as "MATH 150 or MATH 140"). Complex "A or B, and C"
// sentences will be misjudged; that imprecision is accepted.
func (db *DB) ListAvailable(ctx context.Context, completed []string, limit int) ([]Course, error) {
	if len(completed) == 0 {
		return nil, nil
	}

	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[strings.ToUpper(id)] = true
	}

	query := `SELECT ` + courseColumns + ` FROM courses WHERE prereq_text IS NOT NULL AND prereq_text != ''`
	courses, err := db.queryCourses(ctx, "ListAvailable", query)
	if err != nil {
		return nil, err
	}

	var eligible []Course
	for _, c := range courses {
		if done[c.ID] {
			continue
		}
		mentioned := extractCodes(c.PrereqText)
		if len(mentioned) == 0 {
			continue
		}
		all := true
		any := false
		for _, code := range mentioned {
			if done[code] {
				any = true
			} else {
				all = false
			}
		}
		if all || any {
			eligible = append(eligible, c)
		}
	}

	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })
	if limit > 0 && len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible, nil
}

func extractCodes(text string) []string {
	matches := codeRe.FindAllStringSubmatch(strings.ToUpper(text), -1)
	seen := make(map[string]bool, len(matches))
	codes := make([]string, 0, len(matches))
	for _, m := range matches {
		code := m[1] + " " + m[2]
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	return codes
}

// FindCoursesMentioning retrieves every course that requires the given
// course. Prefers the structured prereq_edges relation; when no edges
// reference the course, falls back to a flexible-separator text scan over
// prerequisite sentences (matching "COMP 250", "COMP-250", "COMP250").
// An empty result is a valid, non-error outcome.
func (db *DB) FindCoursesMentioning(ctx context.Context, courseID string) ([]Course, error) {
	dstIDs, err := db.GetRequiring(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if len(dstIDs) > 0 {
		courses := make([]Course, 0, len(dstIDs))
		for _, id := range dstIDs {
			c, err := db.GetCourse(ctx, id)
			if err != nil {
				return nil, err
			}
			if c != nil {
				courses = append(courses, *c)
			}
		}
		return courses, nil
	}

	// No edges: scan prerequisite sentences.
	mention, err := codeMentionPattern(courseID)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + courseColumns + ` FROM courses WHERE prereq_text IS NOT NULL AND prereq_text != '' ORDER BY id`
	candidates, err := db.queryCourses(ctx, "FindCoursesMentioning", query)
	if err != nil {
		return nil, err
	}

	var courses []Course
	for _, c := range candidates {
		if c.ID == courseID {
			continue
		}
		if mention.MatchString(c.PrereqText) {
			courses = append(courses, c)
		}
	}
	return courses, nil
}

// codeMentionPattern builds a case-insensitive pattern matching a course
// code with space, hyphen, or no separator between department and number.
func codeMentionPattern(courseID string) (*regexp.Regexp, error) {
	parts := strings.SplitN(courseID, " ", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed course id %q", courseID)
	}
	return regexp.Compile(`(?i)\b` + regexp.QuoteMeta(parts[0]) + `[\s\-]?` + regexp.QuoteMeta(parts[1]) + `\b`)
}

// GetAllCourses retrieves every course, ordered by code.
// Used to build the in-memory title index and the lexical search corpus.
func (db *DB) GetAllCourses(ctx context.Context) ([]Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses ORDER BY id`
	return db.queryCourses(ctx, "GetAllCourses", query)
}

func (db *DB) queryCourses(ctx context.Context, operation, query string, args ...any) ([]Course, error) {
	start := time.Now()

	rows, err := db.reader.QueryContext(ctx, query, args...)
	if err != nil {
		slog.ErrorContext(ctx, "failed to query courses",
			"operation", operation,
			"error", err)
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer func() { _ = rows.Close() }()

	var courses []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan course: %w", operation, err)
		}
		courses = append(courses, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate courses: %w", operation, err)
	}

	// Warn on slow queries (>100ms)
	if duration := time.Since(start); duration > 100*time.Millisecond {
		slog.WarnContext(ctx, "slow database query",
			"operation", operation,
			"duration_ms", duration.Milliseconds(),
			"result_count", len(courses))
	}

	return courses, nil
}

// SaveCourse inserts or updates a course record
func (db *DB) SaveCourse(ctx context.Context, course *Course) error {
	db.recordIntegrityIssues(course)

	query := `
		INSERT INTO courses (id, title, description, credits, department,
			offered_fall, offered_winter, offered_summer, prereq_text, coreq_text, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			credits = excluded.credits,
			department = excluded.department,
			offered_fall = excluded.offered_fall,
			offered_winter = excluded.offered_winter,
			offered_summer = excluded.offered_summer,
			prereq_text = excluded.prereq_text,
			coreq_text = excluded.coreq_text,
			updated_at = excluded.updated_at
	`
	start := time.Now()
	_, err := db.writer.ExecContext(ctx, query,
		course.ID, course.Title, course.Description, course.Credits, course.Department,
		course.OfferedFall, course.OfferedWinter, course.OfferedSummer,
		course.PrereqText, course.CoreqText, time.Now().Unix())
	if err != nil {
		slog.ErrorContext(ctx, "failed to save course",
			"course_id", course.ID,
			"error", err)
		return fmt.Errorf("failed to save course: %w", err)
	}

	// Warn on slow queries (>100ms)
	if duration := time.Since(start); duration > 100*time.Millisecond {
		slog.WarnContext(ctx, "slow database operation",
			"operation", "SaveCourse",
			"duration_ms", duration.Milliseconds(),
			"course_id", course.ID)
	}
	return nil
}

// SaveCoursesBatch inserts or updates multiple course records in a single
// transaction. This reduces lock contention during catalog refresh.
func (db *DB) SaveCoursesBatch(ctx context.Context, courses []*Course) error {
	if len(courses) == 0 {
		return nil
	}

	query := `
		INSERT INTO courses (id, title, description, credits, department,
			offered_fall, offered_winter, offered_summer, prereq_text, coreq_text, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			credits = excluded.credits,
			department = excluded.department,
			offered_fall = excluded.offered_fall,
			offered_winter = excluded.offered_winter,
			offered_summer = excluded.offered_summer,
			prereq_text = excluded.prereq_text,
			coreq_text = excluded.coreq_text,
			updated_at = excluded.updated_at
	`

	start := time.Now()
	updatedAt := time.Now().Unix()
	err := db.ExecBatchContext(ctx, query, func(stmt *sql.Stmt) error {
		for _, course := range courses {
			db.recordIntegrityIssues(course)
			if _, err := stmt.ExecContext(ctx,
				course.ID, course.Title, course.Description, course.Credits, course.Department,
				course.OfferedFall, course.OfferedWinter, course.OfferedSummer,
				course.PrereqText, course.CoreqText, updatedAt); err != nil {
				slog.ErrorContext(ctx, "failed to save course in batch",
					"course_id", course.ID,
					"error", err)
				return fmt.Errorf("failed to save course %s: %w", course.ID, err)
			}
		}
		return nil
	})

	if err != nil {
		return err
	}

	duration := time.Since(start)
	slog.DebugContext(ctx, "batch operation completed",
		"operation", "SaveCoursesBatch",
		"count", len(courses),
		"duration_ms", duration.Milliseconds())

	if duration > 500*time.Millisecond {
		slog.WarnContext(ctx, "slow batch operation",
			"operation", "SaveCoursesBatch",
			"count", len(courses),
			"duration_ms", duration.Milliseconds())
	}

	return nil
}

func (db *DB) recordIntegrityIssues(course *Course) {
	if db.metrics == nil {
		return
	}
	if !codeRe.MatchString(course.ID) {
		db.metrics.RecordCourseIntegrityIssue("invalid_code")
	}
	if course.Title == "" {
		db.metrics.RecordCourseIntegrityIssue("empty_title")
	} else if strings.HasPrefix(course.Title, PlaceholderTitlePrefix) {
		db.metrics.RecordCourseIntegrityIssue("placeholder_title")
	}
}

// CountCourses returns the total number of courses.
func (db *DB) CountCourses(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM courses`

	var count int
	err := db.reader.QueryRowContext(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return count, nil
}

// GetPrereqs retrieves the prerequisite edges pointing at the given course.
func (db *DB) GetPrereqs(ctx context.Context, courseID string) ([]PrereqEdge, error) {
	return db.queryEdges(ctx, "GetPrereqs",
		`SELECT src_course_id, dst_course_id, kind FROM prereq_edges
		 WHERE dst_course_id = ? AND kind = ? ORDER BY src_course_id`,
		courseID, EdgeKindPrereq)
}

// GetCoreqs retrieves the corequisite edges pointing at the given course.
func (db *DB) GetCoreqs(ctx context.Context, courseID string) ([]PrereqEdge, error) {
	return db.queryEdges(ctx, "GetCoreqs",
		`SELECT src_course_id, dst_course_id, kind FROM prereq_edges
		 WHERE dst_course_id = ? AND kind = ? ORDER BY src_course_id`,
		courseID, EdgeKindCoreq)
}

// GetRequiring retrieves the ids of courses that list the given course as
// a prerequisite. Results are ordered and duplicate-free.
func (db *DB) GetRequiring(ctx context.Context, courseID string) ([]string, error) {
	query := `SELECT DISTINCT dst_course_id FROM prereq_edges
		WHERE src_course_id = ? AND kind = ? ORDER BY dst_course_id`

	rows, err := db.reader.QueryContext(ctx, query, courseID, EdgeKindPrereq)
	if err != nil {
		return nil, fmt.Errorf("query requiring courses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan requiring course: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetAllEdges retrieves every requirement edge, ordered by target then
// source. Used by the delta log to ship freshly scraped data between
// instances.
func (db *DB) GetAllEdges(ctx context.Context) ([]PrereqEdge, error) {
	return db.queryEdges(ctx, "GetAllEdges",
		`SELECT src_course_id, dst_course_id, kind FROM prereq_edges
		 ORDER BY dst_course_id, src_course_id`)
}

func (db *DB) queryEdges(ctx context.Context, operation, query string, args ...any) ([]PrereqEdge, error) {
	rows, err := db.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer func() { _ = rows.Close() }()

	var edges []PrereqEdge
	for rows.Next() {
		var e PrereqEdge
		if err := rows.Scan(&e.SrcCourseID, &e.DstCourseID, &e.Kind); err != nil {
			return nil, fmt.Errorf("%s: scan edge: %w", operation, err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// SaveEdgesBatch inserts multiple prerequisite edges in a single
// transaction. Duplicate edges (same src, dst, kind) are ignored.
func (db *DB) SaveEdgesBatch(ctx context.Context, edges []*PrereqEdge) error {
	if len(edges) == 0 {
		return nil
	}

	query := `INSERT OR IGNORE INTO prereq_edges (src_course_id, dst_course_id, kind) VALUES (?, ?, ?)`

	return db.ExecBatchContext(ctx, query, func(stmt *sql.Stmt) error {
		for _, edge := range edges {
			if edge.Kind != EdgeKindPrereq && edge.Kind != EdgeKindCoreq {
				return apperrors.NewValidationError("kind",
					fmt.Sprintf("unknown edge kind %q for %s -> %s", edge.Kind, edge.SrcCourseID, edge.DstCourseID))
			}
			if _, err := stmt.ExecContext(ctx, edge.SrcCourseID, edge.DstCourseID, edge.Kind); err != nil {
				return fmt.Errorf("failed to save edge %s -> %s: %w", edge.SrcCourseID, edge.DstCourseID, err)
			}
		}
		return nil
	})
}

// CountEdges returns the total number of prerequisite edges.
func (db *DB) CountEdges(ctx context.Context) (int, error) {
	var count int
	err := db.reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM prereq_edges`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count edges: %w", err)
	}
	return count, nil
}
