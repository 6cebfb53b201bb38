package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
// Note: WAL mode and pragmas are configured in db.go's openPool.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if err := createCoursesTable(ctx, db); err != nil {
		return err
	}
	return createPrereqEdgesTable(ctx, db)
}

func createCoursesTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		credits REAL DEFAULT 0,
		department TEXT NOT NULL,
		offered_fall INTEGER NOT NULL DEFAULT 0,
		offered_winter INTEGER NOT NULL DEFAULT 0,
		offered_summer INTEGER NOT NULL DEFAULT 0,
		prereq_text TEXT,
		coreq_text TEXT,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_courses_title ON courses(title);
	CREATE INDEX IF NOT EXISTS idx_courses_department ON courses(department);
	CREATE INDEX IF NOT EXISTS idx_courses_updated_at ON courses(updated_at);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create courses table: %w", err)
	}

	return nil
}

func createPrereqEdgesTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS prereq_edges (
		src_course_id TEXT NOT NULL,
		dst_course_id TEXT NOT NULL,
		kind TEXT NOT NULL CHECK(kind IN ('prereq', 'coreq')),
		PRIMARY KEY (src_course_id, dst_course_id, kind)
	);
	CREATE INDEX IF NOT EXISTS idx_prereq_edges_src ON prereq_edges(src_course_id);
	CREATE INDEX IF NOT EXISTS idx_prereq_edges_dst ON prereq_edges(dst_course_id);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create prereq_edges table: %w", err)
	}

	return nil
}
