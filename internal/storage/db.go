package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// DB wraps the SQLite database with separate reader and writer pools.
// SQLite allows many concurrent readers under WAL but only one writer;
// a single-connection writer pool serializes writes and avoids
// SQLITE_BUSY churn during catalog refresh.
type DB struct {
	reader  *sql.DB
	writer  *sql.DB
	path    string
	metrics MetricsRecorder // Optional metrics recorder for data integrity checks
}

// MetricsRecorder defines the interface for recording data integrity metrics
type MetricsRecorder interface {
	RecordCourseIntegrityIssue(issueType string)
}

// New creates a new database connection pair and initializes the schema.
func New(ctx context.Context, dbPath string) (*DB, error) {
	// Ensure directory exists (skip for in-memory database)
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	// In-memory databases must share one connection or each pool
	// connection sees a different empty database.
	shared := dbPath == ":memory:"

	writer, err := openPool(ctx, dbPath, 1)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}

	reader := writer
	if !shared {
		reader, err = openPool(ctx, dbPath, 10)
		if err != nil {
			_ = writer.Close()
			return nil, fmt.Errorf("open reader: %w", err)
		}
	}

	db := &DB{
		reader: reader,
		writer: writer,
		path:   dbPath,
	}

	if err := InitSchema(ctx, writer); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func openPool(ctx context.Context, dbPath string, maxOpen int) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxOpen)
	conn.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=30000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}

// Close closes both connection pools.
func (db *DB) Close() error {
	var firstErr error
	if db.reader != nil && db.reader != db.writer {
		if err := db.reader.Close(); err != nil {
			firstErr = err
		}
	}
	if db.writer != nil {
		if err := db.writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Reader returns the reader connection pool.
func (db *DB) Reader() *sql.DB {
	return db.reader
}

// Writer returns the writer connection pool.
func (db *DB) Writer() *sql.DB {
	return db.writer
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// SetMetrics sets the metrics recorder for data integrity monitoring
func (db *DB) SetMetrics(recorder MetricsRecorder) {
	db.metrics = recorder
}

// SwapConnections replaces this DB's connections with those of newDB and
// returns the old writer, reader, and path so the caller can close them
// after in-flight queries drain. Used by HotSwapDB during snapshot restore.
func (db *DB) SwapConnections(newDB *DB) (oldWriter, oldReader *sql.DB, oldPath string) {
	oldWriter, oldReader, oldPath = db.writer, db.reader, db.path
	if oldReader == oldWriter {
		oldReader = nil
	}
	db.writer = newDB.writer
	db.reader = newDB.reader
	db.path = newDB.path
	return oldWriter, oldReader, oldPath
}

// ExecBatchContext runs fn with a prepared statement inside a single
// transaction. It commits on success and rolls back on error.
func (db *DB) ExecBatchContext(ctx context.Context, query string, fn func(stmt *sql.Stmt) error) error {
	tx, err := db.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare batch stmt: %w", err)
	}

	if err := fn(stmt); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return err
	}

	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("close batch stmt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch tx: %w", err)
	}
	return nil
}

// CreateSnapshot writes a consistent copy of the database to destPath
// using VACUUM INTO. Safe to run while readers and writers are active.
func (db *DB) CreateSnapshot(ctx context.Context, destPath string) error {
	if _, err := db.writer.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("vacuum into %s: %w", destPath, err)
	}
	return nil
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.reader.PingContext(ctx)
}

// Ready checks if the database is ready to serve queries.
// Performs a real query against the courses table rather than a bare ping.
func (db *DB) Ready(ctx context.Context) error {
	var one int
	if err := db.reader.QueryRowContext(ctx, "SELECT 1 FROM courses LIMIT 1").Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return nil // Schema exists, table is just empty
		}
		return fmt.Errorf("readiness query: %w", err)
	}
	return nil
}

// NewTestDB creates an in-memory database for testing.
// This ensures consistent test data isolation across all test files.
// The database is automatically cleaned up when closed.
func NewTestDB() (*DB, error) {
	return New(context.Background(), ":memory:")
}
