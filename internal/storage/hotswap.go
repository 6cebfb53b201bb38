package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
)

// HotSwapDB wraps a DB with thread-safe hot-swap capability.
// All read operations acquire a read lock, allowing concurrent queries.
// The Swap operation acquires a write lock, blocking new queries while
// atomically replacing the underlying database connection. Used when a
// catalog snapshot is restored from object storage at runtime.
type HotSwapDB struct {
	mu      sync.RWMutex
	current *DB
}

// NewHotSwapDB creates a new HotSwapDB with the given initial database path.
func NewHotSwapDB(ctx context.Context, dbPath string) (*HotSwapDB, error) {
	db, err := New(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("hotswap: create initial db: %w", err)
	}

	return &HotSwapDB{current: db}, nil
}

// DB returns the current database handle.
// The handle is stable, but callers should still fetch fresh reader/writer
// connections per operation via DB methods to respect hot-swap boundaries.
func (h *HotSwapDB) DB() *DB {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Swap atomically replaces the current database with a new one.
// The old database is closed asynchronously after in-flight queries drain.
//
// Swap process:
//  1. Open and validate the new database
//  2. Acquire write lock (blocks new read operations)
//  3. Swap the database connections in place
//  4. Release write lock
//  5. Close old database asynchronously
func (h *HotSwapDB) Swap(ctx context.Context, newDBPath string) error {
	// Open and validate new database before acquiring lock
	newDB, err := New(ctx, newDBPath)
	if err != nil {
		return fmt.Errorf("hotswap: open new db: %w", err)
	}

	if err := newDB.Ping(ctx); err != nil {
		_ = newDB.Close()
		return fmt.Errorf("hotswap: ping new db: %w", err)
	}

	h.mu.Lock()
	oldWriter, oldReader, oldPath := h.current.SwapConnections(newDB)
	h.mu.Unlock()

	// Close old database asynchronously; in-flight queries hold their own
	// connections and finish before the pool close completes.
	go func(w, r *sql.DB, path string) {
		if r != nil {
			_ = r.Close()
		}
		if w != nil {
			_ = w.Close()
		}

		currentPath := h.Path()
		if path != currentPath && path != ":memory:" {
			// Remove old .db, .db-wal, and .db-shm files
			_ = os.Remove(path)
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")
		}
	}(oldWriter, oldReader, oldPath)

	return nil
}

// Path returns the current database file path.
func (h *HotSwapDB) Path() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.Path()
}

// Close closes the current database connection.
func (h *HotSwapDB) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current != nil {
		return h.current.Close()
	}
	return nil
}

// Ping checks if the current database is accessible.
func (h *HotSwapDB) Ping(ctx context.Context) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.Ping(ctx)
}
