// Package delta provides R2-backed delta log recording and merging.
// Follower instances append freshly scraped catalog data here; the
// snapshot leader merges pending logs into its database before
// uploading a new snapshot.
package delta

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coursecraft/coursecraft-go/internal/r2client"
	"github.com/coursecraft/coursecraft-go/internal/storage"
	"github.com/coursecraft/coursecraft-go/internal/stringutil"
)

// Recorder captures scrape results for later snapshot merging.
type Recorder interface {
	RecordCourses(ctx context.Context, courses []*storage.Course) error
	RecordEdges(ctx context.Context, edges []*storage.PrereqEdge) error
}

// MergeStats summarizes merge results.
type MergeStats struct {
	ObjectsProcessed int
	ObjectsMerged    int
	ObjectsSkipped   int
}

// Entry represents a single append-only delta log record.
type Entry struct {
	Type      string          `json:"type"`
	CreatedAt int64           `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

// EntryType* defines delta entry types.
const (
	EntryTypeCourses = "courses"
	EntryTypeEdges   = "prereq_edges"
)

// R2Log writes and merges delta logs stored in R2.
type R2Log struct {
	client     *r2client.Client
	prefix     string
	instanceID string
}

// NewR2Log creates a new R2 delta log helper.
func NewR2Log(client *r2client.Client, prefix, instanceID string) (*R2Log, error) {
	if client == nil {
		return nil, errors.New("delta: r2 client is required")
	}
	prefix = normalizePrefix(prefix)
	if prefix == "" {
		return nil, errors.New("delta: prefix must not be empty")
	}
	if instanceID == "" {
		instanceID = "unknown"
	}
	return &R2Log{client: client, prefix: prefix, instanceID: instanceID}, nil
}

// RecordCourses appends scraped courses to the delta log.
func (l *R2Log) RecordCourses(ctx context.Context, courses []*storage.Course) error {
	if len(courses) == 0 {
		return nil
	}
	return l.record(ctx, EntryTypeCourses, courses)
}

// RecordEdges appends derived requirement edges to the delta log.
func (l *R2Log) RecordEdges(ctx context.Context, edges []*storage.PrereqEdge) error {
	if len(edges) == 0 {
		return nil
	}
	return l.record(ctx, EntryTypeEdges, edges)
}

// MergeIntoDB applies all pending delta logs into the database.
// Logs are applied oldest-first so a later scrape of the same course
// wins. Merged objects are deleted; undecodable ones are skipped.
func (l *R2Log) MergeIntoDB(ctx context.Context, db *storage.DB) (MergeStats, error) {
	keys, err := l.client.ListObjects(ctx, l.objectPrefix())
	if err != nil {
		return MergeStats{}, fmt.Errorf("delta: list objects: %w", err)
	}

	sort.Slice(keys, func(i, j int) bool {
		ti, okI := parseDeltaTimestamp(keys[i])
		tj, okJ := parseDeltaTimestamp(keys[j])
		if okI && okJ {
			return ti < tj
		}
		return keys[i] < keys[j]
	})

	stats := MergeStats{}
	for _, key := range keys {
		stats.ObjectsProcessed++
		if err := l.mergeObject(ctx, db, key); err != nil {
			stats.ObjectsSkipped++
			continue
		}
		stats.ObjectsMerged++
	}

	return stats, nil
}

func parseDeltaTimestamp(key string) (int64, bool) {
	base := filepath.Base(key)
	parts := strings.SplitN(base, "-", 2)
	if len(parts) == 0 || !stringutil.IsNumeric(parts[0]) {
		return 0, false
	}
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

func (l *R2Log) mergeObject(ctx context.Context, db *storage.DB, key string) error {
	body, _, err := l.client.Download(ctx, key)
	if err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	defer func() {
		_ = body.Close()
	}()

	var entry Entry
	decoder := json.NewDecoder(body)
	if err := decoder.Decode(&entry); err != nil {
		return fmt.Errorf("decode entry %s: %w", key, err)
	}

	if err := applyEntry(ctx, db, entry); err != nil {
		return fmt.Errorf("apply entry %s: %w", key, err)
	}

	if err := l.client.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("delete entry %s: %w", key, err)
	}

	return nil
}

func applyEntry(ctx context.Context, db *storage.DB, entry Entry) error {
	switch entry.Type {
	case EntryTypeCourses:
		var courses []storage.Course
		if err := json.Unmarshal(entry.Payload, &courses); err != nil {
			return fmt.Errorf("decode courses: %w", err)
		}
		if len(courses) == 0 {
			return nil
		}
		ptrs := make([]*storage.Course, len(courses))
		for i := range courses {
			ptrs[i] = &courses[i]
		}
		return db.SaveCoursesBatch(ctx, ptrs)

	case EntryTypeEdges:
		var edges []storage.PrereqEdge
		if err := json.Unmarshal(entry.Payload, &edges); err != nil {
			return fmt.Errorf("decode edges: %w", err)
		}
		if len(edges) == 0 {
			return nil
		}
		ptrs := make([]*storage.PrereqEdge, len(edges))
		for i := range edges {
			ptrs[i] = &edges[i]
		}
		return db.SaveEdgesBatch(ctx, ptrs)

	default:
		return fmt.Errorf("unknown entry type: %s", entry.Type)
	}
}

func (l *R2Log) record(ctx context.Context, entryType string, payload any) error {
	payloadData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("delta: marshal payload: %w", err)
	}

	entry := Entry{
		Type:      entryType,
		CreatedAt: time.Now().UTC().Unix(),
		Payload:   payloadData,
	}
	entryData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("delta: marshal entry: %w", err)
	}

	key := l.objectKey()
	if _, err := l.client.Upload(ctx, key, bytes.NewReader(entryData), "application/json"); err != nil {
		return fmt.Errorf("delta: upload entry: %w", err)
	}
	return nil
}

func (l *R2Log) objectPrefix() string {
	return l.prefix + "/"
}

func (l *R2Log) objectKey() string {
	return fmt.Sprintf("%s/%s/%d-%s.json", l.prefix, l.instanceID, time.Now().UnixNano(), uuid.NewString())
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}
