// Package storage provides repository interfaces for data access abstraction.
// These interfaces enable dependency inversion and facilitate testing by
// decoupling retrieval logic from concrete storage implementations.
package storage

import (
	"context"
)

// CourseRepository defines the interface for course data operations.
//
// Lookup methods represent "not found" as (nil, nil) or an empty slice,
// never as an error; errors indicate real I/O failures.
type CourseRepository interface {
	GetCourse(ctx context.Context, id string) (*Course, error)
	ListCourses(ctx context.Context, department, term string) ([]Course, error)
	ListEntryLevel(ctx context.Context, department string, limit int) ([]Course, error)
	ListByLevel(ctx context.Context, department string, level, limit int) ([]Course, error)
	ListAvailable(ctx context.Context, completed []string, limit int) ([]Course, error)
	FindCoursesMentioning(ctx context.Context, courseID string) ([]Course, error)
	GetAllCourses(ctx context.Context) ([]Course, error)
	SaveCourse(ctx context.Context, course *Course) error
	SaveCoursesBatch(ctx context.Context, courses []*Course) error
	CountCourses(ctx context.Context) (int, error)
}

// EdgeRepository defines the interface for prerequisite graph operations.
// Edge direction: src is required (or co-required) for dst.
type EdgeRepository interface {
	GetPrereqs(ctx context.Context, courseID string) ([]PrereqEdge, error)
	GetCoreqs(ctx context.Context, courseID string) ([]PrereqEdge, error)
	GetRequiring(ctx context.Context, courseID string) ([]string, error)
	SaveEdgesBatch(ctx context.Context, edges []*PrereqEdge) error
	CountEdges(ctx context.Context) (int, error)
}

// HealthRepository defines the interface for health check operations.
type HealthRepository interface {
	// Ping verifies database connection is alive.
	Ping(ctx context.Context) error

	// Ready checks if database is ready to serve queries.
	// Performs more thorough checks than Ping.
	Ready(ctx context.Context) error
}

// Repository is the aggregate interface that combines all repository
// interfaces. The DB type implements this interface, providing a single
// entry point for all data operations.
type Repository interface {
	CourseRepository
	EdgeRepository
	HealthRepository
	Close() error
}

// Ensure DB implements all repository interfaces at compile time.
// This provides early detection of interface implementation issues.
var (
	_ CourseRepository = (*DB)(nil)
	_ EdgeRepository   = (*DB)(nil)
	_ HealthRepository = (*DB)(nil)
	_ Repository       = (*DB)(nil)
)
