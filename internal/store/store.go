// Package store defines the datastore abstraction for catalog-tracker.
// All business logic depends on the Store interface, never on concrete
// implementations. This enables fake-based testing without a running database.
package store

import (
	"context"
	"errors"
	"time"

	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// Sentinel errors surfaced by Store implementations.
var (
	// ErrSnapshotNotFound is returned when no snapshot exists for a
	// (client, identity) pair. The detector treats it as first sight.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrRunNotFound is returned for operations against an unknown run id.
	ErrRunNotFound = errors.New("run not found")
)

// ChangeQuery defines conjunctive filters for change listings.
type ChangeQuery struct {
	Client          string
	ChangeTypes     []string
	From            *time.Time
	To              *time.Time
	Search          string // case-insensitive over title and SKU
	IncludeBaseline bool
	Sort            string // "recent" (default) or "title"
	Limit           int    // default 50
	Offset          int
}

// RunQuery defines optional, composable filters for run listings.
type RunQuery struct {
	Client   string
	Search   string // matches run id and configured target URLs
	Host     string // matches target URL host text
	From     *time.Time
	To       *time.Time
	MinItems *int
	Limit    int // default 50
	Offset   int
}

// CleanupResult reports what a retention cleanup removed.
type CleanupResult struct {
	RunsDeleted    int `json:"runs_deleted"`
	ChangesDeleted int `json:"changes_deleted"`
}

// Store defines all data access operations for catalog-tracker.
type Store interface {
	// Snapshots
	GetSnapshot(ctx context.Context, client, identity string) (*domain.Snapshot, error)
	UpsertSnapshot(ctx context.Context, s *domain.Snapshot) error
	CountSnapshots(ctx context.Context, client string) (int, error)

	// Runs
	CreateRun(ctx context.Context, client string, cfg domain.RunConfig) (*domain.Run, error)
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	LatestRun(ctx context.Context, client string) (*domain.Run, error)
	ListRuns(ctx context.Context, opts *RunQuery) ([]domain.Run, int, error)
	MarkRunRunning(ctx context.Context, id string, totalCategories int) error
	UpdateRunProgress(ctx context.Context, id string, categoriesDone int) error
	FinalizeRun(ctx context.Context, id string, status domain.RunStatus, stats domain.RunStats) error
	RequestCancel(ctx context.Context, id string) error
	IsCancelRequested(ctx context.Context, id string) (bool, error)
	RecoverStaleRuns(ctx context.Context, olderThan time.Duration) (int, error)

	// Changes
	RecordChanges(ctx context.Context, runID string, changes []domain.ChangeRecord) error
	ListChanges(ctx context.Context, opts *ChangeQuery) ([]domain.ChangeItem, int, error)
	Summary(ctx context.Context, client string) (*domain.SummaryStats, error)
	ExportRun(ctx context.Context, runID string) ([]domain.ExportRow, error)

	// Retention
	DeleteRunsOlderThan(ctx context.Context, client string, maxAge time.Duration) (*CleanupResult, error)
	DeleteRunsByID(ctx context.Context, ids []string) (*CleanupResult, error)
	DeleteAllRuns(ctx context.Context, client string) (*CleanupResult, error)

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}
