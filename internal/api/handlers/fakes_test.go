package handlers_test

import (
	"context"
	"time"

	"github.com/jmhart/catalog-tracker/internal/engine"
	"github.com/jmhart/catalog-tracker/internal/store"
	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// fakeStore implements the handler provider interfaces with canned responses
// and records the queries it receives.
type fakeStore struct {
	changes      []domain.ChangeItem
	changesTotal int
	changesErr   error
	lastChangeQ  *store.ChangeQuery

	runs      []domain.Run
	runsTotal int
	runsErr   error
	lastRunQ  *store.RunQuery

	run    *domain.Run
	runErr error

	summary    *domain.SummaryStats
	summaryErr error

	exportRows []domain.ExportRow
	exportErr  error

	cleanupRes  *store.CleanupResult
	cleanupErr  error
	lastCleanup string // "age", "ids", or "all"

	pingErr error
}

func (f *fakeStore) ListChanges(
	_ context.Context,
	opts *store.ChangeQuery,
) ([]domain.ChangeItem, int, error) {
	f.lastChangeQ = opts
	return f.changes, f.changesTotal, f.changesErr
}

func (f *fakeStore) ListRuns(
	_ context.Context,
	opts *store.RunQuery,
) ([]domain.Run, int, error) {
	f.lastRunQ = opts
	return f.runs, f.runsTotal, f.runsErr
}

func (f *fakeStore) GetRun(context.Context, string) (*domain.Run, error) {
	return f.run, f.runErr
}

func (f *fakeStore) Summary(context.Context, string) (*domain.SummaryStats, error) {
	return f.summary, f.summaryErr
}

func (f *fakeStore) ExportRun(context.Context, string) ([]domain.ExportRow, error) {
	return f.exportRows, f.exportErr
}

func (f *fakeStore) DeleteRunsOlderThan(
	context.Context, string, time.Duration,
) (*store.CleanupResult, error) {
	f.lastCleanup = "age"
	return f.cleanupRes, f.cleanupErr
}

func (f *fakeStore) DeleteRunsByID(context.Context, []string) (*store.CleanupResult, error) {
	f.lastCleanup = "ids"
	return f.cleanupRes, f.cleanupErr
}

func (f *fakeStore) DeleteAllRuns(context.Context, string) (*store.CleanupResult, error) {
	f.lastCleanup = "all"
	return f.cleanupRes, f.cleanupErr
}

func (f *fakeStore) Ping(context.Context) error {
	return f.pingErr
}

// fakeCoordinator implements handlers.JobCoordinator.
type fakeCoordinator struct {
	startID   string
	startErr  error
	lastSrc   engine.RecordSource
	status    *domain.Run
	statusErr error
	cancelErr error
	cancelled []string
}

func (f *fakeCoordinator) Start(
	_ context.Context,
	_ string,
	_ domain.RunConfig,
	src engine.RecordSource,
) (string, error) {
	f.lastSrc = src
	return f.startID, f.startErr
}

func (f *fakeCoordinator) Status(context.Context, string) (*domain.Run, error) {
	return f.status, f.statusErr
}

func (f *fakeCoordinator) Cancel(_ context.Context, id string) error {
	if f.cancelErr == nil {
		f.cancelled = append(f.cancelled, id)
	}
	return f.cancelErr
}
