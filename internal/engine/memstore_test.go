package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmhart/catalog-tracker/internal/store"
	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// quietLogger returns a logger that discards output for tests.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory store.Store for engine tests. Error injection is
// per-method: set failures["GetSnapshot"] = 2 to fail the next two calls.
type memStore struct {
	mu        sync.Mutex
	snapshots map[string]*domain.Snapshot // key: client + "\x00" + identity
	runs      map[string]*domain.Run
	changes   []domain.ChangeRecord
	nextID    int64
	failures  map[string]int
	calls     map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		snapshots: make(map[string]*domain.Snapshot),
		runs:      make(map[string]*domain.Run),
		failures:  make(map[string]int),
		calls:     make(map[string]int),
	}
}

func (m *memStore) failNext(method string, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[method] = times
}

func (m *memStore) callCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// shouldFail must be called with the lock held.
func (m *memStore) shouldFail(method string) error {
	m.calls[method]++
	if m.failures[method] > 0 {
		m.failures[method]--
		return fmt.Errorf("injected %s failure", method)
	}
	return nil
}

func snapKey(client, identity string) string {
	return client + "\x00" + identity
}

func (m *memStore) GetSnapshot(_ context.Context, client, identity string) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.shouldFail("GetSnapshot"); err != nil {
		return nil, err
	}
	s, ok := m.snapshots[snapKey(client, identity)]
	if !ok {
		return nil, store.ErrSnapshotNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) UpsertSnapshot(_ context.Context, s *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.shouldFail("UpsertSnapshot"); err != nil {
		return err
	}
	cp := *s
	cp.UpdatedAt = time.Now()
	m.snapshots[snapKey(s.Client, s.Identity)] = &cp
	s.UpdatedAt = cp.UpdatedAt
	return nil
}

func (m *memStore) CountSnapshots(_ context.Context, client string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.snapshots {
		if strings.HasPrefix(k, client+"\x00") {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateRun(_ context.Context, client string, cfg domain.RunConfig) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.shouldFail("CreateRun"); err != nil {
		return nil, err
	}
	m.nextID++
	run := &domain.Run{
		ID:        fmt.Sprintf("run-%d", m.nextID),
		Client:    client,
		StartedAt: time.Now(),
		Status:    domain.RunQueued,
		Config:    cfg,
	}
	m.runs[run.ID] = run
	cp := *run
	return &cp, nil
}

func (m *memStore) GetRun(_ context.Context, id string) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, store.ErrRunNotFound
	}
	cp := *run
	return &cp, nil
}

func (m *memStore) LatestRun(_ context.Context, client string) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.Run
	for _, r := range m.runs {
		if r.Client != client {
			continue
		}
		if latest == nil || r.StartedAt.After(latest.StartedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, store.ErrRunNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memStore) ListRuns(_ context.Context, opts *store.RunQuery) ([]domain.Run, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Run
	for _, r := range m.runs {
		if opts.Client != "" && r.Client != opts.Client {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, len(out), nil
}

func (m *memStore) MarkRunRunning(_ context.Context, id string, totalCategories int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.shouldFail("MarkRunRunning"); err != nil {
		return err
	}
	run, ok := m.runs[id]
	if !ok {
		return store.ErrRunNotFound
	}
	if run.Status == domain.RunQueued {
		run.Status = domain.RunRunning
		run.TotalCategories = totalCategories
	}
	return nil
}

func (m *memStore) UpdateRunProgress(_ context.Context, id string, categoriesDone int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return store.ErrRunNotFound
	}
	run.CategoriesDone = categoriesDone
	return nil
}

func (m *memStore) FinalizeRun(
	_ context.Context,
	id string,
	status domain.RunStatus,
	stats domain.RunStats,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.shouldFail("FinalizeRun"); err != nil {
		return err
	}
	run, ok := m.runs[id]
	if !ok {
		return store.ErrRunNotFound
	}
	if run.Status.IsTerminal() {
		return nil
	}
	now := time.Now()
	run.Status = status
	run.CompletedAt = &now
	run.NewProducts = stats.NewProducts
	run.UpdatedProducts = stats.UpdatedProducts
	run.SkippedRecords = stats.SkippedRecords
	run.CategoriesDone = stats.CategoriesDone
	if stats.TotalCategories > run.TotalCategories {
		run.TotalCategories = stats.TotalCategories
	}
	run.LastError = stats.LastError
	return nil
}

func (m *memStore) RequestCancel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return store.ErrRunNotFound
	}
	if !run.Status.IsTerminal() {
		run.CancelRequested = true
	}
	return nil
}

func (m *memStore) IsCancelRequested(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.shouldFail("IsCancelRequested"); err != nil {
		return false, err
	}
	run, ok := m.runs[id]
	if !ok {
		return false, store.ErrRunNotFound
	}
	return run.CancelRequested, nil
}

func (m *memStore) RecoverStaleRuns(_ context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	n := 0
	for _, r := range m.runs {
		if !r.Status.IsTerminal() && r.StartedAt.Before(cutoff) {
			r.Status = domain.RunError
			r.LastError = "run abandoned: no activity before restart"
			n++
		}
	}
	return n, nil
}

func (m *memStore) RecordChanges(_ context.Context, runID string, changes []domain.ChangeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.shouldFail("RecordChanges"); err != nil {
		return err
	}
	run, ok := m.runs[runID]
	if !ok {
		return store.ErrRunNotFound
	}
	for i := range changes {
		c := changes[i]
		m.nextID++
		c.ID = m.nextID
		c.RunID = runID
		c.ChangedAt = time.Now()
		m.changes = append(m.changes, c)
		run.ItemsCount++
		if c.IsBaseline {
			run.NewProducts++
		} else {
			run.UpdatedProducts++
		}
	}
	return nil
}

func (m *memStore) ListChanges(_ context.Context, opts *store.ChangeQuery) ([]domain.ChangeItem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ChangeItem
	for _, c := range m.changes {
		if opts.Client != "" && c.Client != opts.Client {
			continue
		}
		if !opts.IncludeBaseline && c.IsBaseline {
			continue
		}
		out = append(out, domain.ChangeItem{ChangeRecord: c})
	}
	return out, len(out), nil
}

func (m *memStore) Summary(ctx context.Context, client string) (*domain.SummaryStats, error) {
	total, _ := m.CountSnapshots(ctx, client)
	return &domain.SummaryStats{TotalProducts: total}, nil
}

func (m *memStore) ExportRun(_ context.Context, runID string) ([]domain.ExportRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[runID]; !ok {
		return nil, store.ErrRunNotFound
	}
	var out []domain.ExportRow
	for _, c := range m.changes {
		if c.RunID != runID {
			continue
		}
		row := domain.ExportRow{ChangeType: c.ChangeType, ChangedAt: c.ChangedAt}
		if c.OldValue != nil {
			row.OldValue = *c.OldValue
		}
		if c.NewValue != nil {
			row.NewValue = *c.NewValue
		}
		out = append(out, row)
	}
	return out, nil
}

func (m *memStore) DeleteRunsOlderThan(
	_ context.Context,
	client string,
	maxAge time.Duration,
) (*store.CleanupResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.shouldFail("DeleteRunsOlderThan"); err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-maxAge)
	var ids []string
	for id, r := range m.runs {
		if r.Client == client && r.StartedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return m.deleteLocked(ids), nil
}

func (m *memStore) DeleteRunsByID(_ context.Context, ids []string) (*store.CleanupResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(ids), nil
}

func (m *memStore) DeleteAllRuns(_ context.Context, client string) (*store.CleanupResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, r := range m.runs {
		if r.Client == client {
			ids = append(ids, id)
		}
	}
	return m.deleteLocked(ids), nil
}

func (m *memStore) deleteLocked(ids []string) *store.CleanupResult {
	res := &store.CleanupResult{}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := m.runs[id]; ok {
			delete(m.runs, id)
			drop[id] = true
			res.RunsDeleted++
		}
	}
	var kept []domain.ChangeRecord
	for _, c := range m.changes {
		if drop[c.RunID] {
			res.ChangesDeleted++
			continue
		}
		kept = append(kept, c)
	}
	m.changes = kept
	return res
}

func (m *memStore) Migrate(context.Context) error { return nil }

func (m *memStore) Ping(context.Context) error { return nil }

var _ store.Store = (*memStore)(nil)
