package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmhart/catalog-tracker/pkg/normalize"
	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

func newTestScheduler(
	t *testing.T,
	ms *memStore,
	schedules []ClientSchedule,
	retentionMaxAge time.Duration,
	retentionEvery time.Duration,
	staleTimeout time.Duration,
) *Scheduler {
	t.Helper()
	factory := func(string, domain.RunConfig) (RecordSource, error) {
		return NewStaticSource(map[string][]normalize.RawRecord{
			"widgets": {rawWidget("$10.00")},
		}, nil), nil
	}
	coord := newTestCoordinator(ms, factory, 2)
	s, err := NewScheduler(
		ms, coord, schedules,
		retentionMaxAge, retentionEvery, staleTimeout,
		quietLogger(),
	)
	require.NoError(t, err)
	return s
}

func TestNewScheduler_RegistersEntries(t *testing.T) {
	t.Parallel()

	ms := newMemStore()
	s := newTestScheduler(t, ms,
		[]ClientSchedule{
			{Client: "acme", Spec: "@every 1h"},
			{Client: "globex", Spec: "0 3 * * *"},
			{Client: "manual-only"}, // no spec, cleanup coverage only
		},
		90*24*time.Hour, 24*time.Hour, 2*time.Hour,
	)

	// Two client entries plus one retention entry.
	assert.Len(t, s.Entries(), 3)
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	t.Parallel()

	ms := newMemStore()
	coord := newTestCoordinator(ms, nil, 1)
	_, err := NewScheduler(
		ms, coord,
		[]ClientSchedule{{Client: "acme", Spec: "not a cron spec"}},
		0, 0, 0, quietLogger(),
	)
	assert.Error(t, err)
}

func TestScheduler_RetentionDisabledWithoutConfig(t *testing.T) {
	t.Parallel()

	ms := newMemStore()
	s := newTestScheduler(t, ms, nil, 0, 0, 0)
	assert.Empty(t, s.Entries())
}

func TestScheduler_StartRecoversStaleRuns(t *testing.T) {
	t.Parallel()

	ms := newMemStore()
	ctx := context.Background()

	stale, err := ms.CreateRun(ctx, "acme", domain.RunConfig{})
	require.NoError(t, err)
	ms.mu.Lock()
	ms.runs[stale.ID].StartedAt = time.Now().Add(-3 * time.Hour)
	ms.mu.Unlock()

	fresh, err := ms.CreateRun(ctx, "acme", domain.RunConfig{})
	require.NoError(t, err)

	s := newTestScheduler(t, ms, nil, 0, 0, 2*time.Hour)
	s.Start(ctx)
	defer s.Stop()

	got, err := ms.GetRun(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunError, got.Status)
	assert.NotEmpty(t, got.LastError)

	got, err = ms.GetRun(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunQueued, got.Status)
}

func TestScheduler_CleanupRemovesOldRuns(t *testing.T) {
	t.Parallel()

	ms := newMemStore()
	ctx := context.Background()

	old, err := ms.CreateRun(ctx, "acme", domain.RunConfig{})
	require.NoError(t, err)
	ms.mu.Lock()
	ms.runs[old.ID].StartedAt = time.Now().Add(-100 * 24 * time.Hour)
	ms.mu.Unlock()

	recent, err := ms.CreateRun(ctx, "acme", domain.RunConfig{})
	require.NoError(t, err)

	s := newTestScheduler(t, ms,
		[]ClientSchedule{{Client: "acme"}},
		90*24*time.Hour, 24*time.Hour, 0,
	)
	s.runCleanup()

	_, err = ms.GetRun(ctx, old.ID)
	assert.Error(t, err)
	_, err = ms.GetRun(ctx, recent.ID)
	assert.NoError(t, err)
}

func TestScheduler_IngestionQueuesRun(t *testing.T) {
	t.Parallel()

	ms := newMemStore()
	s := newTestScheduler(t, ms,
		[]ClientSchedule{{Client: "acme", Spec: "@every 1h"}},
		0, 0, 0,
	)

	s.runIngestion(ClientSchedule{Client: "acme"})
	s.coordinator.Wait()

	run, err := ms.LatestRun(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, domain.RunDone, run.Status)
	assert.Equal(t, 1, run.NewProducts)
}
