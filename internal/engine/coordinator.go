package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jmhart/catalog-tracker/internal/store"
	"github.com/jmhart/catalog-tracker/pkg/normalize"
	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

const defaultMaxConcurrent = 4

// SourceFactory builds the RecordSource for a client's run. The server wires
// a real scraping source here; tests and the inline-records job endpoint use
// StaticSource.
type SourceFactory func(client string, cfg domain.RunConfig) (RecordSource, error)

// Coordinator runs jobs in the background on a bounded worker pool. A job is
// a run: Start creates the ledger row immediately (status queued) and the run
// id doubles as the job id for status and cancel calls.
type Coordinator struct {
	store   store.Store
	engine  *Engine
	factory SourceFactory
	log     *slog.Logger

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewCoordinator creates a Coordinator with at most maxConcurrent runs
// executing at once.
func NewCoordinator(
	s store.Store,
	eng *Engine,
	factory SourceFactory,
	maxConcurrent int,
	log *slog.Logger,
) *Coordinator {
	if maxConcurrent < 1 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Coordinator{
		store:   s,
		engine:  eng,
		factory: factory,
		log:     log,
		sem:     make(chan struct{}, maxConcurrent),
	}
}

// Start queues a job for the client. When src is nil the coordinator's
// SourceFactory provides the records. The returned id identifies both the job
// and its run.
func (c *Coordinator) Start(
	ctx context.Context,
	client string,
	cfg domain.RunConfig,
	src RecordSource,
) (string, error) {
	if src == nil {
		if c.factory == nil {
			return "", fmt.Errorf("no record source for client %q", client)
		}
		var err error
		src, err = c.factory(client, cfg)
		if err != nil {
			return "", fmt.Errorf("building record source: %w", err)
		}
	}

	run, err := c.store.CreateRun(ctx, client, cfg)
	if err != nil {
		return "", fmt.Errorf("creating run: %w", err)
	}

	c.wg.Add(1)
	go c.execute(run.ID, cfg, src)

	c.log.Info("job queued", "run_id", run.ID, "client", client)
	return run.ID, nil
}

func (c *Coordinator) execute(runID string, cfg domain.RunConfig, src RecordSource) {
	defer c.wg.Done()

	// Workers detach from the caller's request context; cancellation is
	// cooperative through the run's cancel flag.
	ctx := context.Background()

	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	if err := c.engine.ExecuteRun(ctx, runID, cfg, src); err != nil {
		c.log.Error("job failed", "run_id", runID, "error", err)
	}
}

// Status reports job progress from the run ledger.
func (c *Coordinator) Status(ctx context.Context, id string) (*domain.Run, error) {
	return c.store.GetRun(ctx, id)
}

// Cancel requests cooperative cancellation of a job. Results already recorded
// are kept.
func (c *Coordinator) Cancel(ctx context.Context, id string) error {
	return c.store.RequestCancel(ctx, id)
}

// Wait blocks until all in-flight jobs have finished. Used during shutdown.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// StaticSource serves a fixed set of records grouped by category, in a stable
// category order.
type StaticSource struct {
	batches map[string][]normalize.RawRecord
	order   []string
}

// NewStaticSource groups records by category. Categories keep first-seen
// order when provided, otherwise sorted order.
func NewStaticSource(batches map[string][]normalize.RawRecord, order []string) *StaticSource {
	if len(order) == 0 {
		for cat := range batches {
			order = append(order, cat)
		}
		sort.Strings(order)
	}
	return &StaticSource{batches: batches, order: order}
}

// Categories returns the category names in serving order.
func (s *StaticSource) Categories() []string {
	return s.order
}

// Fetch returns the records for one category.
func (s *StaticSource) Fetch(_ context.Context, category string) ([]normalize.RawRecord, error) {
	return s.batches[category], nil
}
