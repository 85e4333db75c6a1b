package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jmhart/catalog-tracker/internal/metrics"
	"github.com/jmhart/catalog-tracker/internal/store"
	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// ClientSchedule binds one client's recurring ingestion to a cron spec.
type ClientSchedule struct {
	Client string
	Spec   string // cron expression, e.g. "0 3 * * *" or "@every 6h"
	Config domain.RunConfig
}

// Scheduler manages recurring ingestion runs per client and periodic
// retention cleanup.
type Scheduler struct {
	cron        *cron.Cron
	store       store.Store
	coordinator *Coordinator
	log         *slog.Logger

	retentionMaxAge time.Duration
	retentionEvery  time.Duration
	staleTimeout    time.Duration
	clients         []string
}

// NewScheduler wires cron entries for each client schedule and for retention
// cleanup across all configured clients.
func NewScheduler(
	s store.Store,
	coord *Coordinator,
	schedules []ClientSchedule,
	retentionMaxAge time.Duration,
	retentionEvery time.Duration,
	staleTimeout time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	sch := &Scheduler{
		cron:            cron.New(),
		store:           s,
		coordinator:     coord,
		log:             log,
		retentionMaxAge: retentionMaxAge,
		retentionEvery:  retentionEvery,
		staleTimeout:    staleTimeout,
	}

	for _, cs := range schedules {
		sch.clients = append(sch.clients, cs.Client)
		if cs.Spec == "" {
			continue
		}
		cs := cs
		if _, err := sch.cron.AddFunc(cs.Spec, func() {
			sch.runIngestion(cs)
		}); err != nil {
			return nil, err
		}
	}

	if retentionEvery > 0 && retentionMaxAge > 0 {
		if _, err := sch.cron.AddFunc(
			"@every "+retentionEvery.String(),
			sch.runCleanup,
		); err != nil {
			return nil, err
		}
	}

	return sch, nil
}

// Start recovers runs abandoned by a previous process and begins scheduling.
func (s *Scheduler) Start(ctx context.Context) {
	if s.staleTimeout > 0 {
		n, err := s.store.RecoverStaleRuns(ctx, s.staleTimeout)
		if err != nil {
			s.log.Error("stale run recovery failed", "error", err)
		} else if n > 0 {
			s.log.Warn("recovered stale runs", "count", n)
		}
	}

	s.log.Info("scheduler started", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runIngestion(cs ClientSchedule) {
	ctx := context.Background()
	s.log.Info("scheduled ingestion starting", "client", cs.Client)

	id, err := s.coordinator.Start(ctx, cs.Client, cs.Config, nil)
	if err != nil {
		s.log.Error("scheduled ingestion failed", "client", cs.Client, "error", err)
		return
	}
	s.log.Info("scheduled ingestion queued", "client", cs.Client, "run_id", id)
}

func (s *Scheduler) runCleanup() {
	ctx := context.Background()

	for _, client := range s.clients {
		res, err := s.store.DeleteRunsOlderThan(ctx, client, s.retentionMaxAge)
		if err != nil {
			s.log.Error("retention cleanup failed", "client", client, "error", err)
			continue
		}
		if res.RunsDeleted > 0 {
			s.log.Info("retention cleanup",
				"client", client,
				"runs_deleted", res.RunsDeleted,
				"changes_deleted", res.ChangesDeleted,
			)
		}
		metrics.CleanupRunsDeletedTotal.Add(float64(res.RunsDeleted))
		metrics.CleanupChangesDeletedTotal.Add(float64(res.ChangesDeleted))
	}
}
