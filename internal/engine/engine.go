// Package engine contains the change-detection pipeline: the per-record
// detector, the run executor, the background job coordinator, and the cron
// scheduler for recurring ingestion and retention cleanup.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/jmhart/catalog-tracker/internal/metrics"
	"github.com/jmhart/catalog-tracker/internal/store"
	"github.com/jmhart/catalog-tracker/pkg/normalize"
	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// RecordSource delivers scraped records one category at a time. The engine
// does not scrape; sources wrap whatever produced the records (a scraper
// client, an API payload, a fixture).
type RecordSource interface {
	Categories() []string
	Fetch(ctx context.Context, category string) ([]normalize.RawRecord, error)
}

// Engine executes runs: it drains a RecordSource, normalizes and diffs every
// record, and keeps the run ledger current along the way.
type Engine struct {
	store    store.Store
	detector *Detector
	log      *slog.Logger
	limiter  *rate.Limiter
}

// NewEngine creates an Engine with injected dependencies.
func NewEngine(s store.Store, d *Detector, opts ...EngineOption) *Engine {
	eng := &Engine{
		store:    s,
		detector: d,
		log:      slog.Default(),
		limiter:  rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithBatchRate paces category batches to r batches per second with the given
// burst. Zero or negative r disables pacing.
func WithBatchRate(r float64, burst int) EngineOption {
	return func(e *Engine) {
		if r <= 0 {
			e.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// ExecuteRun drives one run from queued to a terminal state. Partial results
// are kept on cancellation and on error; the run is always finalized.
func (eng *Engine) ExecuteRun(
	ctx context.Context,
	runID string,
	cfg domain.RunConfig,
	src RecordSource,
) error {
	start := time.Now()
	metrics.RunsStartedTotal.Inc()

	categories := src.Categories()
	if len(categories) == 0 {
		categories = []string{""}
	}

	if err := eng.store.MarkRunRunning(ctx, runID, len(categories)); err != nil {
		return fmt.Errorf("marking run running: %w", err)
	}

	stats := domain.RunStats{TotalCategories: len(categories)}
	status, runErr := eng.processCategories(ctx, runID, cfg, src, categories, &stats)
	if runErr != nil {
		stats.LastError = runErr.Error()
	}

	if err := eng.store.FinalizeRun(ctx, runID, status, stats); err != nil {
		eng.log.Error("finalizing run failed", "run_id", runID, "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	metrics.RunsCompletedTotal.WithLabelValues(string(status)).Inc()
	metrics.RunDuration.Observe(time.Since(start).Seconds())

	eng.log.Info("run finished",
		"run_id", runID,
		"status", status,
		"new_products", stats.NewProducts,
		"updated_products", stats.UpdatedProducts,
		"skipped", stats.SkippedRecords,
		"duration", time.Since(start),
	)

	return runErr
}

func (eng *Engine) processCategories(
	ctx context.Context,
	runID string,
	cfg domain.RunConfig,
	src RecordSource,
	categories []string,
	stats *domain.RunStats,
) (domain.RunStatus, error) {
	for _, category := range categories {
		cancelled, err := eng.checkCancel(ctx, runID)
		if err != nil {
			return domain.RunError, err
		}
		if cancelled {
			return domain.RunCancelled, nil
		}

		if err := eng.limiter.Wait(ctx); err != nil {
			return domain.RunError, err
		}

		records, err := src.Fetch(ctx, category)
		if err != nil {
			return domain.RunError, fmt.Errorf("fetching category %q: %w", category, err)
		}

		status, err := eng.processBatch(ctx, runID, cfg, records, stats)
		if err != nil || status != "" {
			return status, err
		}

		stats.CategoriesDone++
		if err := eng.store.UpdateRunProgress(ctx, runID, stats.CategoriesDone); err != nil {
			eng.log.Warn("updating run progress failed", "run_id", runID, "error", err)
		}
	}

	return domain.RunDone, nil
}

// processBatch diffs one category's records and appends the resulting changes
// in a single transactional write. It returns a non-empty status only when
// the run should stop early.
func (eng *Engine) processBatch(
	ctx context.Context,
	runID string,
	cfg domain.RunConfig,
	records []normalize.RawRecord,
	stats *domain.RunStats,
) (domain.RunStatus, error) {
	var batch []domain.ChangeRecord

	for i := range records {
		if i > 0 {
			cancelled, err := eng.checkCancel(ctx, runID)
			if err != nil {
				return domain.RunError, err
			}
			if cancelled {
				// Flush what this batch already produced before stopping.
				if err := eng.recordBatch(ctx, runID, batch, stats); err != nil {
					return domain.RunError, err
				}
				return domain.RunCancelled, nil
			}
		}

		product, err := normalize.Normalize(records[i])
		if err != nil {
			stats.SkippedRecords++
			metrics.RecordsSkippedTotal.Inc()
			eng.log.Warn("skipping record",
				"client", records[i].Client,
				"url", records[i].URL,
				"error", err,
			)
			continue
		}

		if product.Price != nil && len(cfg.DiscountRules) > 0 {
			discounted := normalize.ApplyDiscounts(*product.Price, cfg.DiscountRules)
			product.Price = &discounted
		}

		changes, err := eng.detector.Detect(ctx, runID, product)
		if err != nil {
			return domain.RunError, err
		}
		batch = append(batch, changes...)
	}

	if err := eng.recordBatch(ctx, runID, batch, stats); err != nil {
		return domain.RunError, err
	}
	return "", nil
}

func (eng *Engine) recordBatch(
	ctx context.Context,
	runID string,
	batch []domain.ChangeRecord,
	stats *domain.RunStats,
) error {
	if len(batch) == 0 {
		return nil
	}

	if err := eng.store.RecordChanges(ctx, runID, batch); err != nil {
		return fmt.Errorf("recording changes: %w", err)
	}

	for i := range batch {
		metrics.ChangesRecordedTotal.WithLabelValues(string(batch[i].ChangeType)).Inc()
		if batch[i].IsBaseline {
			stats.NewProducts++
		} else {
			stats.UpdatedProducts++
		}
	}
	return nil
}

func (eng *Engine) checkCancel(ctx context.Context, runID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	requested, err := eng.store.IsCancelRequested(ctx, runID)
	if err != nil {
		return false, fmt.Errorf("checking cancel flag: %w", err)
	}
	return requested, nil
}
