package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
//
// TODO(test): PostgresStore methods require live Postgres, tested via integration tests.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// GetSnapshot retrieves the latest known state for a (client, identity) pair.
func (s *PostgresStore) GetSnapshot(
	ctx context.Context,
	client, identity string,
) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{}
	err := s.pool.QueryRow(ctx, queryGetSnapshot, client, identity).Scan(
		&snap.Client, &snap.Identity, &snap.Title, &snap.Price,
		&snap.StockStatus, &snap.Description, &snap.ImageURL,
		&snap.ProductURL, &snap.SKU, &snap.LastSeenRunID, &snap.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	return snap, nil
}

// UpsertSnapshot overwrites (or creates) the snapshot for the record's
// identity. updated_at is refreshed even when no field changed.
func (s *PostgresStore) UpsertSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	var runID *string
	if snap.LastSeenRunID != "" {
		runID = &snap.LastSeenRunID
	}

	args := pgx.NamedArgs{
		"client":           snap.Client,
		"identity":         snap.Identity,
		"title":            snap.Title,
		"price":            snap.Price,
		"stock_status":     string(snap.StockStatus),
		"description":      snap.Description,
		"image_url":        snap.ImageURL,
		"product_url":      snap.ProductURL,
		"sku":              snap.SKU,
		"last_seen_run_id": runID,
	}

	if err := s.pool.QueryRow(ctx, queryUpsertSnapshot, args).Scan(&snap.UpdatedAt); err != nil {
		return fmt.Errorf("upserting snapshot: %w", err)
	}
	return nil
}

// CountSnapshots returns the number of tracked products for a client.
func (s *PostgresStore) CountSnapshots(ctx context.Context, client string) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, queryCountSnapshots, client).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting snapshots: %w", err)
	}
	return count, nil
}

// CreateRun inserts a queued run and returns it with its assigned id.
func (s *PostgresStore) CreateRun(
	ctx context.Context,
	client string,
	cfg domain.RunConfig,
) (*domain.Run, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling run config: %w", err)
	}

	run := &domain.Run{
		Client: client,
		Status: domain.RunQueued,
		Config: cfg,
	}
	if err := s.pool.QueryRow(ctx, queryCreateRun, client, cfgJSON).Scan(
		&run.ID, &run.StartedAt,
	); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by id.
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	run, err := scanRun(s.pool.QueryRow(ctx, queryGetRun, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recently started run for a client, or
// ErrRunNotFound when the client has no runs yet.
func (s *PostgresStore) LatestRun(ctx context.Context, client string) (*domain.Run, error) {
	run, err := scanRun(s.pool.QueryRow(ctx, queryLatestRun, client))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	return run, nil
}

// ListRuns queries runs with optional filters, returning results and the
// filtered total.
func (s *PostgresStore) ListRuns(
	ctx context.Context,
	opts *RunQuery,
) ([]domain.Run, int, error) {
	dataSQL, countSQL, args := opts.ToSQL()

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting runs: %w", err)
	}

	rows, err := s.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, total, nil
}

// MarkRunRunning transitions a queued run to running and records the total
// category count for progress reporting.
func (s *PostgresStore) MarkRunRunning(ctx context.Context, id string, totalCategories int) error {
	tag, err := s.pool.Exec(ctx, queryMarkRunRunning, id, totalCategories)
	if err != nil {
		return fmt.Errorf("marking run running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.runMissingOr(ctx, id, nil)
	}
	return nil
}

// UpdateRunProgress records how many categories a run has finished.
func (s *PostgresStore) UpdateRunProgress(ctx context.Context, id string, categoriesDone int) error {
	tag, err := s.pool.Exec(ctx, queryUpdateRunProgress, id, categoriesDone)
	if err != nil {
		return fmt.Errorf("updating run progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// FinalizeRun marks a run terminal with its final stats. Finalizing an
// already-terminal run is a no-op, not an error; an unknown id returns
// ErrRunNotFound.
func (s *PostgresStore) FinalizeRun(
	ctx context.Context,
	id string,
	status domain.RunStatus,
	stats domain.RunStats,
) error {
	if !status.IsTerminal() {
		return fmt.Errorf("finalize requires a terminal status, got %q", status)
	}

	tag, err := s.pool.Exec(ctx, queryFinalizeRun,
		id, string(status),
		stats.NewProducts, stats.UpdatedProducts, stats.SkippedRecords,
		stats.CategoriesDone, stats.TotalCategories, stats.LastError,
	)
	if err != nil {
		return fmt.Errorf("finalizing run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.runMissingOr(ctx, id, nil)
	}
	return nil
}

// RequestCancel flags a live run for cooperative cancellation. The detector
// observes the flag between records; already-terminal runs ignore it.
func (s *PostgresStore) RequestCancel(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, queryRequestCancel, id)
	if err != nil {
		return fmt.Errorf("requesting cancel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.runMissingOr(ctx, id, nil)
	}
	return nil
}

// IsCancelRequested reports whether cancellation was requested for a run.
func (s *PostgresStore) IsCancelRequested(ctx context.Context, id string) (bool, error) {
	var requested bool
	err := s.pool.QueryRow(ctx, queryIsCancelRequested, id).Scan(&requested)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrRunNotFound
	}
	if err != nil {
		return false, fmt.Errorf("checking cancel flag: %w", err)
	}
	return requested, nil
}

// RecoverStaleRuns marks queued or running runs older than olderThan as
// errored. Used at startup to clean up runs abandoned by a crash.
func (s *PostgresStore) RecoverStaleRuns(
	ctx context.Context,
	olderThan time.Duration,
) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	tag, err := s.pool.Exec(ctx, queryRecoverStaleRuns, cutoff)
	if err != nil {
		return 0, fmt.Errorf("recovering stale runs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// RecordChanges appends a batch of change records for a run in a single
// transaction, maintaining the run's items_count and product counters in the
// same commit. Readers never observe a partial batch.
func (s *PostgresStore) RecordChanges(
	ctx context.Context,
	runID string,
	changes []domain.ChangeRecord,
) error {
	if len(changes) == 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, queryRunExists, runID).Scan(&exists); err != nil {
		return fmt.Errorf("checking run: %w", err)
	}
	if !exists {
		return ErrRunNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var newProducts, updatedProducts int
	for i := range changes {
		c := &changes[i]
		args := pgx.NamedArgs{
			"run_id":        runID,
			"client":        c.Client,
			"identity":      c.Identity,
			"change_type":   string(c.ChangeType),
			"old_value":     c.OldValue,
			"new_value":     c.NewValue,
			"old_value_raw": c.OldValueRaw,
			"new_value_raw": c.NewValueRaw,
			"difference":    c.Difference,
			"is_baseline":   c.IsBaseline,
		}
		if _, err := tx.Exec(ctx, queryInsertChange, args); err != nil {
			return fmt.Errorf("inserting change for %s: %w", c.Identity, err)
		}

		if c.IsBaseline {
			newProducts++
		} else {
			updatedProducts++
		}
	}

	if _, err := tx.Exec(ctx, queryBumpRunCounters,
		runID, len(changes), newProducts, updatedProducts,
	); err != nil {
		return fmt.Errorf("updating run counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing changes: %w", err)
	}
	return nil
}

// ListChanges queries change records joined with product metadata, returning
// results and the filtered total.
func (s *PostgresStore) ListChanges(
	ctx context.Context,
	opts *ChangeQuery,
) ([]domain.ChangeItem, int, error) {
	dataSQL, countSQL, args := opts.ToSQL()

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting changes: %w", err)
	}

	rows, err := s.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying changes: %w", err)
	}
	defer rows.Close()

	var items []domain.ChangeItem
	for rows.Next() {
		var it domain.ChangeItem
		if err := rows.Scan(
			&it.ID, &it.RunID, &it.Client, &it.Identity, &it.ChangeType,
			&it.OldValue, &it.NewValue, &it.OldValueRaw, &it.NewValueRaw,
			&it.Difference, &it.IsBaseline, &it.ChangedAt,
			&it.Title, &it.SKU, &it.ProductURL,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning change: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating changes: %w", err)
	}

	return items, total, nil
}

// Summary computes dashboard aggregates for a client. The 24h windows are
// relative to the time of the call; baselines are excluded from all counts.
func (s *PostgresStore) Summary(ctx context.Context, client string) (*domain.SummaryStats, error) {
	stats := &domain.SummaryStats{}

	total, err := s.CountSnapshots(ctx, client)
	if err != nil {
		return nil, err
	}
	stats.TotalProducts = total

	since := time.Now().Add(-24 * time.Hour)
	rows, err := s.pool.Query(ctx, queryCountChangesByTypeSince, client, since)
	if err != nil {
		return nil, fmt.Errorf("counting recent changes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ct string
		var count int
		if err := rows.Scan(&ct, &count); err != nil {
			return nil, fmt.Errorf("scanning change count: %w", err)
		}
		switch domain.ChangeType(ct) {
		case domain.ChangePrice:
			stats.PriceChanges24h = count
		case domain.ChangeStock:
			stats.StockChanges24h = count
		case domain.ChangeDescription:
			stats.DescriptionUpdates24h = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating change counts: %w", err)
	}

	latest, err := s.LatestRun(ctx, client)
	if err != nil && !errors.Is(err, ErrRunNotFound) {
		return nil, err
	}
	if latest != nil {
		stats.CategoryCompletion = latest.CategoryCompletion()
	}

	return stats, nil
}

// ExportRun flattens a run's change records with product metadata into
// spreadsheet-ready rows, ordered by changed_at then id for reproducible
// exports.
func (s *PostgresStore) ExportRun(ctx context.Context, runID string) ([]domain.ExportRow, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, queryRunExists, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking run: %w", err)
	}
	if !exists {
		return nil, ErrRunNotFound
	}

	rows, err := s.pool.Query(ctx, queryExportRun, runID)
	if err != nil {
		return nil, fmt.Errorf("querying export rows: %w", err)
	}
	defer rows.Close()

	var out []domain.ExportRow
	for rows.Next() {
		var r domain.ExportRow
		if err := rows.Scan(
			&r.SKU, &r.Title, &r.URL, &r.ChangeType,
			&r.OldValue, &r.NewValue, &r.ChangedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning export row: %w", err)
		}
		out = append(out, r)
	}

	return out, rows.Err()
}

// DeleteRunsOlderThan removes a client's runs started before the age cutoff,
// together with their change records, in one transaction.
func (s *PostgresStore) DeleteRunsOlderThan(
	ctx context.Context,
	client string,
	maxAge time.Duration,
) (*CleanupResult, error) {
	cutoff := time.Now().Add(-maxAge)
	return s.deleteRuns(ctx, querySelectRunIDsOlderThan, client, cutoff)
}

// DeleteRunsByID removes the given runs and their change records in one
// transaction.
func (s *PostgresStore) DeleteRunsByID(ctx context.Context, ids []string) (*CleanupResult, error) {
	if len(ids) == 0 {
		return &CleanupResult{}, nil
	}
	return s.deleteByIDs(ctx, ids)
}

// DeleteAllRuns removes every run and change record for a client.
func (s *PostgresStore) DeleteAllRuns(ctx context.Context, client string) (*CleanupResult, error) {
	return s.deleteRuns(ctx, querySelectAllRunIDs, client)
}

func (s *PostgresStore) deleteRuns(
	ctx context.Context,
	selectSQL string,
	selectArgs ...any,
) (*CleanupResult, error) {
	rows, err := s.pool.Query(ctx, selectSQL, selectArgs...)
	if err != nil {
		return nil, fmt.Errorf("selecting runs for cleanup: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run ids: %w", err)
	}

	if len(ids) == 0 {
		return &CleanupResult{}, nil
	}
	return s.deleteByIDs(ctx, ids)
}

func (s *PostgresStore) deleteByIDs(ctx context.Context, ids []string) (*CleanupResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	changesTag, err := tx.Exec(ctx, queryDeleteChangesByRunIDs, ids)
	if err != nil {
		return nil, fmt.Errorf("deleting changes: %w", err)
	}

	runsTag, err := tx.Exec(ctx, queryDeleteRunsByIDs, ids)
	if err != nil {
		return nil, fmt.Errorf("deleting runs: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing cleanup: %w", err)
	}

	return &CleanupResult{
		RunsDeleted:    int(runsTag.RowsAffected()),
		ChangesDeleted: int(changesTag.RowsAffected()),
	}, nil
}

// runMissingOr distinguishes "run does not exist" from "run exists but the
// guarded update matched no rows" (the idempotent cases).
func (s *PostgresStore) runMissingOr(ctx context.Context, id string, onExists error) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, queryRunExists, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking run: %w", err)
	}
	if !exists {
		return ErrRunNotFound
	}
	return onExists
}

// scannable abstracts pgx.Row and pgx.Rows for reuse.
type scannable interface {
	Scan(dest ...any) error
}

// scanRun scans a full run row, decoding the JSON config column.
func scanRun(row scannable) (*domain.Run, error) {
	run := &domain.Run{}
	var cfgJSON []byte

	if err := row.Scan(
		&run.ID, &run.Client, &run.StartedAt, &run.CompletedAt,
		&run.Status, &cfgJSON,
		&run.ItemsCount, &run.CategoriesDone, &run.TotalCategories,
		&run.NewProducts, &run.UpdatedProducts, &run.SkippedRecords,
		&run.LastError, &run.CancelRequested,
	); err != nil {
		return nil, err
	}

	if len(cfgJSON) > 0 {
		if err := json.Unmarshal(cfgJSON, &run.Config); err != nil {
			return nil, fmt.Errorf("unmarshaling run config: %w", err)
		}
	}

	return run, nil
}
