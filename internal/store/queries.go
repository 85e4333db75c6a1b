package store

// SQL query constants organized by entity.
// All SQL lives here — PostgresStore methods reference these constants.

// Snapshot queries.
const (
	queryGetSnapshot = `
		SELECT client, identity, title, price, stock_status, description,
			image_url, product_url, sku, COALESCE(last_seen_run_id::text, ''), updated_at
		FROM snapshots
		WHERE client = $1 AND identity = $2`

	queryUpsertSnapshot = `
		INSERT INTO snapshots (
			client, identity, title, price, stock_status, description,
			image_url, product_url, sku, last_seen_run_id, updated_at
		) VALUES (
			@client, @identity, @title, @price, @stock_status, @description,
			@image_url, @product_url, @sku, @last_seen_run_id, now()
		)
		ON CONFLICT (client, identity) DO UPDATE SET
			title = EXCLUDED.title,
			price = EXCLUDED.price,
			stock_status = EXCLUDED.stock_status,
			description = EXCLUDED.description,
			image_url = EXCLUDED.image_url,
			product_url = EXCLUDED.product_url,
			sku = EXCLUDED.sku,
			last_seen_run_id = EXCLUDED.last_seen_run_id,
			updated_at = now()
		RETURNING updated_at`

	queryCountSnapshots = `SELECT COUNT(*) FROM snapshots WHERE client = $1`
)

// Run queries.
const (
	queryCreateRun = `
		INSERT INTO runs (client, status, config, started_at)
		VALUES ($1, 'queued', $2, now())
		RETURNING id, started_at`

	queryGetRun = `
		SELECT id, client, started_at, completed_at, status, config,
			items_count, categories_done, total_categories,
			new_products, updated_products, skipped_records,
			last_error, cancel_requested
		FROM runs
		WHERE id = $1`

	queryLatestRun = `
		SELECT id, client, started_at, completed_at, status, config,
			items_count, categories_done, total_categories,
			new_products, updated_products, skipped_records,
			last_error, cancel_requested
		FROM runs
		WHERE client = $1
		ORDER BY started_at DESC
		LIMIT 1`

	queryMarkRunRunning = `
		UPDATE runs SET status = 'running', total_categories = $2
		WHERE id = $1 AND status = 'queued'`

	queryUpdateRunProgress = `
		UPDATE runs SET categories_done = $2
		WHERE id = $1`

	// Finalization only touches non-terminal rows; a second call with a
	// terminal status is the idempotent no-op the ledger contract requires.
	queryFinalizeRun = `
		UPDATE runs SET
			status = $2,
			completed_at = now(),
			new_products = $3,
			updated_products = $4,
			skipped_records = $5,
			categories_done = $6,
			total_categories = GREATEST(total_categories, $7),
			last_error = $8
		WHERE id = $1 AND status IN ('queued', 'running')`

	queryRequestCancel = `
		UPDATE runs SET cancel_requested = true
		WHERE id = $1 AND status IN ('queued', 'running')`

	queryIsCancelRequested = `SELECT cancel_requested FROM runs WHERE id = $1`

	queryRunExists = `SELECT EXISTS(SELECT 1 FROM runs WHERE id = $1)`

	queryRecoverStaleRuns = `
		UPDATE runs SET
			status = 'error',
			completed_at = now(),
			last_error = 'run abandoned: no activity before restart'
		WHERE status IN ('queued', 'running') AND started_at < $1`
)

// Change queries.
const (
	queryInsertChange = `
		INSERT INTO changes (
			run_id, client, identity, change_type,
			old_value, new_value, old_value_raw, new_value_raw,
			difference, is_baseline, changed_at
		) VALUES (
			@run_id, @client, @identity, @change_type,
			@old_value, @new_value, @old_value_raw, @new_value_raw,
			@difference, @is_baseline, now()
		)`

	queryBumpRunCounters = `
		UPDATE runs SET
			items_count = items_count + $2,
			new_products = new_products + $3,
			updated_products = updated_products + $4
		WHERE id = $1`

	queryCountChangesByTypeSince = `
		SELECT change_type, COUNT(*)
		FROM changes
		WHERE client = $1 AND changed_at >= $2 AND NOT is_baseline
		GROUP BY change_type`

	queryExportRun = `
		SELECT COALESCE(s.sku, ''), COALESCE(s.title, ''), COALESCE(s.product_url, ''),
			c.change_type, COALESCE(c.old_value, ''), COALESCE(c.new_value, ''), c.changed_at
		FROM changes c
		LEFT JOIN snapshots s ON s.client = c.client AND s.identity = c.identity
		WHERE c.run_id = $1
		ORDER BY c.changed_at, c.id`
)

// Retention queries. Changes carry ON DELETE CASCADE, but cleanup still
// deletes explicitly inside one transaction so the removed-changes count is
// exact and orphans are impossible regardless of schema drift.
const (
	querySelectRunIDsOlderThan = `
		SELECT id FROM runs WHERE client = $1 AND started_at < $2`

	querySelectAllRunIDs = `
		SELECT id FROM runs WHERE client = $1`

	queryDeleteChangesByRunIDs = `
		DELETE FROM changes WHERE run_id = ANY($1)`

	queryDeleteRunsByIDs = `
		DELETE FROM runs WHERE id = ANY($1)`
)
