package store

import (
	"fmt"
	"strings"
)

const (
	defaultLimit = 50
	maxLimit     = 500

	sortRecent = "recent"
	sortTitle  = "title"
)

// validChangeSort maps allowed Sort values to their SQL order expressions.
// The id tiebreaker keeps pagination and exports deterministic.
var validChangeSort = map[string]string{
	sortRecent: "c.changed_at DESC, c.id DESC",
	sortTitle:  "lower(s.title) ASC, c.id DESC",
}

const defaultChangeSort = "c.changed_at DESC, c.id DESC"

const baseChangesSelect = `SELECT c.id, c.run_id, c.client, c.identity, c.change_type,
	c.old_value, c.new_value, c.old_value_raw, c.new_value_raw,
	c.difference, c.is_baseline, c.changed_at,
	COALESCE(s.title, ''), COALESCE(s.sku, ''), COALESCE(s.product_url, '')
FROM changes c
LEFT JOIN snapshots s ON s.client = c.client AND s.identity = c.identity`

const countChangesSelect = `SELECT COUNT(*)
FROM changes c
LEFT JOIN snapshots s ON s.client = c.client AND s.identity = c.identity`

// ToSQL builds the WHERE clause, ORDER BY, LIMIT, and OFFSET for a change
// query. It returns two SQL strings (one for the data query, one for the
// filtered count) and the positional parameters. All filters are conjunctive.
func (q *ChangeQuery) ToSQL() (dataSQL, countSQL string, args []any) {
	var conditions []string
	paramIdx := 1

	if q.Client != "" {
		conditions = append(conditions, fmt.Sprintf("c.client = $%d", paramIdx))
		args = append(args, q.Client)
		paramIdx++
	}

	if len(q.ChangeTypes) > 0 {
		placeholders := make([]string, len(q.ChangeTypes))
		for i, ct := range q.ChangeTypes {
			placeholders[i] = fmt.Sprintf("$%d", paramIdx)
			args = append(args, ct)
			paramIdx++
		}
		conditions = append(conditions, fmt.Sprintf(
			"c.change_type IN (%s)", strings.Join(placeholders, ", "),
		))
	}

	if q.From != nil {
		conditions = append(conditions, fmt.Sprintf("c.changed_at >= $%d", paramIdx))
		args = append(args, *q.From)
		paramIdx++
	}

	if q.To != nil {
		conditions = append(conditions, fmt.Sprintf("c.changed_at <= $%d", paramIdx))
		args = append(args, *q.To)
		paramIdx++
	}

	if q.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(s.title ILIKE $%d OR s.sku ILIKE $%d)", paramIdx, paramIdx+1,
		))
		pattern := "%" + q.Search + "%"
		args = append(args, pattern, pattern)
		paramIdx += 2
	}

	if !q.IncludeBaseline {
		conditions = append(conditions, "NOT c.is_baseline")
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	orderClause := defaultChangeSort
	if q.Sort != "" {
		if expr, ok := validChangeSort[q.Sort]; ok {
			orderClause = expr
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := max(q.Offset, 0)

	dataSQL = fmt.Sprintf(
		"%s%s ORDER BY %s LIMIT %d OFFSET %d",
		baseChangesSelect, whereClause, orderClause, limit, offset,
	)

	countSQL = countChangesSelect + whereClause

	return dataSQL, countSQL, args
}

const baseRunsSelect = `SELECT r.id, r.client, r.started_at, r.completed_at, r.status, r.config,
	r.items_count, r.categories_done, r.total_categories,
	r.new_products, r.updated_products, r.skipped_records,
	r.last_error, r.cancel_requested
FROM runs r`

const countRunsSelect = "SELECT COUNT(*) FROM runs r"

// ToSQL builds the data and count SQL for a run listing. Runs are always
// returned newest first.
func (q *RunQuery) ToSQL() (dataSQL, countSQL string, args []any) {
	var conditions []string
	paramIdx := 1

	if q.Client != "" {
		conditions = append(conditions, fmt.Sprintf("r.client = $%d", paramIdx))
		args = append(args, q.Client)
		paramIdx++
	}

	if q.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(r.id::text ILIKE $%d OR r.config::text ILIKE $%d)", paramIdx, paramIdx+1,
		))
		pattern := "%" + q.Search + "%"
		args = append(args, pattern, pattern)
		paramIdx += 2
	}

	if q.Host != "" {
		conditions = append(conditions, fmt.Sprintf("r.config::text ILIKE $%d", paramIdx))
		args = append(args, "%"+q.Host+"%")
		paramIdx++
	}

	if q.From != nil {
		conditions = append(conditions, fmt.Sprintf("r.started_at >= $%d", paramIdx))
		args = append(args, *q.From)
		paramIdx++
	}

	if q.To != nil {
		conditions = append(conditions, fmt.Sprintf("r.started_at <= $%d", paramIdx))
		args = append(args, *q.To)
		paramIdx++
	}

	if q.MinItems != nil {
		conditions = append(conditions, fmt.Sprintf("r.items_count >= $%d", paramIdx))
		args = append(args, *q.MinItems)
		paramIdx++
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := max(q.Offset, 0)

	dataSQL = fmt.Sprintf(
		"%s%s ORDER BY r.started_at DESC LIMIT %d OFFSET %d",
		baseRunsSelect, whereClause, limit, offset,
	)

	countSQL = countRunsSelect + whereClause

	return dataSQL, countSQL, args
}
