// Package domain defines the core business types for catalog-tracker.
package domain

import (
	"time"
)

// ChangeType classifies one detected change dimension.
type ChangeType string

// Change type constants.
const (
	ChangeNew         ChangeType = "new"
	ChangePrice       ChangeType = "price"
	ChangeStock       ChangeType = "stock"
	ChangeDescription ChangeType = "description"
)

// IsValid reports whether ct is a known change type.
func (ct ChangeType) IsValid() bool {
	switch ct {
	case ChangeNew, ChangePrice, ChangeStock, ChangeDescription:
		return true
	}
	return false
}

// StockStatus represents normalized product availability.
//
// Unmatched free-text availability signals are carried through as a
// slugified StockStatus value rather than collapsed to unknown, so the
// literal signal stays visible to operators.
type StockStatus string

// Stock status constants.
const (
	StockInStock      StockStatus = "in_stock"
	StockOutOfStock   StockStatus = "out_of_stock"
	StockBackOrder    StockStatus = "back_order"
	StockLimited      StockStatus = "limited"
	StockPreorder     StockStatus = "preorder"
	StockDiscontinued StockStatus = "discontinued"
	StockUnavailable  StockStatus = "unavailable"
	StockUnknown      StockStatus = "unknown"
)

// RunStatus represents the lifecycle state of a scraping run.
type RunStatus string

// Run status constants.
const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunDone      RunStatus = "done"
	RunCancelled RunStatus = "cancelled"
	RunError     RunStatus = "error"
)

// IsTerminal reports whether the status is a final state.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunDone, RunCancelled, RunError:
		return true
	}
	return false
}

// IsValid reports whether s is a known run status.
func (s RunStatus) IsValid() bool {
	switch s {
	case RunQueued, RunRunning, RunDone, RunCancelled, RunError:
		return true
	}
	return false
}

// Snapshot is the latest known state for one product identity.
// Exactly one snapshot exists per (client, identity); it is overwritten on
// each observation. History lives in ChangeRecord, not in snapshot versions.
type Snapshot struct {
	Client        string      `json:"client"                  db:"client"`
	Identity      string      `json:"identity"                db:"identity"`
	Title         *string     `json:"title,omitempty"         db:"title"`
	Price         *float64    `json:"price,omitempty"         db:"price"`
	StockStatus   StockStatus `json:"stock_status"            db:"stock_status"`
	Description   *string     `json:"description,omitempty"   db:"description"`
	ImageURL      string      `json:"image_url,omitempty"     db:"image_url"`
	ProductURL    string      `json:"product_url"             db:"product_url"`
	SKU           string      `json:"sku"                     db:"sku"`
	LastSeenRunID string      `json:"last_seen_run_id"        db:"last_seen_run_id"`
	UpdatedAt     time.Time   `json:"updated_at"              db:"updated_at"`
}

// ChangeRecord is an immutable fact describing one field transition for one
// identity in one run. Records are append-only; retention cleanup deletes
// them in bulk together with their run, never individually.
type ChangeRecord struct {
	ID          int64      `json:"id"                      db:"id"`
	RunID       string     `json:"run_id"                  db:"run_id"`
	Client      string     `json:"client"                  db:"client"`
	Identity    string     `json:"identity"                db:"identity"`
	ChangeType  ChangeType `json:"change_type"             db:"change_type"`
	OldValue    *string    `json:"old_value,omitempty"     db:"old_value"`
	NewValue    *string    `json:"new_value,omitempty"     db:"new_value"`
	OldValueRaw *string    `json:"old_value_raw,omitempty" db:"old_value_raw"`
	NewValueRaw *string    `json:"new_value_raw,omitempty" db:"new_value_raw"`

	// Difference is populated only for price changes: new minus old on the
	// normalized numeric price. Direction is implied by sign.
	Difference *float64 `json:"difference,omitempty" db:"difference"`

	// IsBaseline marks the first-ever observation of an identity. Baselines
	// are recorded as changes but excluded from "real change" counts.
	IsBaseline bool      `json:"is_baseline" db:"is_baseline"`
	ChangedAt  time.Time `json:"changed_at"  db:"changed_at"`
}

// ChangeItem is a change record joined with its product's snapshot metadata,
// as served by change listings and exports.
type ChangeItem struct {
	ChangeRecord

	Title      string `json:"title"`
	SKU        string `json:"sku"`
	ProductURL string `json:"product_url"`
}

// DiscountRule adjusts observed prices before change detection. Rules apply
// in order; percent_off is applied before absolute_off.
type DiscountRule struct {
	PercentOff  float64 `json:"percent_off,omitempty"  yaml:"percent_off"`
	AbsoluteOff float64 `json:"absolute_off,omitempty" yaml:"absolute_off"`
}

// RunConfig captures what one run was asked to do.
type RunConfig struct {
	TargetURLs    []string       `json:"target_urls,omitempty"`
	Categories    []string       `json:"categories,omitempty"`
	MaxPages      int            `json:"max_pages,omitempty"`
	DiscountRules []DiscountRule `json:"discount_rules,omitempty"`
}

// Run groups the changes produced by one scraping invocation.
type Run struct {
	ID              string     `json:"id"                     db:"id"`
	Client          string     `json:"client"                 db:"client"`
	StartedAt       time.Time  `json:"started_at"             db:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	Status          RunStatus  `json:"status"                 db:"status"`
	Config          RunConfig  `json:"config"                 db:"config"`
	ItemsCount      int        `json:"items_count"            db:"items_count"`
	CategoriesDone  int        `json:"categories_done"        db:"categories_done"`
	TotalCategories int        `json:"total_categories"       db:"total_categories"`
	NewProducts     int        `json:"new_products"           db:"new_products"`
	UpdatedProducts int        `json:"updated_products"       db:"updated_products"`
	SkippedRecords  int        `json:"skipped_records"        db:"skipped_records"`
	LastError       string     `json:"last_error,omitempty"   db:"last_error"`
	CancelRequested bool       `json:"cancel_requested"       db:"cancel_requested"`
}

// CategoryCompletion returns the fraction of categories finished, in [0, 1].
func (r *Run) CategoryCompletion() float64 {
	if r.TotalCategories <= 0 {
		return 0
	}
	frac := float64(r.CategoriesDone) / float64(r.TotalCategories)
	if frac > 1 {
		return 1
	}
	return frac
}

// RunStats carries the final counters handed to FinalizeRun.
type RunStats struct {
	NewProducts     int    `json:"new_products"`
	UpdatedProducts int    `json:"updated_products"`
	SkippedRecords  int    `json:"skipped_records"`
	CategoriesDone  int    `json:"categories_done"`
	TotalCategories int    `json:"total_categories"`
	LastError       string `json:"last_error,omitempty"`
}

// SummaryStats holds dashboard aggregates for one client. The 24h windows
// are computed relative to query time on every call.
type SummaryStats struct {
	TotalProducts         int     `json:"total_products"`
	PriceChanges24h       int     `json:"price_changes_24h"`
	StockChanges24h       int     `json:"stock_changes_24h"`
	DescriptionUpdates24h int     `json:"description_updates_24h"`
	CategoryCompletion    float64 `json:"category_completion"`
}

// ExportRow is one flattened row of a run export.
type ExportRow struct {
	SKU        string     `json:"sku"`
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	ChangeType ChangeType `json:"change_type"`
	OldValue   string     `json:"old_value"`
	NewValue   string     `json:"new_value"`
	ChangedAt  time.Time  `json:"changed_at"`
}
