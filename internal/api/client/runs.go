package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jmhart/catalog-tracker/internal/store"
	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// RunsResponse wraps a paginated run listing.
type RunsResponse struct {
	Runs   []domain.Run `json:"runs"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// ListRunsParams defines query parameters for run listings.
type ListRunsParams struct {
	Client   string
	Search   string
	Host     string
	From     time.Time
	To       time.Time
	MinItems int
	Limit    int
	Offset   int
}

// ListRuns returns runs matching the given parameters.
func (c *Client) ListRuns(ctx context.Context, params *ListRunsParams) (*RunsResponse, error) {
	q := url.Values{}
	if params.Client != "" {
		q.Set("client", params.Client)
	}
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	if params.Host != "" {
		q.Set("host", params.Host)
	}
	if !params.From.IsZero() {
		q.Set("from", params.From.Format(time.RFC3339))
	}
	if !params.To.IsZero() {
		q.Set("to", params.To.Format(time.RFC3339))
	}
	if params.MinItems > 0 {
		q.Set("min_items", strconv.Itoa(params.MinItems))
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}

	path := "/api/v1/runs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp RunsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRun returns a single run by ID.
func (c *Client) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	var r domain.Run
	if err := c.get(ctx, fmt.Sprintf("/api/v1/runs/%s", id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ExportRun downloads a run's change records as an XLSX workbook.
func (c *Client) ExportRun(ctx context.Context, id string) ([]byte, error) {
	return c.getRaw(ctx, fmt.Sprintf("/api/v1/runs/%s/export", id))
}

// CleanupRequest selects which runs to delete. Exactly one of MaxAgeDays,
// RunIDs, or All must be set; Client is required unless deleting by ID.
type CleanupRequest struct {
	Client     string   `json:"client,omitempty"`
	MaxAgeDays int      `json:"max_age_days,omitempty"`
	RunIDs     []string `json:"run_ids,omitempty"`
	All        bool     `json:"all,omitempty"`
}

// Cleanup deletes runs and their change records, returning exact counts.
func (c *Client) Cleanup(ctx context.Context, req *CleanupRequest) (*store.CleanupResult, error) {
	var res store.CleanupResult
	if err := c.post(ctx, "/api/v1/cleanup", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
