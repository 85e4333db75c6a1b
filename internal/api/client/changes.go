package client

import (
	"context"
	"net/url"
	"strconv"
	"time"

	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// ChangesResponse wraps a paginated change listing.
type ChangesResponse struct {
	Changes []domain.ChangeItem `json:"changes"`
	Total   int                 `json:"total"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
}

// ListChangesParams defines query parameters for change listings.
type ListChangesParams struct {
	Client          string
	ChangeTypes     []string
	From            time.Time
	To              time.Time
	Search          string
	Sort            string
	IncludeBaseline bool
	Limit           int
	Offset          int
}

// ListChanges returns change records matching the given parameters.
func (c *Client) ListChanges(
	ctx context.Context,
	params *ListChangesParams,
) (*ChangesResponse, error) {
	q := url.Values{}
	if params.Client != "" {
		q.Set("client", params.Client)
	}
	for _, ct := range params.ChangeTypes {
		q.Add("change_types", ct)
	}
	if !params.From.IsZero() {
		q.Set("from", params.From.Format(time.RFC3339))
	}
	if !params.To.IsZero() {
		q.Set("to", params.To.Format(time.RFC3339))
	}
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	if params.Sort != "" {
		q.Set("sort", params.Sort)
	}
	if params.IncludeBaseline {
		q.Set("include_baseline", "true")
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}

	path := "/api/v1/changes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ChangesResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Summary returns the aggregate catalog statistics for a client.
func (c *Client) Summary(ctx context.Context, clientName string) (*domain.SummaryStats, error) {
	var s domain.SummaryStats
	path := "/api/v1/summary?client=" + url.QueryEscape(clientName)
	if err := c.get(ctx, path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
