package client

import (
	"context"
	"fmt"

	"github.com/jmhart/catalog-tracker/pkg/normalize"
	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// StartJobRequest describes an ingestion job to start. Batches carries inline
// records keyed by category; when empty the server uses its configured source.
type StartJobRequest struct {
	Client  string                           `json:"client"`
	Config  domain.RunConfig                 `json:"config,omitempty"`
	Batches map[string][]normalize.RawRecord `json:"batches,omitempty"`
}

// StartJob starts an ingestion job and returns its ID. The job ID doubles as
// the run ID.
func (c *Client) StartJob(ctx context.Context, req *StartJobRequest) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/api/v1/jobs", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// GetJob returns the run backing a job.
func (c *Client) GetJob(ctx context.Context, id string) (*domain.Run, error) {
	var r domain.Run
	if err := c.get(ctx, fmt.Sprintf("/api/v1/jobs/%s", id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CancelJob requests cooperative cancellation of a job.
func (c *Client) CancelJob(ctx context.Context, id string) error {
	return c.post(ctx, fmt.Sprintf("/api/v1/jobs/%s/cancel", id), nil, nil)
}
