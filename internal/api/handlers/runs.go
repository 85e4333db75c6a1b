package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmhart/catalog-tracker/internal/store"
	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// RunsProvider defines the store methods required by the runs handler.
type RunsProvider interface {
	ListRuns(ctx context.Context, opts *store.RunQuery) ([]domain.Run, int, error)
	GetRun(ctx context.Context, id string) (*domain.Run, error)
}

// RunsHandler handles run ledger query endpoints.
type RunsHandler struct {
	store RunsProvider
}

// NewRunsHandler creates a new RunsHandler.
func NewRunsHandler(s RunsProvider) *RunsHandler {
	return &RunsHandler{store: s}
}

// ListRunsInput is the input for listing runs with optional filters.
type ListRunsInput struct {
	Client   string    `query:"client"    doc:"Filter by client"`
	Search   string    `query:"search"    doc:"Free-text match on run id and target URLs"`
	Host     string    `query:"host"      doc:"Filter by target URL host"`
	From     time.Time `query:"from"      doc:"Only runs started at or after this time"`
	To       time.Time `query:"to"        doc:"Only runs started at or before this time"`
	MinItems int       `query:"min_items" doc:"Minimum change records in the run" minimum:"0"`
	Limit    int       `query:"limit"     doc:"Number of results (default 50)"    minimum:"1" maximum:"500"`
	Offset   int       `query:"offset"    doc:"Pagination offset"                 minimum:"0"`
}

// ListRunsOutput is the response for listing runs.
type ListRunsOutput struct {
	Body struct {
		Runs   []domain.Run `json:"runs"`
		Total  int          `json:"total"`
		Limit  int          `json:"limit"`
		Offset int          `json:"offset"`
	}
}

// GetRunInput is the input for getting a single run.
type GetRunInput struct {
	ID string `path:"id" doc:"Run UUID"`
}

// GetRunOutput is the response for getting a single run.
type GetRunOutput struct {
	Body domain.Run
}

// ListRuns returns runs newest first, with composable filters and the
// filtered total.
func (h *RunsHandler) ListRuns(
	ctx context.Context,
	input *ListRunsInput,
) (*ListRunsOutput, error) {
	q := &store.RunQuery{
		Client: input.Client,
		Search: input.Search,
		Host:   input.Host,
		Limit:  input.Limit,
		Offset: input.Offset,
	}

	if !input.From.IsZero() {
		q.From = &input.From
	}
	if !input.To.IsZero() {
		q.To = &input.To
	}
	if input.MinItems > 0 {
		q.MinItems = &input.MinItems
	}

	runs, total, err := h.store.ListRuns(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("run query failed: " + err.Error())
	}

	if runs == nil {
		runs = []domain.Run{}
	}

	resp := &ListRunsOutput{}
	resp.Body.Runs = runs
	resp.Body.Total = total
	resp.Body.Limit = q.Limit
	resp.Body.Offset = q.Offset

	return resp, nil
}

// GetRun returns a single run by id.
func (h *RunsHandler) GetRun(ctx context.Context, input *GetRunInput) (*GetRunOutput, error) {
	run, err := h.store.GetRun(ctx, input.ID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return nil, huma.Error404NotFound("run not found")
		}
		return nil, huma.Error500InternalServerError("run query failed: " + err.Error())
	}

	return &GetRunOutput{Body: *run}, nil
}

// RegisterRunRoutes registers run ledger endpoints with the Huma API.
func RegisterRunRoutes(api huma.API, h *RunsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-runs",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs",
		Summary:     "List runs",
		Description: "Returns runs newest first with optional filters for client, " +
			"date range, target host, and minimum item count.",
		Tags:   []string{"runs"},
		Errors: []int{http.StatusInternalServerError},
	}, h.ListRuns)

	huma.Register(api, huma.Operation{
		OperationID: "get-run",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs/{id}",
		Summary:     "Get a run by ID",
		Description: "Returns a single run with its progress counters and final stats.",
		Tags:        []string{"runs"},
		Errors:      []int{http.StatusNotFound},
	}, h.GetRun)
}
