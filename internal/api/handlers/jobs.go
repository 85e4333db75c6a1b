package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmhart/catalog-tracker/internal/engine"
	"github.com/jmhart/catalog-tracker/internal/store"
	"github.com/jmhart/catalog-tracker/pkg/normalize"
	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// JobCoordinator defines the coordinator methods required by the jobs handler.
type JobCoordinator interface {
	Start(ctx context.Context, client string, cfg domain.RunConfig, src engine.RecordSource) (string, error)
	Status(ctx context.Context, id string) (*domain.Run, error)
	Cancel(ctx context.Context, id string) error
}

// JobsHandler handles background scrape-ingest job requests.
type JobsHandler struct {
	coordinator JobCoordinator
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(c JobCoordinator) *JobsHandler {
	return &JobsHandler{coordinator: c}
}

// StartJobInput is the request body for starting a job. When batches are
// provided they are ingested directly; otherwise the server's configured
// record source for the client is used.
type StartJobInput struct {
	Body struct {
		Client  string                           `json:"client" minLength:"1" doc:"Client to run for" example:"acme"`
		Config  domain.RunConfig                 `json:"config,omitempty" doc:"Run configuration (targets, categories, discount rules)"`
		Batches map[string][]normalize.RawRecord `json:"batches,omitempty" doc:"Inline records grouped by category"`
	}
}

// StartJobOutput is the response body for starting a job.
type StartJobOutput struct {
	Status int
	Body   struct {
		ID string `json:"id" doc:"Job id; identical to the run id"`
	}
}

// GetJobInput is the request path for job status.
type GetJobInput struct {
	ID string `path:"id" doc:"Job id"`
}

// GetJobOutput is the response body for job status.
type GetJobOutput struct {
	Body domain.Run
}

// CancelJobOutput is the response body for a cancel request.
type CancelJobOutput struct {
	Body struct {
		Status string `json:"status" example:"cancel requested" doc:"Cancellation status"`
	}
}

// StartJob queues a scrape-ingest job and returns its id immediately.
func (h *JobsHandler) StartJob(ctx context.Context, input *StartJobInput) (*StartJobOutput, error) {
	var src engine.RecordSource
	if len(input.Body.Batches) > 0 {
		src = engine.NewStaticSource(input.Body.Batches, input.Body.Config.Categories)
	}

	id, err := h.coordinator.Start(ctx, input.Body.Client, input.Body.Config, src)
	if err != nil {
		return nil, huma.Error500InternalServerError("starting job failed: " + err.Error())
	}

	resp := &StartJobOutput{Status: http.StatusAccepted}
	resp.Body.ID = id
	return resp, nil
}

// GetJob returns the job's run record, which carries its live progress.
func (h *JobsHandler) GetJob(ctx context.Context, input *GetJobInput) (*GetJobOutput, error) {
	run, err := h.coordinator.Status(ctx, input.ID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return nil, huma.Error404NotFound("job not found")
		}
		return nil, huma.Error500InternalServerError("job query failed: " + err.Error())
	}

	return &GetJobOutput{Body: *run}, nil
}

// CancelJob requests cooperative cancellation. Already-recorded results are
// kept; the job finalizes as cancelled at its next checkpoint.
func (h *JobsHandler) CancelJob(ctx context.Context, input *GetJobInput) (*CancelJobOutput, error) {
	if err := h.coordinator.Cancel(ctx, input.ID); err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return nil, huma.Error404NotFound("job not found")
		}
		return nil, huma.Error500InternalServerError("cancel failed: " + err.Error())
	}

	resp := &CancelJobOutput{}
	resp.Body.Status = "cancel requested"
	return resp, nil
}

// RegisterJobRoutes registers job endpoints with the Huma API.
func RegisterJobRoutes(api huma.API, h *JobsHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "start-job",
		Method:        http.MethodPost,
		Path:          "/api/v1/jobs",
		Summary:       "Start a scrape-ingest job",
		Description:   "Queues a background job that ingests records and detects changes.",
		Tags:          []string{"jobs"},
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{http.StatusInternalServerError},
	}, h.StartJob)

	huma.Register(api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs/{id}",
		Summary:     "Get job progress",
		Description: "Returns the job's run record with status and progress counters.",
		Tags:        []string{"jobs"},
		Errors:      []int{http.StatusNotFound},
	}, h.GetJob)

	huma.Register(api, huma.Operation{
		OperationID: "cancel-job",
		Method:      http.MethodPost,
		Path:        "/api/v1/jobs/{id}/cancel",
		Summary:     "Cancel a job",
		Description: "Requests cooperative cancellation; partial results are kept.",
		Tags:        []string{"jobs"},
		Errors:      []int{http.StatusNotFound},
	}, h.CancelJob)
}
