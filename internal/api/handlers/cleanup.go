package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmhart/catalog-tracker/internal/store"
)

// CleanupProvider defines the store methods required by the cleanup handler.
type CleanupProvider interface {
	DeleteRunsOlderThan(ctx context.Context, client string, maxAge time.Duration) (*store.CleanupResult, error)
	DeleteRunsByID(ctx context.Context, ids []string) (*store.CleanupResult, error)
	DeleteAllRuns(ctx context.Context, client string) (*store.CleanupResult, error)
}

// CleanupHandler handles manual retention cleanup requests.
type CleanupHandler struct {
	store CleanupProvider
}

// NewCleanupHandler creates a new CleanupHandler.
func NewCleanupHandler(s CleanupProvider) *CleanupHandler {
	return &CleanupHandler{store: s}
}

// CleanupInput is the request body for a cleanup. Exactly one selector must
// be set: max_age_days, run_ids, or all.
type CleanupInput struct {
	Body struct {
		Client     string   `json:"client,omitempty" doc:"Client scope; required for max_age_days and all"`
		MaxAgeDays int      `json:"max_age_days,omitempty" minimum:"0" doc:"Delete runs older than this many days"`
		RunIDs     []string `json:"run_ids,omitempty" doc:"Delete these specific runs"`
		All        bool     `json:"all,omitempty" doc:"Delete every run for the client"`
	}
}

// CleanupOutput is the response body for a cleanup.
type CleanupOutput struct {
	Body store.CleanupResult
}

// Cleanup deletes runs and their change records atomically; snapshots are
// never touched.
func (h *CleanupHandler) Cleanup(ctx context.Context, input *CleanupInput) (*CleanupOutput, error) {
	b := input.Body

	selectors := 0
	if b.MaxAgeDays > 0 {
		selectors++
	}
	if len(b.RunIDs) > 0 {
		selectors++
	}
	if b.All {
		selectors++
	}
	if selectors != 1 {
		return nil, huma.Error422UnprocessableEntity(
			"exactly one of max_age_days, run_ids, or all must be set",
		)
	}
	if len(b.RunIDs) == 0 && b.Client == "" {
		return nil, huma.Error422UnprocessableEntity("client is required")
	}

	var (
		res *store.CleanupResult
		err error
	)
	switch {
	case b.MaxAgeDays > 0:
		res, err = h.store.DeleteRunsOlderThan(
			ctx, b.Client, time.Duration(b.MaxAgeDays)*24*time.Hour,
		)
	case len(b.RunIDs) > 0:
		res, err = h.store.DeleteRunsByID(ctx, b.RunIDs)
	default:
		res, err = h.store.DeleteAllRuns(ctx, b.Client)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("cleanup failed: " + err.Error())
	}

	return &CleanupOutput{Body: *res}, nil
}

// RegisterCleanupRoutes registers cleanup endpoints with the Huma API.
func RegisterCleanupRoutes(api huma.API, h *CleanupHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "cleanup-runs",
		Method:      http.MethodPost,
		Path:        "/api/v1/cleanup",
		Summary:     "Delete runs and their changes",
		Description: "Removes runs by age, by id, or all for a client. Change records " +
			"are deleted with their runs in one transaction; snapshots are kept.",
		Tags:   []string{"cleanup"},
		Errors: []int{http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}, h.Cleanup)
}
