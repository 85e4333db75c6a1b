package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmhart/catalog-tracker/internal/store"
	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// ChangesProvider defines the store methods required by the changes handler.
type ChangesProvider interface {
	ListChanges(ctx context.Context, opts *store.ChangeQuery) ([]domain.ChangeItem, int, error)
}

// ChangesHandler handles change listing endpoints.
type ChangesHandler struct {
	store ChangesProvider
}

// NewChangesHandler creates a new ChangesHandler.
func NewChangesHandler(s ChangesProvider) *ChangesHandler {
	return &ChangesHandler{store: s}
}

// ListChangesInput is the input for listing change records with filters.
// All filters are conjunctive.
type ListChangesInput struct {
	Client          string    `query:"client"           doc:"Filter by client"`
	ChangeTypes     []string  `query:"change_types"     doc:"Filter by change types"              enum:"new,price,stock,description"`
	From            time.Time `query:"from"             doc:"Only changes at or after this time"`
	To              time.Time `query:"to"               doc:"Only changes at or before this time"`
	Search          string    `query:"search"           doc:"Case-insensitive match on title or SKU"`
	Sort            string    `query:"sort"             doc:"Sort order (default recent)"         enum:"recent,title,"`
	IncludeBaseline bool      `query:"include_baseline" doc:"Include first-sighting baseline records"`
	Limit           int       `query:"limit"            doc:"Number of results (default 50)"      minimum:"1" maximum:"500"`
	Offset          int       `query:"offset"           doc:"Pagination offset"                   minimum:"0"`
}

// ListChangesOutput is the response for listing change records.
type ListChangesOutput struct {
	Body struct {
		Changes []domain.ChangeItem `json:"changes"`
		Total   int                 `json:"total"`
		Limit   int                 `json:"limit"`
		Offset  int                 `json:"offset"`
	}
}

// ListChanges returns change records with conjunctive filters and the
// filtered total for pagination.
func (h *ChangesHandler) ListChanges(
	ctx context.Context,
	input *ListChangesInput,
) (*ListChangesOutput, error) {
	q := &store.ChangeQuery{
		Client:          input.Client,
		ChangeTypes:     input.ChangeTypes,
		Search:          input.Search,
		Sort:            input.Sort,
		IncludeBaseline: input.IncludeBaseline,
		Limit:           input.Limit,
		Offset:          input.Offset,
	}

	if !input.From.IsZero() {
		q.From = &input.From
	}
	if !input.To.IsZero() {
		q.To = &input.To
	}

	changes, total, err := h.store.ListChanges(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("change query failed: " + err.Error())
	}

	if changes == nil {
		changes = []domain.ChangeItem{}
	}

	resp := &ListChangesOutput{}
	resp.Body.Changes = changes
	resp.Body.Total = total
	resp.Body.Limit = q.Limit
	resp.Body.Offset = q.Offset

	return resp, nil
}

// RegisterChangeRoutes registers change listing endpoints with the Huma API.
func RegisterChangeRoutes(api huma.API, h *ChangesHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-changes",
		Method:      http.MethodGet,
		Path:        "/api/v1/changes",
		Summary:     "List change records",
		Description: "Returns change records with conjunctive filters for client, type, " +
			"date range, and free-text search over title and SKU.",
		Tags:   []string{"changes"},
		Errors: []int{http.StatusInternalServerError},
	}, h.ListChanges)
}
