package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// SummaryProvider defines the store methods required by the summary handler.
type SummaryProvider interface {
	Summary(ctx context.Context, client string) (*domain.SummaryStats, error)
}

// SummaryHandler serves dashboard aggregates.
type SummaryHandler struct {
	store SummaryProvider
}

// NewSummaryHandler creates a new SummaryHandler.
func NewSummaryHandler(s SummaryProvider) *SummaryHandler {
	return &SummaryHandler{store: s}
}

// GetSummaryInput is the input for the summary endpoint.
type GetSummaryInput struct {
	Client string `query:"client" required:"true" doc:"Client to summarize"`
}

// GetSummaryOutput is the response for the summary endpoint.
type GetSummaryOutput struct {
	Body domain.SummaryStats
}

// GetSummary returns product and change aggregates for a client. The 24h
// windows are computed at request time.
func (h *SummaryHandler) GetSummary(
	ctx context.Context,
	input *GetSummaryInput,
) (*GetSummaryOutput, error) {
	stats, err := h.store.Summary(ctx, input.Client)
	if err != nil {
		return nil, huma.Error500InternalServerError("summary query failed: " + err.Error())
	}

	return &GetSummaryOutput{Body: *stats}, nil
}

// RegisterSummaryRoutes registers summary endpoints with the Huma API.
func RegisterSummaryRoutes(api huma.API, h *SummaryHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-summary",
		Method:      http.MethodGet,
		Path:        "/api/v1/summary",
		Summary:     "Get client summary",
		Description: "Returns tracked product totals, 24h change counts by type, " +
			"and the latest run's category completion.",
		Tags:   []string{"summary"},
		Errors: []int{http.StatusInternalServerError},
	}, h.GetSummary)
}
