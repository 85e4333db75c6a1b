// Package feed fetches raw product records from a client's catalog feed
// endpoints, abstracted behind interfaces for testability.
package feed

import (
	"context"

	"github.com/jmhart/catalog-tracker/pkg/normalize"
)

// FetchRequest defines the parameters for one feed page fetch.
type FetchRequest struct {
	URL      string
	Category string
	Page     int
	PerPage  int
}

// PageResponse holds one page of feed records.
type PageResponse struct {
	Records []normalize.RawRecord
	Total   int
	Page    int
	HasMore bool
}

// Client defines the interface for fetching catalog feed pages.
type Client interface {
	FetchPage(ctx context.Context, req FetchRequest) (*PageResponse, error)
}
