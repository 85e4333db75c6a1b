package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmhart/catalog-tracker/pkg/normalize"
)

const (
	defaultPageSize = 100
	defaultMaxPages = 10
)

// Paginator walks through a paginated feed, aggregating records.
type Paginator struct {
	client   Client
	log      *slog.Logger
	pageSize int
	maxPages int
}

// PaginatorOption configures the Paginator.
type PaginatorOption func(*Paginator)

// WithPageSize overrides the default page size.
func WithPageSize(size int) PaginatorOption {
	return func(p *Paginator) {
		p.pageSize = size
	}
}

// WithMaxPages overrides the default max pages.
func WithMaxPages(n int) PaginatorOption {
	return func(p *Paginator) {
		p.maxPages = n
	}
}

// WithPaginatorLogger sets the logger.
func WithPaginatorLogger(l *slog.Logger) PaginatorOption {
	return func(p *Paginator) {
		p.log = l
	}
}

// NewPaginator creates a new Paginator.
func NewPaginator(client Client, opts ...PaginatorOption) *Paginator {
	p := &Paginator{
		client:   client,
		pageSize: defaultPageSize,
		maxPages: defaultMaxPages,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FetchAll fetches every page of one category from a feed endpoint, stopping
// on an empty page, when the feed reports no more results, or at max pages.
// Duplicate observations are harmless downstream; change detection treats a
// re-seen unchanged product as a no-op.
func (p *Paginator) FetchAll(
	ctx context.Context,
	feedURL, category string,
) ([]normalize.RawRecord, error) {
	var records []normalize.RawRecord

	for page := 1; page <= p.maxPages; page++ {
		resp, err := p.client.FetchPage(ctx, FetchRequest{
			URL:      feedURL,
			Category: category,
			Page:     page,
			PerPage:  p.pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", page, err)
		}

		if len(resp.Records) == 0 {
			return records, nil
		}

		records = append(records, resp.Records...)

		if !resp.HasMore {
			return records, nil
		}
	}

	if p.log != nil {
		p.log.Warn("stopped at max pages",
			"url", feedURL,
			"category", category,
			"max_pages", p.maxPages,
		)
	}
	return records, nil
}
