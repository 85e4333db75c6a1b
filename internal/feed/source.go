package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmhart/catalog-tracker/internal/engine"
	"github.com/jmhart/catalog-tracker/pkg/normalize"
	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// Source adapts a feed paginator to the engine's record source contract for
// one client and run configuration.
type Source struct {
	client     string
	paginator  *Paginator
	targetURLs []string
	categories []string
}

// NewSource builds a Source for one client run.
func NewSource(client string, cfg domain.RunConfig, pag *Paginator) *Source {
	return &Source{
		client:     client,
		paginator:  pag,
		targetURLs: cfg.TargetURLs,
		categories: cfg.Categories,
	}
}

// Categories implements engine.RecordSource.
func (s *Source) Categories() []string {
	return s.categories
}

// Fetch implements engine.RecordSource. Records from every target URL are
// concatenated; each gets the source's client namespace stamped on.
func (s *Source) Fetch(ctx context.Context, category string) ([]normalize.RawRecord, error) {
	var records []normalize.RawRecord
	for _, u := range s.targetURLs {
		page, err := s.paginator.FetchAll(ctx, u, category)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", u, err)
		}
		records = append(records, page...)
	}

	for i := range records {
		records[i].Client = s.client
	}
	return records, nil
}

// NewFactory returns a SourceFactory producing feed-backed sources. Runs
// without target URLs are rejected; inline-batch jobs never reach the factory.
func NewFactory(fc Client, pageSize int, log *slog.Logger) engine.SourceFactory {
	return func(client string, cfg domain.RunConfig) (engine.RecordSource, error) {
		if len(cfg.TargetURLs) == 0 {
			return nil, fmt.Errorf("client %q has no target URLs", client)
		}

		opts := []PaginatorOption{WithPaginatorLogger(log)}
		if pageSize > 0 {
			opts = append(opts, WithPageSize(pageSize))
		}
		if cfg.MaxPages > 0 {
			opts = append(opts, WithMaxPages(cfg.MaxPages))
		}

		return NewSource(client, cfg, NewPaginator(fc, opts...)), nil
	}
}
