package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printChangesTable(changes []domain.ChangeItem) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("ID\tTYPE\tSKU\tTITLE\tOLD\tNEW\tDIFF\tCHANGED AT\n")
	for i := range changes {
		c := &changes[i]
		diff := "-"
		if c.Difference != nil {
			diff = fmt.Sprintf("%+.2f", *c.Difference)
		}
		tw.writef("%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID,
			c.ChangeType,
			c.SKU,
			truncate(c.Title, 40),
			strOrDash(c.OldValue),
			strOrDash(c.NewValue),
			diff,
			c.ChangedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return tw.finish()
}

func printRunsTable(runs []domain.Run) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("ID\tCLIENT\tSTATUS\tITEMS\tNEW\tUPDATED\tPROGRESS\tSTARTED\n")
	for i := range runs {
		r := &runs[i]
		tw.writef("%s\t%s\t%s\t%d\t%d\t%d\t%d/%d\t%s\n",
			r.ID,
			r.Client,
			r.Status,
			r.ItemsCount,
			r.NewProducts,
			r.UpdatedProducts,
			r.CategoriesDone,
			r.TotalCategories,
			r.StartedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return tw.finish()
}

func printRunDetail(r *domain.Run) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("ID:\t%s\n", r.ID)
	tw.writef("Client:\t%s\n", r.Client)
	tw.writef("Status:\t%s\n", r.Status)
	tw.writef("Items:\t%d\n", r.ItemsCount)
	tw.writef("New Products:\t%d\n", r.NewProducts)
	tw.writef("Updated Products:\t%d\n", r.UpdatedProducts)
	tw.writef("Skipped Records:\t%d\n", r.SkippedRecords)
	tw.writef("Categories:\t%d/%d\n", r.CategoriesDone, r.TotalCategories)
	tw.writef("Started:\t%s\n", r.StartedAt.Format("2006-01-02 15:04:05"))
	if r.CompletedAt != nil {
		tw.writef("Completed:\t%s\n", r.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	if r.LastError != "" {
		tw.writef("Last Error:\t%s\n", r.LastError)
	}
	return tw.finish()
}

func printSummary(s *domain.SummaryStats) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("Total Products:\t%d\n", s.TotalProducts)
	tw.writef("Price Changes (24h):\t%d\n", s.PriceChanges24h)
	tw.writef("Stock Changes (24h):\t%d\n", s.StockChanges24h)
	tw.writef("Description Updates (24h):\t%d\n", s.DescriptionUpdates24h)
	tw.writef("Category Completion:\t%.0f%%\n", s.CategoryCompletion*100)
	return tw.finish()
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func strOrDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
