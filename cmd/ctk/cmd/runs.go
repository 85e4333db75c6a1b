package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apiclient "github.com/jmhart/catalog-tracker/internal/api/client"
)

func runsCmd() *cobra.Command {
	runsRoot := &cobra.Command{
		Use:   "runs",
		Short: "Inspect scrape runs",
	}

	runsRoot.AddCommand(
		runsListCmd(),
		runsShowCmd(),
		runsExportCmd(),
	)

	return runsRoot
}

func runsListCmd() *cobra.Command {
	var (
		client   string
		search   string
		host     string
		minItems int
		limit    int
		offset   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Example: `  ctk runs list --client acme
  ctk runs list --client acme --host shop.acme.com --min-items 100`,
		RunE: func(_ *cobra.Command, _ []string) error {
			c := newClient()
			resp, err := c.ListRuns(context.Background(), &apiclient.ListRunsParams{
				Client:   client,
				Search:   search,
				Host:     host,
				MinItems: minItems,
				Limit:    limit,
				Offset:   offset,
			})
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(resp)
			}

			if len(resp.Runs) == 0 {
				fmt.Println("No runs found.")
				return nil
			}

			fmt.Printf("Showing %d of %d runs\n\n", len(resp.Runs), resp.Total)
			return printRunsTable(resp.Runs)
		},
	}

	cmd.Flags().StringVar(&client, "client", "", "client namespace filter")
	cmd.Flags().StringVar(&search, "search", "", "search over run ID and configuration")
	cmd.Flags().StringVar(&host, "host", "", "target host filter")
	cmd.Flags().IntVar(&minItems, "min-items", 0, "minimum processed items")
	cmd.Flags().IntVar(&limit, "limit", 50, "number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "result offset")

	return cmd
}

func runsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()
			r, err := c.GetRun(context.Background(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(r)
			}
			return printRunDetail(r)
		},
	}
}

func runsExportCmd() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Download a run's changes as an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		Example: `  ctk runs export 6b9f2b3a-1f2d-4c11-9a7e-52f1a3b0c9d4
  ctk runs export 6b9f2b3a-1f2d-4c11-9a7e-52f1a3b0c9d4 -o changes.xlsx`,
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()
			data, err := c.ExportRun(context.Background(), args[0])
			if err != nil {
				return err
			}

			name := outFile
			if name == "" {
				name = fmt.Sprintf("run-%s.xlsx", args[0])
			}

			if err := os.WriteFile(name, data, 0o600); err != nil {
				return fmt.Errorf("writing %s: %w", name, err)
			}

			fmt.Printf("Wrote %s (%d bytes).\n", name, len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default run-<id>.xlsx)")

	return cmd
}
