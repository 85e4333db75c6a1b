package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	apiclient "github.com/jmhart/catalog-tracker/internal/api/client"
)

func changesCmd() *cobra.Command {
	var (
		client          string
		changeTypes     []string
		since           string
		search          string
		sort            string
		includeBaseline bool
		limit           int
		offset          int
	)

	cmd := &cobra.Command{
		Use:   "changes",
		Short: "List detected catalog changes",
		Example: `  ctk changes --client acme
  ctk changes --client acme --type price --type stock
  ctk changes --client acme --since 24h --search widget`,
		RunE: func(_ *cobra.Command, _ []string) error {
			params := &apiclient.ListChangesParams{
				Client:          client,
				ChangeTypes:     changeTypes,
				Search:          search,
				Sort:            sort,
				IncludeBaseline: includeBaseline,
				Limit:           limit,
				Offset:          offset,
			}
			if since != "" {
				d, err := time.ParseDuration(since)
				if err != nil {
					return fmt.Errorf("parsing --since: %w", err)
				}
				params.From = time.Now().Add(-d)
			}

			c := newClient()
			resp, err := c.ListChanges(context.Background(), params)
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(resp)
			}

			if len(resp.Changes) == 0 {
				fmt.Println("No changes found.")
				return nil
			}

			fmt.Printf("Showing %d of %d changes\n\n", len(resp.Changes), resp.Total)
			return printChangesTable(resp.Changes)
		},
	}

	cmd.Flags().StringVar(&client, "client", "", "client namespace filter")
	cmd.Flags().StringArrayVar(&changeTypes, "type", nil,
		"change type filter (new, price, stock, description); repeatable")
	cmd.Flags().StringVar(&since, "since", "", "only changes newer than this duration (e.g. 24h)")
	cmd.Flags().StringVar(&search, "search", "", "search over product title and SKU")
	cmd.Flags().StringVar(&sort, "sort", "", "sort order (recent, title)")
	cmd.Flags().BoolVar(&includeBaseline, "include-baseline", false,
		"include first-sighting baseline records")
	cmd.Flags().IntVar(&limit, "limit", 50, "number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "result offset")

	return cmd
}

func summaryCmd() *cobra.Command {
	var client string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show catalog summary for a client",
		Example: `  ctk summary --client acme
  ctk summary --client acme --output json`,
		RunE: func(_ *cobra.Command, _ []string) error {
			c := newClient()
			s, err := c.Summary(context.Background(), client)
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(s)
			}
			return printSummary(s)
		},
	}

	cmd.Flags().StringVar(&client, "client", "", "client namespace")
	cobra.CheckErr(cmd.MarkFlagRequired("client"))

	return cmd
}
