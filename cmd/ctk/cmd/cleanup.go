package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	apiclient "github.com/jmhart/catalog-tracker/internal/api/client"
)

func cleanupCmd() *cobra.Command {
	var (
		client     string
		maxAgeDays int
		runIDs     []string
		all        bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete runs and their change records",
		Long: "Delete runs by age, by ID, or wholesale for a client. Change records\n" +
			"belonging to deleted runs are removed in the same transaction.",
		Example: `  ctk cleanup --client acme --max-age-days 90
  ctk cleanup --run-id 6b9f2b3a-1f2d-4c11-9a7e-52f1a3b0c9d4
  ctk cleanup --client acme --all`,
		RunE: func(_ *cobra.Command, _ []string) error {
			c := newClient()
			res, err := c.Cleanup(context.Background(), &apiclient.CleanupRequest{
				Client:     client,
				MaxAgeDays: maxAgeDays,
				RunIDs:     runIDs,
				All:        all,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Deleted %d runs and %d changes.\n", res.RunsDeleted, res.ChangesDeleted)
			return nil
		},
	}

	cmd.Flags().StringVar(&client, "client", "", "client namespace")
	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 0, "delete runs older than this many days")
	cmd.Flags().StringArrayVar(&runIDs, "run-id", nil, "run ID to delete; repeatable")
	cmd.Flags().BoolVar(&all, "all", false, "delete all runs for the client")

	return cmd
}
