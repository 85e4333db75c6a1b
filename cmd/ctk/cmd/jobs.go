package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apiclient "github.com/jmhart/catalog-tracker/internal/api/client"
	"github.com/jmhart/catalog-tracker/pkg/normalize"
	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

func jobsCmd() *cobra.Command {
	jobsRoot := &cobra.Command{
		Use:   "jobs",
		Short: "Start, inspect, and cancel ingestion jobs",
	}

	jobsRoot.AddCommand(
		jobsStartCmd(),
		jobsStatusCmd(),
		jobsCancelCmd(),
	)

	return jobsRoot
}

func jobsStartCmd() *cobra.Command {
	var (
		client     string
		categories []string
		batchFile  string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start an ingestion job",
		Long: "Start an ingestion job for a client. With --batches the records are read\n" +
			"from a JSON file mapping category names to record arrays and ingested\n" +
			"inline; otherwise the server fetches them from the client's feed.",
		Example: `  ctk jobs start --client acme
  ctk jobs start --client acme --category widgets --category gadgets
  ctk jobs start --client acme --batches records.json`,
		RunE: func(_ *cobra.Command, _ []string) error {
			req := &apiclient.StartJobRequest{
				Client: client,
				Config: domain.RunConfig{Categories: categories},
			}

			if batchFile != "" {
				data, err := os.ReadFile(batchFile) //nolint:gosec // path from CLI flag
				if err != nil {
					return fmt.Errorf("reading batches file: %w", err)
				}
				var batches map[string][]normalize.RawRecord
				if err := json.Unmarshal(data, &batches); err != nil {
					return fmt.Errorf("parsing batches file: %w", err)
				}
				req.Batches = batches
			}

			c := newClient()
			id, err := c.StartJob(context.Background(), req)
			if err != nil {
				return err
			}

			fmt.Printf("Job started: %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&client, "client", "", "client namespace")
	cmd.Flags().StringArrayVar(&categories, "category", nil, "category to ingest; repeatable")
	cmd.Flags().StringVar(&batchFile, "batches", "", "JSON file with inline record batches")
	cobra.CheckErr(cmd.MarkFlagRequired("client"))

	return cmd
}

func jobsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show job status",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()
			r, err := c.GetJob(context.Background(), args[0])
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

func jobsCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Request cooperative cancellation of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()
			if err := c.CancelJob(context.Background(), args[0]); err != nil {
				return err
			}

			fmt.Printf("Cancellation requested for %s.\n", args[0])
			return nil
		},
	}
}
