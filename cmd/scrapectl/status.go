package main

import (
	"fmt"
	"github.com/maxaizer/jobscout/internal/clients/api"
	"github.com/spf13/cobra"
	"time"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the status of the latest scrape",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	bearer, err := resolveToken()
	if err != nil {
		return err
	}

	status, err := api.NewClient(serverURL, bearer).Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "status:   %s\n", status.State)
	if status.StartedAt != nil {
		fmt.Fprintf(out, "started:  %s\n", status.StartedAt.Local().Format(time.DateTime))
	}
	if status.FinishedAt != nil {
		fmt.Fprintf(out, "finished: %s\n", status.FinishedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintf(out, "postings: %d\n", status.PostingCount)
	if failed := status.FailedSourcesAsArray(); len(failed) > 0 {
		fmt.Fprintf(out, "failed:   %v\n", failed)
	}
	return nil
}
