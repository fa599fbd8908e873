package main

import (
	"context"
	"fmt"
	"github.com/maxaizer/jobscout/internal/clients/api"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"github.com/maxaizer/jobscout/internal/poller"
	"github.com/spf13/cobra"
	"io"
	"os/signal"
	"syscall"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Start a scrape and wait for its result",
	Long: "Start a scrape for the token's user, poll its status until it finishes, fails or times out, " +
		"then print the postings. After a finished scrape the postings are re-fetched a few times " +
		"so that AI scores show up as they arrive.",
	RunE: runPoll,
}

var pollOptions = poller.DefaultOptions()

func init() {
	pollCmd.Flags().DurationVar(&pollOptions.Interval, "interval", pollOptions.Interval, "status polling interval")
	pollCmd.Flags().DurationVar(&pollOptions.Timeout, "timeout", pollOptions.Timeout, "give up after this long")
	pollCmd.Flags().IntVar(&pollOptions.Refetches, "refetches", pollOptions.Refetches, "re-fetches after the scrape finished")
	pollCmd.Flags().DurationVar(&pollOptions.RefetchDelay, "refetch-delay", pollOptions.RefetchDelay, "delay between re-fetches")
	pollCmd.Flags().IntVar(&pollOptions.MaxErrors, "max-errors", pollOptions.MaxErrors, "consecutive status errors before giving up")
	pollCmd.Flags().IntVar(&pollOptions.JobsLimit, "limit", pollOptions.JobsLimit, "number of postings to fetch")

	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, _ []string) error {
	bearer, err := resolveToken()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	p := poller.NewPoller(api.NewClient(serverURL, bearer), pollOptions, func(n int, postings []models.JobPosting) {
		fmt.Fprintf(out, "re-fetch %d/%d: %d postings, %d scored\n", n, pollOptions.Refetches,
			len(postings), countScored(postings))
	})

	fmt.Fprintln(out, "scrape started, polling status...")
	outcome := p.Run(ctx)
	printOutcome(out, outcome)

	if outcome.State != poller.StateDone {
		return fmt.Errorf("scrape ended with %s", outcome.State)
	}
	return nil
}

func printOutcome(w io.Writer, outcome poller.Outcome) {
	fmt.Fprintf(w, "outcome: %s", outcome.State)
	if outcome.Reason != "" {
		fmt.Fprintf(w, " (%s)", outcome.Reason)
	}
	fmt.Fprintln(w)

	if failed := outcome.Status.FailedSourcesAsArray(); len(failed) > 0 {
		fmt.Fprintf(w, "failed sources: %v\n", failed)
	}
	printPostings(w, outcome.Postings)
}

func printPostings(w io.Writer, postings []models.JobPosting) {
	for _, posting := range postings {
		score := "  -"
		if posting.AIAnalysis != nil && posting.AIAnalysis.MatchScore != nil {
			score = fmt.Sprintf("%3d", *posting.AIAnalysis.MatchScore)
		}
		fmt.Fprintf(w, "[%s] %s | %s | %s | %s\n", score, posting.Title, posting.Company, posting.Location, posting.SourceURL)
	}
}

func countScored(postings []models.JobPosting) int {
	scored := 0
	for _, posting := range postings {
		if posting.AIAnalysis != nil {
			scored++
		}
	}
	return scored
}
