package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"asha/internal/browser"

	"github.com/spf13/cobra"
)

var (
	jobsWFH   bool
	jobsLimit int
	jobsJSON  bool

	eventsLimit int
	eventsJSON  bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [keyword]",
	Short: "List HerKey job openings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJobs,
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List featured HerKey events",
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

func init() {
	jobsCmd.Flags().BoolVar(&jobsWFH, "wfh", false, "Only work-from-home jobs")
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 10, "Maximum jobs to print (0 = all)")
	jobsCmd.Flags().BoolVar(&jobsJSON, "json", false, "Output as JSON")

	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 10, "Maximum events to print (0 = all)")
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "Output as JSON")
}

// jobBoard is the slice of browser.HerKey the listing commands need.
type jobBoard interface {
	AllJobs(ctx context.Context) ([]browser.Job, error)
	WorkFromHomeJobs(ctx context.Context) ([]browser.Job, error)
	JobsByKeyword(ctx context.Context, keyword string) ([]browser.Job, error)
	FeaturedEvents(ctx context.Context) ([]browser.Event, error)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()

	a := newListingsApp(cfg)
	defer a.Close(context.Background())

	keyword := ""
	if len(args) == 1 {
		keyword = args[0]
	}
	return printJobs(ctx, cmd.OutOrStdout(), a.herkey, keyword)
}

func runEvents(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()

	a := newListingsApp(cfg)
	defer a.Close(context.Background())

	return printEvents(ctx, cmd.OutOrStdout(), a.herkey)
}

func printJobs(ctx context.Context, w io.Writer, board jobBoard, keyword string) error {
	var (
		jobs []browser.Job
		err  error
	)
	switch {
	case jobsWFH:
		jobs, err = board.WorkFromHomeJobs(ctx)
	case keyword != "":
		jobs, err = board.JobsByKeyword(ctx, keyword)
	default:
		jobs, err = board.AllJobs(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch jobs: %w", err)
	}
	if jobsLimit > 0 && len(jobs) > jobsLimit {
		jobs = jobs[:jobsLimit]
	}

	if jobsJSON {
		return writeJSON(w, jobs)
	}
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs found.")
		return nil
	}
	for i, j := range jobs {
		fmt.Fprintf(w, "%d. %s at %s\n", i+1, j.Title, j.Company)
		fmt.Fprintf(w, "   %s | %s | %s\n", j.Location, j.WorkType, j.Experience)
	}
	return nil
}

func printEvents(ctx context.Context, w io.Writer, board jobBoard) error {
	events, err := board.FeaturedEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}
	if eventsLimit > 0 && len(events) > eventsLimit {
		events = events[:eventsLimit]
	}

	if eventsJSON {
		return writeJSON(w, events)
	}
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}
	for i, e := range events {
		fmt.Fprintf(w, "%d. %s\n   %s\n", i+1, e.Name, e.Link)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
