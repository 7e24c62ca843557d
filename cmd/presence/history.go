package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/presence/internal/adapter/output"
	"github.com/jmylchreest/presence/internal/config"
	"github.com/jmylchreest/presence/internal/model"
	"github.com/jmylchreest/presence/internal/store"
)

var historyOpts struct {
	limit    int
	failed   bool
	format   string
	template string
}

var pruneOpts struct {
	olderThan string
	keep      int
	dryRun    bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent status events",
	Long: `Show the status events presenced recorded after set and clear
attempts, newest first.

Examples:
  # Last 20 events
  presence history

  # Only failures, as JSON
  presence history --failed --format json

  # Custom format
  presence history --template '{{.Time.Format "15:04"}} {{.Msg}}'`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old events from the history",
	Long: `Remove old events from the status history.

Examples:
  # Remove events older than 7 days
  presence history prune --older-than 7d

  # Keep only the 100 most recent events
  presence history prune --keep 100

  # Preview what would be removed (dry run)
  presence history prune --older-than 48h --dry-run`,
	Args: cobra.NoArgs,
	RunE: runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyPruneCmd)

	historyCmd.Flags().IntVarP(&historyOpts.limit, "limit", "n", 20,
		"Maximum events to show (0=unlimited)")
	historyCmd.Flags().BoolVar(&historyOpts.failed, "failed", false,
		"Only show failed attempts")
	historyCmd.Flags().StringVarP(&historyOpts.format, "format", "f", "plain",
		"Output format: json, yaml, plain")
	historyCmd.Flags().StringVar(&historyOpts.template, "template", "",
		"Go template for plain output, executed per event")

	historyPruneCmd.Flags().StringVar(&pruneOpts.olderThan, "older-than", "",
		"Remove events older than this duration (e.g., 48h, 7d, 1w)")
	historyPruneCmd.Flags().IntVar(&pruneOpts.keep, "keep", 0,
		"Keep only the N most recent events (0=unlimited)")
	historyPruneCmd.Flags().BoolVar(&pruneOpts.dryRun, "dry-run", false,
		"Show what would be removed without actually removing")
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(historyOpts.format)
	if err != nil {
		return err
	}

	history, err := openHistory()
	if err != nil {
		return err
	}
	defer history.Close()

	events := history.Recent(0)
	if historyOpts.failed {
		events = failedOnly(events)
	}
	if historyOpts.limit > 0 && len(events) > historyOpts.limit {
		events = events[:historyOpts.limit]
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = historyOpts.template
	return output.NewFormatter(format, opts).FormatHistory(cmd.OutOrStdout(), events)
}

// openHistory opens the log with room for everything the daemon may
// have written before compacting.
func openHistory() (*store.History, error) {
	settings, err := config.LoadDaemonConfig("")
	if err != nil {
		logger.Debug("using default history settings", "error", err)
		settings = config.DefaultDaemonConfig()
	}
	return store.Open(config.HistoryPath(), 2*settings.History.MaxEntries)
}

func failedOnly(events []model.Event) []model.Event {
	var result []model.Event
	for _, e := range events {
		if !e.OK {
			result = append(result, e)
		}
	}
	return result
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	if pruneOpts.olderThan == "" && pruneOpts.keep == 0 {
		return fmt.Errorf("specify --older-than or --keep")
	}

	olderThan, err := store.ParseDuration(pruneOpts.olderThan)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}

	history, err := openHistory()
	if err != nil {
		return err
	}
	defer history.Close()

	removed, err := history.Prune(store.PruneOptions{
		OlderThan: olderThan,
		Keep:      pruneOpts.keep,
		DryRun:    pruneOpts.dryRun,
	}, time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(removed) == 0 {
		fmt.Fprintln(out, "No events to remove")
		return nil
	}

	if pruneOpts.dryRun {
		fmt.Fprintf(out, "Would remove %d event(s):\n", len(removed))
		for i, e := range removed {
			if i >= 10 {
				fmt.Fprintf(out, "  ... and %d more\n", len(removed)-10)
				break
			}
			fmt.Fprintf(out, "  - %s %s\n", e.Time.Local().Format("2006-01-02 15:04:05"), e.Msg)
		}
		return nil
	}

	fmt.Fprintf(out, "Removed %d event(s)\n", len(removed))
	return nil
}
