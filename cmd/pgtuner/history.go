package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/config"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/history"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/pgconf"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View previous tuning runs",
	Long: `View the history of tuning runs.

Every run records the workload it detected, the memory it sized for and
the settings it wrote, so a change can be traced back later.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific run",
	Long:  `Display a run by its ID. A unique prefix of the ID is enough.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove runs older than the retention period",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of runs to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens the configured history store.
func openHistory() (*history.Store, error) {
	path := appConfig.History.Path
	if path == "" {
		path = config.DefaultHistoryPath()
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(records) == 0 {
		printInfo("No runs recorded yet.")
		printInfo("Run 'pgtuner -i postgresql.conf' to tune a configuration.")
		return nil
	}

	return writeHistory(cmd.OutOrStdout(), records)
}

// writeHistory prints one line per run, newest first.
func writeHistory(w io.Writer, records []history.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tTYPE\tMEMORY\tOUTPUT\t")
	for _, r := range records {
		archetype := r.Archetype.String()
		if r.Forced {
			archetype += " (forced)"
		}
		out := r.Output
		if r.DryRun {
			out = "(dry run)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			r.ShortID(),
			humanize.Time(r.Timestamp),
			archetype,
			types.FormatMemory(r.MemoryMB),
			out)
	}
	return tw.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(args[0])
	if err != nil {
		return err
	}

	return writeRecord(cmd.OutOrStdout(), rec)
}

// writeRecord prints the details of one run.
func writeRecord(w io.Writer, r *history.Record) error {
	var sb strings.Builder

	sb.WriteString("\nRun Details\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "ID:         %s\n", r.ID)
	fmt.Fprintf(&sb, "Timestamp:  %s (%s)\n", r.Timestamp.Local().Format("2006-01-02 15:04:05 MST"), humanize.Time(r.Timestamp))
	fmt.Fprintf(&sb, "Input:      %s\n", r.Input)
	fmt.Fprintf(&sb, "Output:     %s\n", r.Output)
	if r.Source != "" {
		fmt.Fprintf(&sb, "Metrics:    %s\n", r.Source)
	}
	fmt.Fprintf(&sb, "Memory:     %s\n", types.FormatMemory(r.MemoryMB))
	fmt.Fprintf(&sb, "Workload:   %s\n", r.Archetype)
	if r.DryRun {
		sb.WriteString("Dry run:    yes\n")
	}

	if len(r.Scores) > 0 {
		sb.WriteString("\nScores:\n")
		for _, a := range types.Archetypes() {
			if v, ok := r.Scores[a.String()]; ok {
				fmt.Fprintf(&sb, "  %-8s %8.4f\n", a, v)
			}
		}
	}

	if len(r.Settings) > 0 {
		sb.WriteString("\nSettings:\n")
		for _, s := range r.Settings {
			sb.WriteString("  " + pgconf.Render(s, ""))
		}
	}
	if len(r.Unmatched) > 0 {
		fmt.Fprintf(&sb, "\nUnmatched:  %s\n", strings.Join(r.Unmatched, ", "))
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(&sb, "Skipped:    %s\n", strings.Join(r.Skipped, ", "))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func runHistoryClean(_ *cobra.Command, _ []string) error {
	retentionDays := appConfig.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	printInfo("Cleaning runs older than %d days...", retentionDays)

	removed, err := store.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("Removed %d run(s).", removed)
	return nil
}
