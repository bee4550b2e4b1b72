package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/config"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/logging"
)

var logger = logging.Get("cli")

var (
	cfgFile string
	verbose bool
	quiet   bool

	// appConfig is loaded by initializeLogging before any command runs.
	appConfig *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgtuner",
		Short: "Tune postgresql.conf for the workload a server is running",
		Long: `pgtuner samples workload statistics from a running PostgreSQL server,
classifies the workload (OLTP, OLAP, Web, Desktop or Mixed), derives memory
and checkpoint settings for it and rewrites a postgresql.conf in place of the
existing (or commented-out) directives. Every other line is kept as is.

Statistics come from pg_stat_statements, pg_stat_activity and
pg_stat_database, so the pg_stat_statements extension must be installed.

Examples:
  pgtuner -i /etc/postgresql/16/main/postgresql.conf
  pgtuner -i postgresql.conf -o tuned.conf -U admin -d app
  pgtuner -i postgresql.conf --memory 16G --type OLAP --dry-run
  pgtuner -i postgresql.conf --metrics-file sample.yaml --skip 'checkpoint_*'
  pgtuner collect > sample.yaml
  pgtuner history`,
		Args:               cobra.NoArgs,
		SilenceUsage:       true,
		PersistentPreRunE:  initializeLogging,
		PersistentPostRunE: closeLogging,
		RunE:               runTune,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/pgtuner/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug output")
	addConnectionFlags(rootCmd.PersistentFlags())

	addSampleFlags(rootCmd.Flags())
	addTuneFlags(rootCmd.Flags())
	_ = rootCmd.MarkFlagRequired("input-config")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context, which aborts an in-flight collection.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}
