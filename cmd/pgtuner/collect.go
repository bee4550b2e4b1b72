package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/config"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect a workload sample from the database",
	Long: `Connect to the database, read pg_stat_statements, pg_stat_activity and
pg_stat_database, and print the derived metric sample.

The output can be fed back with --metrics-file, which makes it possible to
sample a production server once and tune against the sample elsewhere.`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

var (
	collectFormat string
	collectOutput string
)

func init() {
	collectCmd.Flags().StringVar(&collectFormat, flagFormat, "yaml", "output format: yaml or json")
	collectCmd.Flags().StringVarP(&collectOutput, "output", "o", "-", `file to write ("-" for stdout)`)
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, _ []string) error {
	source, desc := sampleSource(appConfig.Database, "")
	printVerbose("Collecting from %s", desc)

	sample, err := source.Collect(cmd.Context())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := encodeValue(&buf, collectFormat, sample); err != nil {
		return err
	}

	if collectOutput == "-" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}

	path, err := config.ExpandPath(collectOutput)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}
	printInfo("Wrote %d metrics to %s", sample.Len(), path)
	return nil
}

// encodeValue writes v as YAML or JSON.
func encodeValue(w io.Writer, format string, v interface{}) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported format %q (want yaml or json)", format)
	}
}
