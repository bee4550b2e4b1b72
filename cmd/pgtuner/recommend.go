package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/pgconf"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/tuner"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print the settings for a workload type and memory size",
	Long: `Print the settings pgtuner would write for --type, sized for --memory (or
the detected memory), as postgresql.conf lines. No configuration file or
database is needed.

Examples:
  pgtuner recommend --type OLTP --memory 8G
  pgtuner recommend --type Desktop --format json`,
	Args: cobra.NoArgs,
	RunE: runRecommend,
}

var recommendFormat string

func init() {
	recommendCmd.Flags().String(flagType, "", "workload type: OLTP, OLAP, Web, Desktop or Mixed (required)")
	recommendCmd.Flags().String(flagMemory, "", "total memory to tune for, e.g. 8192, 8G (default: detected)")
	recommendCmd.Flags().StringVar(&recommendFormat, flagFormat, "conf", "output format: conf, yaml or json")
	_ = recommendCmd.MarkFlagRequired(flagType)
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	sf, err := readSampleFlags(cmd.Flags())
	if err != nil {
		return err
	}

	memoryMB, err := tuner.ResolveMemory(cmd.Context(), sf.Memory)
	if err != nil {
		return err
	}

	settings, err := tuner.Calculate(memoryMB, sf.Archetype)
	if err != nil {
		return err
	}
	printVerbose("%s workload, %s", sf.Archetype, types.FormatMemory(memoryMB))

	if recommendFormat == "conf" {
		return writeConf(cmd.OutOrStdout(), sf.Archetype, memoryMB, settings)
	}
	return encodeValue(cmd.OutOrStdout(), recommendFormat, settings)
}

// writeConf prints settings as postgresql.conf directives.
func writeConf(w io.Writer, archetype types.Archetype, memoryMB int64, settings types.Settings) error {
	if _, err := fmt.Fprintf(w, "# pgtuner: %s workload, %s\n", archetype, types.FormatMemory(memoryMB)); err != nil {
		return err
	}
	for _, s := range settings {
		if _, err := io.WriteString(w, pgconf.Render(s, "")); err != nil {
			return err
		}
	}
	return nil
}
