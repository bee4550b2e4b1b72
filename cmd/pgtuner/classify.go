package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/classifier"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Score a workload sample against every workload type",
	Long: `Collect a sample (or read one with --metrics-file) and print the score of
every workload type. The highest score wins; ties go to the type listed
first.`,
	Args: cobra.NoArgs,
	RunE: runClassify,
}

var classifyFormat string

func init() {
	classifyCmd.Flags().String(flagMetricsFile, "", "read the metric sample from a YAML or JSON file instead of the database")
	classifyCmd.Flags().StringVar(&classifyFormat, flagFormat, "plain", "output format: plain, yaml or json")
	rootCmd.AddCommand(classifyCmd)
}

// classification is the machine-readable classify output.
type classification struct {
	Archetype types.Archetype    `json:"archetype" yaml:"archetype"`
	Scores    map[string]float64 `json:"scores" yaml:"scores"`
	Sample    types.MetricSample `json:"sample" yaml:"sample"`
}

func runClassify(cmd *cobra.Command, _ []string) error {
	sf, err := readSampleFlags(cmd.Flags())
	if err != nil {
		return err
	}

	source, desc := sampleSource(appConfig.Database, sf.MetricsFile)
	printVerbose("Collecting from %s", desc)

	sample, err := source.Collect(cmd.Context())
	if err != nil {
		return err
	}

	scores := classifier.Score(sample)
	if classifyFormat == "plain" {
		return writeScores(cmd.OutOrStdout(), scores)
	}
	return encodeValue(cmd.OutOrStdout(), classifyFormat, classification{
		Archetype: scores.Best(),
		Scores:    scores.Map(),
		Sample:    sample,
	})
}

// writeScores prints one line per archetype and marks the winner.
func writeScores(w io.Writer, scores classifier.Scores) error {
	best := scores.Best()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tSCORE\t")
	for _, a := range types.Archetypes() {
		mark := ""
		if a == best {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%.4f\t%s\n", a, scores.Get(a), mark)
	}
	return tw.Flush()
}
