package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/classifier"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/config"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/history"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/output"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/pgconf"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/tuner"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

// tuneOptions is everything a tuning run needs, resolved from the
// configuration and the command line.
type tuneOptions struct {
	Input     string
	Output    string
	Sample    sampleFlags
	Database  config.DatabaseConfig
	Unmatched string
	Skip      []string
	Only      []string
	Format    string
	DryRun    bool
	Quiet     bool
	History   config.HistoryConfig
}

// tuneOptionsFrom merges the flags of the root command with cfg, which
// already carries the overrides applied by applyFlags.
func tuneOptionsFrom(fs *pflag.FlagSet, cfg *config.Config) (tuneOptions, error) {
	opts := tuneOptions{
		Output:    cfg.Output,
		Database:  cfg.Database,
		Unmatched: cfg.Unmatched,
		Skip:      cfg.Skip,
		Format:    cfg.Format,
		Quiet:     quiet,
		History:   cfg.History,
	}

	input, err := getString(fs, flagInput)
	if err != nil {
		return opts, err
	}
	if input == "" {
		return opts, ErrMissingInput
	}
	if opts.Input, err = config.ExpandPath(input); err != nil {
		return opts, err
	}

	if opts.Sample, err = readSampleFlags(fs); err != nil {
		return opts, err
	}
	if opts.Only, err = fs.GetStringSlice(flagOnly); err != nil {
		return opts, err
	}
	if opts.DryRun, err = fs.GetBool(flagDryRun); err != nil {
		return opts, err
	}
	return opts, nil
}

// runTune is the root command handler.
func runTune(cmd *cobra.Command, _ []string) error {
	opts, err := tuneOptionsFrom(cmd.Flags(), appConfig)
	if err != nil {
		return err
	}
	_, err = tune(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return err
}

// tune runs the whole pipeline: read the input file, size memory, pick the
// workload, derive settings, merge and write, record history, report.
// The tuned file goes to stdout for dry runs and "-o -", in which case the
// report goes to stderr.
func tune(ctx context.Context, opts tuneOptions, stdout, stderr io.Writer) (*output.Report, error) {
	start := time.Now()

	// Validate cheap inputs before touching the database.
	formatter, err := output.Get(opts.Format)
	if err != nil {
		return nil, err
	}
	policy, err := pgconf.ParsePolicy(opts.Unmatched)
	if err != nil {
		return nil, err
	}
	keys, err := buildFilter(opts.Skip, opts.Only)
	if err != nil {
		return nil, err
	}

	doc, err := pgconf.ReadFile(opts.Input)
	if err != nil {
		return nil, err
	}

	report := &output.Report{
		Input:  opts.Input,
		Output: opts.Output,
		Policy: policy.String(),
		DryRun: opts.DryRun,
	}

	if report.MemoryMB, err = tuner.ResolveMemory(ctx, opts.Sample.Memory); err != nil {
		return nil, err
	}
	report.MemoryDetected = opts.Sample.Memory == ""

	if opts.Sample.Forced {
		report.Archetype = opts.Sample.Archetype
		report.Forced = true
		logger.Info("workload forced", "archetype", report.Archetype)
	} else {
		source, desc := sampleSource(opts.Database, opts.Sample.MetricsFile)
		report.Source = desc

		sample, err := source.Collect(ctx)
		if err != nil {
			return nil, err
		}
		report.Sample = &sample

		scores := classifier.Score(sample)
		report.Archetype = scores.Best()
		report.Scores = scoreList(scores)
		logger.Info("workload classified", "archetype", report.Archetype, "score", scores.Get(report.Archetype))
	}

	settings, err := tuner.Calculate(report.MemoryMB, report.Archetype)
	if err != nil {
		return nil, err
	}
	report.Settings, report.Skipped = keys.Apply(settings)

	reportOut := stdout
	var result *pgconf.Result
	if opts.DryRun || opts.Output == "-" {
		result, err = doc.Write(stdout, report.Settings, pgconf.WithPolicy(policy))
		reportOut = stderr
	} else {
		result, err = doc.WriteFile(opts.Output, report.Settings, pgconf.WithPolicy(policy))
	}
	if err != nil {
		return nil, err
	}
	report.Applied = result.Applied
	report.Unmatched = result.Unmatched

	if len(result.Unmatched) > 0 && policy == pgconf.PolicyDrop {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"%d setting(s) have no line in %s and were left out; use --unmatched append to add them",
			len(result.Unmatched), opts.Input))
	}

	if opts.History.Enabled {
		id, err := recordRun(opts.History, report)
		if err != nil {
			logger.Warn("history not recorded", "error", err)
			report.Warnings = append(report.Warnings, "history not recorded: "+err.Error())
		}
		report.HistoryID = id
	}

	report.Duration = time.Since(start)

	if opts.Quiet {
		return report, nil
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, report); err != nil {
		return nil, fmt.Errorf("formatting report: %w", err)
	}
	if _, err := reportOut.Write(buf.Bytes()); err != nil {
		return nil, err
	}
	return report, nil
}

// scoreList flattens classifier scores in priority order.
func scoreList(scores classifier.Scores) []output.Score {
	list := make([]output.Score, 0, types.NumArchetypes)
	for _, a := range types.Archetypes() {
		list = append(list, output.Score{Archetype: a, Value: scores.Get(a)})
	}
	return list
}

// recordRun stores the run in the history and prunes expired runs.
func recordRun(hc config.HistoryConfig, r *output.Report) (string, error) {
	store, err := history.Open(hc.Path)
	if err != nil {
		return "", err
	}
	defer store.Close()

	rec := &history.Record{
		Input:     r.Input,
		Output:    r.Output,
		Source:    r.Source,
		MemoryMB:  r.MemoryMB,
		Archetype: r.Archetype,
		Forced:    r.Forced,
		Settings:  r.Settings,
		Sample:    r.Sample,
		Unmatched: r.Unmatched,
		Skipped:   r.Skipped,
		DryRun:    r.DryRun,
	}
	if len(r.Scores) > 0 {
		rec.Scores = make(map[string]float64, len(r.Scores))
		for _, s := range r.Scores {
			rec.Scores[s.Archetype.String()] = s.Value
		}
	}

	if err := store.Put(rec); err != nil {
		return "", err
	}

	if _, err := store.Cleanup(hc.RetentionDays); err != nil {
		logger.Warn("history cleanup failed", "error", err)
	}
	return rec.ID, nil
}
