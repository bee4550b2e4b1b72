package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/config"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/filter"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/history"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/output"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/pgconf"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

const inputConf = "# connections\n" +
	"max_connections = 100\t\t\t# (change requires restart)\n" +
	"listen_addresses = '*'\n" +
	"shared_buffers = 128MB\t\t\t# min 128kB\n" +
	"#work_mem = 4MB\t\t\t\t# min 64kB\n"

const oltpSampleYAML = `write_ratio: 0.8
read_ratio: 0.2
tps: 1500
cache_hit_ratio: 0.95
complexity_score: 1
active_ratio: 0.2
`

type tuneFixture struct {
	dir     string
	input   string
	output  string
	sample  string
	history string
}

func newTuneFixture(t *testing.T) tuneFixture {
	t.Helper()
	dir := t.TempDir()
	f := tuneFixture{
		dir:     dir,
		input:   filepath.Join(dir, "postgresql.conf"),
		output:  filepath.Join(dir, "tuned.conf"),
		sample:  filepath.Join(dir, "sample.yaml"),
		history: filepath.Join(dir, "history"),
	}
	require.NoError(t, os.WriteFile(f.input, []byte(inputConf), 0o600))
	require.NoError(t, os.WriteFile(f.sample, []byte(oltpSampleYAML), 0o600))
	return f
}

func (f tuneFixture) options() tuneOptions {
	return tuneOptions{
		Input:     f.input,
		Output:    f.output,
		Sample:    sampleFlags{Memory: "8192", MetricsFile: f.sample},
		Unmatched: "drop",
		Format:    "json",
		History:   config.HistoryConfig{Enabled: true, Path: f.history, RetentionDays: 90},
	}
}

func TestTune_ClassifiesWritesAndRecords(t *testing.T) {
	f := newTuneFixture(t)
	var stdout, stderr bytes.Buffer

	report, err := tune(context.Background(), f.options(), &stdout, &stderr)
	require.NoError(t, err)

	assert.Equal(t, types.OLTP, report.Archetype)
	assert.False(t, report.Forced)
	assert.Len(t, report.Scores, types.NumArchetypes)
	assert.Equal(t, int64(8192), report.MemoryMB)
	assert.False(t, report.MemoryDetected)
	assert.Equal(t, f.sample, report.Source)

	got, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Equal(t, "# connections\n"+
		"max_connections = 300 # (change requires restart)\n"+
		"listen_addresses = '*'\n"+
		"shared_buffers = 2048MB # min 128kB\n"+
		"work_mem = 28MB #work_mem = 4MB\t\t\t\t# min 64kB\n", string(got))

	assert.Equal(t, map[string]int{
		types.KeyMaxConnections: 2,
		types.KeySharedBuffers:  4,
		types.KeyWorkMem:        5,
	}, report.Applied)
	assert.Equal(t, []string{
		types.KeyEffectiveCacheSize,
		types.KeyMaintenanceWorkMem,
		types.KeyCheckpointSegments,
		types.KeyCheckpointCompletionTarget,
		types.KeyDefaultStatisticsTarget,
	}, report.Unmatched)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "--unmatched append")

	assert.Contains(t, stdout.String(), `"archetype": "OLTP"`)
	assert.Empty(t, stderr.String())

	// The run is in the history.
	require.NotEmpty(t, report.HistoryID)
	store, err := history.Open(f.history)
	require.NoError(t, err)
	defer store.Close()

	rec, err := store.Get(report.HistoryID)
	require.NoError(t, err)
	assert.Equal(t, types.OLTP, rec.Archetype)
	assert.Equal(t, f.output, rec.Output)
	assert.Len(t, rec.Scores, types.NumArchetypes)
	require.NotNil(t, rec.Sample)
	assert.Equal(t, 1500.0, rec.Sample.Value(types.MetricTPS))
}

func TestTune_DryRunWithForcedType(t *testing.T) {
	f := newTuneFixture(t)
	opts := f.options()
	opts.DryRun = true
	opts.Format = "plain"
	opts.Sample = sampleFlags{Memory: "8G", Archetype: types.OLTP, Forced: true}
	opts.History.Enabled = false

	var stdout, stderr bytes.Buffer
	report, err := tune(context.Background(), opts, &stdout, &stderr)
	require.NoError(t, err)

	assert.True(t, report.Forced)
	assert.Empty(t, report.Scores)
	assert.Nil(t, report.Sample)
	assert.Empty(t, report.HistoryID)

	assert.NoFileExists(t, f.output)
	assert.True(t, strings.HasPrefix(stdout.String(), "# connections\nmax_connections = 300 #"))
	assert.Contains(t, stderr.String(), "archetype")
	assert.Contains(t, stderr.String(), "OLTP")
}

func TestTune_SkipAndAppend(t *testing.T) {
	f := newTuneFixture(t)
	opts := f.options()
	opts.Unmatched = "append"
	opts.Skip = []string{"checkpoint_*"}
	opts.Sample = sampleFlags{Memory: "16384", Archetype: types.OLAP, Forced: true}
	opts.History.Enabled = false

	var stdout bytes.Buffer
	report, err := tune(context.Background(), opts, &stdout, &stdout)
	require.NoError(t, err)

	assert.Equal(t, []string{types.KeyCheckpointSegments, types.KeyCheckpointCompletionTarget}, report.Skipped)
	assert.Empty(t, report.Warnings)

	got, err := os.ReadFile(f.output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(got), "\n"), "\n")

	require.Len(t, lines, 8, "five original lines plus three appended")
	assert.Equal(t, []string{
		"effective_cache_size = 12288MB #",
		"maintenance_work_mem = 2048MB #",
		"default_statistics_target = 500 #",
	}, lines[5:])
	assert.NotContains(t, string(got), "checkpoint_")
}

func TestTune_UnmatchedFailWritesNothing(t *testing.T) {
	f := newTuneFixture(t)
	opts := f.options()
	opts.Unmatched = "fail"
	opts.History.Enabled = false

	var out bytes.Buffer
	_, err := tune(context.Background(), opts, &out, &out)

	require.ErrorIs(t, err, types.ErrUnmatchedKeys)
	assert.NoFileExists(t, f.output)
	assert.Empty(t, out.String())
}

func TestTune_QuietPrintsNoReport(t *testing.T) {
	f := newTuneFixture(t)
	opts := f.options()
	opts.Quiet = true
	opts.History.Enabled = false

	var out bytes.Buffer
	_, err := tune(context.Background(), opts, &out, &out)
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.FileExists(t, f.output)
}

func TestTune_Errors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*tuneOptions, tuneFixture)
		wantErr error
	}{
		{
			name:    "missing input file",
			modify:  func(o *tuneOptions, f tuneFixture) { o.Input = filepath.Join(f.dir, "nope.conf") },
			wantErr: types.ErrConfigRead,
		},
		{
			name:    "unknown report format",
			modify:  func(o *tuneOptions, _ tuneFixture) { o.Format = "xml" },
			wantErr: output.ErrUnknownFormatter,
		},
		{
			name:    "unknown unmatched policy",
			modify:  func(o *tuneOptions, _ tuneFixture) { o.Unmatched = "ignore" },
			wantErr: pgconf.ErrInvalidPolicy,
		},
		{
			name:    "skip pattern matching nothing",
			modify:  func(o *tuneOptions, _ tuneFixture) { o.Skip = []string{"fsync"} },
			wantErr: filter.ErrNoMatchingKey,
		},
		{
			name:    "missing metrics file",
			modify:  func(o *tuneOptions, f tuneFixture) { o.Sample.MetricsFile = filepath.Join(f.dir, "none.yaml") },
			wantErr: types.ErrSourceUnreachable,
		},
		{
			name:    "invalid memory",
			modify:  func(o *tuneOptions, _ tuneFixture) { o.Sample.Memory = "lots" },
			wantErr: types.ErrMemoryDetection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTuneFixture(t)
			opts := f.options()
			opts.History.Enabled = false
			tt.modify(&opts, f)

			var out bytes.Buffer
			_, err := tune(context.Background(), opts, &out, &out)
			require.ErrorIs(t, err, tt.wantErr)
			assert.NoFileExists(t, f.output)
		})
	}
}
