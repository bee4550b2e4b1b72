package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/collector"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/config"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/filter"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

// Flag names shared by several commands.
const (
	flagHost        = "host"
	flagPort        = "port"
	flagUser        = "user"
	flagDatabase    = "database"
	flagPassword    = "password"
	flagDSN         = "dsn"
	flagMemory      = "memory"
	flagMetricsFile = "metrics-file"
	flagType        = "type"
	flagInput       = "input-config"
	flagOutput      = "output-config"
	flagUnmatched   = "unmatched"
	flagSkip        = "skip"
	flagOnly        = "only"
	flagFormat      = "format"
	flagDryRun      = "dry-run"
	flagNoHistory   = "no-history"
)

// ErrMissingInput is returned when no input configuration file was given.
var ErrMissingInput = errors.New("--input-config is required")

// addConnectionFlags registers the database connection flags. The short
// forms follow psql.
func addConnectionFlags(fs *pflag.FlagSet) {
	fs.String(flagHost, config.DefaultHost, "database server host")
	fs.Int(flagPort, config.DefaultPort, "database server port")
	fs.StringP(flagUser, "U", config.DefaultUser, "database user")
	fs.StringP(flagDatabase, "d", config.DefaultDatabase, "database name")
	fs.StringP(flagPassword, "w", "", "database password")
	fs.String(flagDSN, "", "full connection string (overrides the flags above)")
}

// addSampleFlags registers the flags that decide where a workload sample
// and the memory size come from.
func addSampleFlags(fs *pflag.FlagSet) {
	fs.String(flagMemory, "", "total memory to tune for, e.g. 8192, 8G (default: detected)")
	fs.String(flagMetricsFile, "", "read the metric sample from a YAML or JSON file instead of the database")
	fs.String(flagType, "", "force the workload type (OLTP, OLAP, Web, Desktop, Mixed) and skip collection")
}

// addTuneFlags registers the flags of the tuning run.
func addTuneFlags(fs *pflag.FlagSet) {
	fs.StringP(flagInput, "i", "", "configuration file to read (required)")
	fs.StringP(flagOutput, "o", config.DefaultOutput, `configuration file to write ("-" for stdout)`)
	fs.String(flagUnmatched, config.DefaultUnmatched, "settings with no line in the input: drop, append or fail")
	fs.StringSlice(flagSkip, nil, "glob patterns of settings to leave untouched (repeatable)")
	fs.StringSlice(flagOnly, nil, "glob patterns of the only settings to rewrite (repeatable)")
	fs.String(flagFormat, config.DefaultFormat, "report format: pretty, plain, markdown, json, yaml")
	fs.Bool(flagDryRun, false, "print the tuned configuration to stdout instead of writing it")
	fs.Bool(flagNoHistory, false, "do not record this run in the history")
}

// changed reports whether a flag exists in fs and was set on the command line.
func changed(fs *pflag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	return f != nil && f.Changed
}

// applyFlags overlays flags that were set explicitly onto cfg, so command
// line beats environment beats config file beats defaults.
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && changed(fs, name) {
			*dst, err = fs.GetString(name)
		}
	}

	str(flagHost, &cfg.Database.Host)
	str(flagUser, &cfg.Database.User)
	str(flagDatabase, &cfg.Database.Name)
	str(flagPassword, &cfg.Database.Password)
	str(flagDSN, &cfg.Database.DSN)
	str(flagOutput, &cfg.Output)
	str(flagUnmatched, &cfg.Unmatched)
	str(flagFormat, &cfg.Format)
	if err != nil {
		return err
	}

	if changed(fs, flagPort) {
		if cfg.Database.Port, err = fs.GetInt(flagPort); err != nil {
			return err
		}
	}
	if changed(fs, flagSkip) {
		if cfg.Skip, err = fs.GetStringSlice(flagSkip); err != nil {
			return err
		}
	}
	if changed(fs, flagNoHistory) {
		noHistory, err := fs.GetBool(flagNoHistory)
		if err != nil {
			return err
		}
		if noHistory {
			cfg.History.Enabled = false
		}
	}

	if cfg.Output != "-" {
		if cfg.Output, err = config.ExpandPath(cfg.Output); err != nil {
			return err
		}
	}
	return nil
}

// sampleFlags holds the resolved sample flags.
type sampleFlags struct {
	Memory      string
	MetricsFile string
	Archetype   types.Archetype
	Forced      bool
}

func readSampleFlags(fs *pflag.FlagSet) (sampleFlags, error) {
	var sf sampleFlags
	var err error

	if sf.Memory, err = getString(fs, flagMemory); err != nil {
		return sf, err
	}
	if sf.MetricsFile, err = getString(fs, flagMetricsFile); err != nil {
		return sf, err
	}
	if sf.MetricsFile, err = config.ExpandPath(sf.MetricsFile); err != nil {
		return sf, err
	}

	name, err := getString(fs, flagType)
	if err != nil {
		return sf, err
	}
	if name != "" {
		if sf.Archetype, err = types.ParseArchetype(name); err != nil {
			return sf, fmt.Errorf("invalid --type: %w", err)
		}
		sf.Forced = true
	}
	return sf, nil
}

// getString returns a string flag, or "" when fs does not define it.
func getString(fs *pflag.FlagSet, name string) (string, error) {
	if fs.Lookup(name) == nil {
		return "", nil
	}
	v, err := fs.GetString(name)
	return strings.TrimSpace(v), err
}

// buildFilter creates the key filter from --skip (already folded into
// cfg.Skip) and --only.
func buildFilter(skip, only []string) (*filter.Filter, error) {
	f, err := filter.New(filter.WithExclude(skip...), filter.WithInclude(only...))
	if err != nil {
		return nil, fmt.Errorf("invalid key pattern: %w", err)
	}
	return f, nil
}

// sampleSource picks where the metric sample comes from and describes it
// for the report. Passwords never appear in the description.
func sampleSource(db config.DatabaseConfig, metricsFile string) (collector.Source, string) {
	if metricsFile != "" {
		return collector.File{Path: metricsFile}, metricsFile
	}
	return collector.NewPostgres(db.ConnString(), collector.WithConnectTimeout(db.ConnectTimeout)), db.Redacted()
}
