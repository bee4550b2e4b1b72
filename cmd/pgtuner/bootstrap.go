package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/config"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/logging"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

// initializeLogging is the root PersistentPreRunE hook. It creates the XDG
// directories, loads the configuration, applies flag overrides and starts
// the component loggers.
func initializeLogging(cmd *cobra.Command, _ []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	for _, dir := range []string{config.DataDir(), config.StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return err
	}
	if cmd != nil {
		if err := applyFlags(cmd.Flags(), cfg); err != nil {
			return err
		}
	}
	appConfig = cfg

	level := cfg.Logging.Level
	consoleLevel := "warn"
	switch {
	case quiet:
		consoleLevel = "error"
	case verbose:
		level = "debug"
		consoleLevel = "debug"
	}

	logCfg := logging.Config{
		Level:        level,
		Path:         cfg.Logging.Path,
		Rotation:     parseRotationConfig(cfg.Logging.Rotation),
		Components:   cfg.Logging.Components,
		ConsoleLevel: consoleLevel,
	}
	if cmd != nil {
		logCfg.Console = cmd.ErrOrStderr()
	}
	if verbose {
		// Component overrides would hide the debug output asked for.
		logCfg.Components = nil
	}

	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	logger.Debug("configuration loaded", "file", cfg.File, "database", cfg.Database.Redacted())
	return nil
}

// closeLogging is the root PersistentPostRunE hook.
func closeLogging(_ *cobra.Command, _ []string) error {
	return logging.Close()
}

// parseRotationConfig converts the config file's rotation block. An empty
// or unparsable max_size falls back to the default.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	out := logging.RotationConfig{
		MaxSize:    logging.DefaultRotationConfig().MaxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}

	if rc.MaxSize != "" {
		if size, err := types.ParseSize(rc.MaxSize); err == nil && size > 0 {
			out.MaxSize = size
		} else {
			printVerbose("Invalid log max_size %q, using default", rc.MaxSize)
		}
	}

	return out
}
