package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage pgtuner configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/pgtuner/config.yaml (if set)
  2. ~/.config/pgtuner/config.yaml

Environment variables can override config file settings using the PGTUNER_ prefix:
  PGTUNER_DATABASE_HOST=db.internal
  PGTUNER_DATABASE_PASSWORD=secret
  PGTUNER_UNMATCHED=append`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration from all sources. Passwords are masked.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	return writeConfig(cmd.OutOrStdout(), appConfig)
}

// writeConfig prints the effective configuration and any environment
// overrides.
func writeConfig(w io.Writer, cfg *config.Config) error {
	var sb strings.Builder

	if cfg.File != "" {
		fmt.Fprintf(&sb, "Config file: %s\n\n", cfg.File)
	} else {
		sb.WriteString("Config file: (using defaults, no file found)\n\n")
	}

	logPath := cfg.Logging.Path
	if logPath == "" {
		logPath = config.DefaultLogPath()
	}

	sb.WriteString("Current Configuration:\n")
	sb.WriteString("----------------------\n")
	fmt.Fprintf(&sb, "database:                 %s\n", cfg.Database.Redacted())
	fmt.Fprintf(&sb, "database.connect_timeout: %s\n", cfg.Database.ConnectTimeout)
	fmt.Fprintf(&sb, "output:                   %s\n", cfg.Output)
	fmt.Fprintf(&sb, "unmatched:                %s\n", cfg.Unmatched)
	fmt.Fprintf(&sb, "skip:                     %v\n", cfg.Skip)
	fmt.Fprintf(&sb, "format:                   %s\n", cfg.Format)
	fmt.Fprintf(&sb, "history.enabled:          %t\n", cfg.History.Enabled)
	fmt.Fprintf(&sb, "history.path:             %s\n", cfg.History.Path)
	fmt.Fprintf(&sb, "history.retention:        %d days\n", cfg.History.RetentionDays)
	fmt.Fprintf(&sb, "logging.level:            %s\n", cfg.Logging.Level)
	fmt.Fprintf(&sb, "logging.path:             %s\n", logPath)

	sb.WriteString("\nEnvironment Overrides:\n")
	sb.WriteString("----------------------\n")
	anyOverrides := false
	for _, kv := range os.Environ() {
		name, val, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(name, "PGTUNER_") || val == "" {
			continue
		}
		if strings.Contains(name, "PASSWORD") || strings.Contains(name, "DSN") {
			val = "xxxxx"
		}
		fmt.Fprintf(&sb, "%s=%s\n", name, val)
		anyOverrides = true
	}
	if !anyOverrides {
		sb.WriteString("(none)\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func runConfigEdit(_ *cobra.Command, _ []string) error {
	configPath, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'pgtuner config edit' to modify it.")
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
