package logging_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/logging"
)

// These tests modify global logging state and do not run in parallel.

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    logging.Level
		wantErr bool
	}{
		{"debug", logging.LevelDebug, false},
		{"INFO", logging.LevelInfo, false},
		{"", logging.LevelInfo, false},
		{"warning", logging.LevelWarn, false},
		{" error ", logging.LevelError, false},
		{"verbose", logging.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInit(t *testing.T) {
	validDir := t.TempDir()
	componentsDir := t.TempDir()
	invalidDir := t.TempDir()

	tests := []struct {
		name    string
		cfg     logging.Config
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     logging.Config{Level: "info", Path: filepath.Join(validDir, "test.log")},
			wantErr: false,
		},
		{
			name: "component overrides",
			cfg: logging.Config{
				Level: "info",
				Path:  filepath.Join(componentsDir, "components.log"),
				Components: map[string]string{
					"collector": "debug",
					"pgconf":    "warn",
				},
			},
			wantErr: false,
		},
		{
			name:    "invalid level",
			cfg:     logging.Config{Level: "loud", Path: filepath.Join(invalidDir, "invalid.log")},
			wantErr: true,
		},
		{
			name: "invalid component level",
			cfg: logging.Config{
				Level:      "info",
				Path:       filepath.Join(invalidDir, "invalid.log"),
				Components: map[string]string{"tuner": "loud"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := logging.Init(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Init() error = %v, wantErr %v", err, tt.wantErr)
			}
			_ = logging.Close()
		})
	}
}

func TestLoggerWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "write.log")

	if err := logging.Init(logging.Config{Level: "debug", Path: logPath}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	logger := logging.Get("tuner")
	logger.Info("settings calculated", "archetype", "oltp")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	got := string(content)
	for _, want := range []string{"settings calculated", "tuner", "archetype=oltp"} {
		if !strings.Contains(got, want) {
			t.Errorf("log file missing %q, got:\n%s", want, got)
		}
	}
}

func TestComponentLevelOverride(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "override.log")

	err := logging.Init(logging.Config{
		Level:      "warn",
		Path:       logPath,
		Components: map[string]string{"collector": "debug"},
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	logging.Get("collector").Debug("collector debug visible")
	logging.Get("classifier").Debug("classifier debug hidden")
	logging.Get("classifier").Warn("classifier warn visible")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	got := string(content)

	if !strings.Contains(got, "collector debug visible") {
		t.Error("expected collector debug message in log")
	}
	if strings.Contains(got, "classifier debug hidden") {
		t.Error("classifier debug message should be filtered")
	}
	if !strings.Contains(got, "classifier warn visible") {
		t.Error("expected classifier warn message in log")
	}
}

func TestLoggerBeforeInitReconfigured(t *testing.T) {
	_ = logging.Close()

	logger := logging.Get("history")
	logger.Info("discarded before init")

	logPath := filepath.Join(t.TempDir(), "late.log")
	if err := logging.Init(logging.Config{Level: "info", Path: logPath}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	logger.Info("written after init")
	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	got := string(content)

	if strings.Contains(got, "discarded before init") {
		t.Error("message logged before Init should be discarded")
	}
	if !strings.Contains(got, "written after init") {
		t.Error("logger obtained before Init should write after Init")
	}
}

func TestConsoleMirror(t *testing.T) {
	var console bytes.Buffer

	err := logging.Init(logging.Config{
		Level:        "debug",
		Path:         filepath.Join(t.TempDir(), "console.log"),
		ConsoleLevel: "warn",
		Console:      &console,
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	logger := logging.Get("cli")
	logger.Info("file only")
	logger.Warn("both outputs")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got := console.String()
	if strings.Contains(got, "file only") {
		t.Error("info message should not reach the console at warn level")
	}
	if !strings.Contains(got, "both outputs") {
		t.Errorf("console missing warn message, got %q", got)
	}
}

func TestDefaultLogPath(t *testing.T) {
	path := logging.DefaultLogPath()
	if filepath.Base(path) != "pgtuner.log" {
		t.Errorf("DefaultLogPath() = %q, want base pgtuner.log", path)
	}
	if filepath.Base(filepath.Dir(path)) != "pgtuner" {
		t.Errorf("DefaultLogPath() = %q, want parent dir pgtuner", path)
	}
}
