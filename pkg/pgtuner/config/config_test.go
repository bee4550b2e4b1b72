package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	return tempDir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Host != DefaultHost {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, DefaultHost)
	}
	if cfg.Database.Port != DefaultPort {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, DefaultPort)
	}
	if cfg.Database.Name != DefaultDatabase || cfg.Database.User != DefaultUser {
		t.Errorf("Database = %s@%s, want %s@%s", cfg.Database.User, cfg.Database.Name, DefaultUser, DefaultDatabase)
	}
	if cfg.Database.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("Database.ConnectTimeout = %v, want %v", cfg.Database.ConnectTimeout, DefaultConnectTimeout)
	}
	if cfg.Output != DefaultOutput {
		t.Errorf("Output = %q, want %q", cfg.Output, DefaultOutput)
	}
	if cfg.Unmatched != DefaultUnmatched {
		t.Errorf("Unmatched = %q, want %q", cfg.Unmatched, DefaultUnmatched)
	}
	if cfg.Format != DefaultFormat {
		t.Errorf("Format = %q, want %q", cfg.Format, DefaultFormat)
	}
	if len(cfg.Skip) != 0 {
		t.Errorf("Skip = %v, want empty", cfg.Skip)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}
	if cfg.History.RetentionDays != DefaultRetentionDays {
		t.Errorf("History.RetentionDays = %d, want %d", cfg.History.RetentionDays, DefaultRetentionDays)
	}
	if cfg.History.Path != DefaultHistoryPath() {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, DefaultHistoryPath())
	}
	if cfg.Logging.Components["history"] != "warn" {
		t.Errorf("Logging.Components[history] = %q, want warn", cfg.Logging.Components["history"])
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want empty when no config exists", cfg.File)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := isolate(t)
	configDir := filepath.Join(tempDir, ".config", "pgtuner")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
database:
  host: db.internal
  port: 6432
  user: tuner
  connect_timeout: 3s
output: ~/tuned.conf
unmatched: append
skip:
  - checkpoint_*
history:
  enabled: false
  retention_days: 7
`
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "db.internal")
	}
	if cfg.Database.Port != 6432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 6432)
	}
	if cfg.Database.Name != DefaultDatabase {
		t.Errorf("Database.Name = %q, want default %q", cfg.Database.Name, DefaultDatabase)
	}
	if cfg.Database.ConnectTimeout != 3*time.Second {
		t.Errorf("Database.ConnectTimeout = %v, want 3s", cfg.Database.ConnectTimeout)
	}
	if want := filepath.Join(tempDir, "tuned.conf"); cfg.Output != want {
		t.Errorf("Output = %q, want %q", cfg.Output, want)
	}
	if cfg.Unmatched != "append" {
		t.Errorf("Unmatched = %q, want append", cfg.Unmatched)
	}
	if len(cfg.Skip) != 1 || cfg.Skip[0] != "checkpoint_*" {
		t.Errorf("Skip = %v, want [checkpoint_*]", cfg.Skip)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false")
	}
	if cfg.History.RetentionDays != 7 {
		t.Errorf("History.RetentionDays = %d, want 7", cfg.History.RetentionDays)
	}
	if cfg.File != configPath {
		t.Errorf("File = %q, want %q", cfg.File, configPath)
	}
}

func TestLoad_XDGConfigHome(t *testing.T) {
	tempDir := isolate(t)
	xdgConfigDir := filepath.Join(tempDir, "xdg-config", "pgtuner")
	if err := os.MkdirAll(xdgConfigDir, 0o755); err != nil {
		t.Fatalf("failed to create XDG config dir: %v", err)
	}

	configPath := filepath.Join(xdgConfigDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(`format: json`), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tempDir, "xdg-config"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Format != "json" {
		t.Errorf("Format = %q, want %q", cfg.Format, "json")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("PGTUNER_DATABASE_HOST", "10.0.0.5")
	t.Setenv("PGTUNER_UNMATCHED", "fail")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Host != "10.0.0.5" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "10.0.0.5")
	}
	if cfg.Unmatched != "fail" {
		t.Errorf("Unmatched = %q, want %q", cfg.Unmatched, "fail")
	}
}

func TestLoadFile(t *testing.T) {
	tempDir := isolate(t)

	explicit := filepath.Join(tempDir, "custom.yaml")
	if err := os.WriteFile(explicit, []byte("database:\n  name: app\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFile(explicit)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Database.Name != "app" {
		t.Errorf("Database.Name = %q, want app", cfg.Database.Name)
	}

	if _, err := LoadFile(filepath.Join(tempDir, "missing.yaml")); err == nil {
		t.Error("LoadFile() with a missing explicit file should fail")
	}
}

func TestConnString(t *testing.T) {
	tests := []struct {
		name string
		db   DatabaseConfig
		want string
	}{
		{
			name: "defaults",
			db: DatabaseConfig{
				Host: "localhost", Port: 5432, Name: "postgres", User: "postgres",
				SSLMode: "prefer", ConnectTimeout: 10 * time.Second,
			},
			want: "postgres://postgres@localhost:5432/postgres?connect_timeout=10&sslmode=prefer",
		},
		{
			name: "password is escaped",
			db:   DatabaseConfig{Host: "db", Port: 5432, Name: "app", User: "tuner", Password: "p@ss/word"},
			want: "postgres://tuner:p%40ss%2Fword@db:5432/app",
		},
		{
			name: "dsn wins",
			db:   DatabaseConfig{Host: "ignored", DSN: "host=/var/run/postgresql dbname=app"},
			want: "host=/var/run/postgresql dbname=app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.db.ConnString(); got != tt.want {
				t.Errorf("ConnString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, Name: "app", User: "tuner", Password: "secret"}

	got := db.Redacted()
	if strings.Contains(got, "secret") {
		t.Errorf("Redacted() = %q leaks the password", got)
	}
	if !strings.Contains(got, "tuner") {
		t.Errorf("Redacted() = %q, want user kept", got)
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("uses XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")

		dir, err := ConfigDir()
		if err != nil {
			t.Fatalf("ConfigDir() error = %v", err)
		}

		expected := "/custom/config/pgtuner"
		if dir != expected {
			t.Errorf("ConfigDir() = %q, want %q", dir, expected)
		}
	})

	t.Run("uses HOME/.config when XDG_CONFIG_HOME not set", func(t *testing.T) {
		tempDir := isolate(t)

		dir, err := ConfigDir()
		if err != nil {
			t.Fatalf("ConfigDir() error = %v", err)
		}

		expected := filepath.Join(tempDir, ".config", "pgtuner")
		if dir != expected {
			t.Errorf("ConfigDir() = %q, want %q", dir, expected)
		}
	})
}

func TestWriteDefault(t *testing.T) {
	tempDir := isolate(t)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expected := filepath.Join(tempDir, ".config", "pgtuner", "config.yaml")
	if path != expected {
		t.Errorf("WriteDefault() = %q, want %q", path, expected)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() after WriteDefault() error = %v", err)
	}
	if cfg.Database.Port != DefaultPort || cfg.Unmatched != DefaultUnmatched {
		t.Errorf("default file does not round-trip: %+v", cfg)
	}
	if cfg.Database.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("ConnectTimeout = %v, want %v", cfg.Database.ConnectTimeout, DefaultConnectTimeout)
	}

	if err := os.WriteFile(path, []byte("format: yaml\n"), 0o644); err != nil {
		t.Fatalf("failed to overwrite config: %v", err)
	}
	if _, err := WriteDefault(); err != nil {
		t.Fatalf("second WriteDefault() error = %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(content) != "format: yaml\n" {
		t.Error("WriteDefault() overwrote an existing file")
	}
}

func TestExpandPath(t *testing.T) {
	tempDir := isolate(t)

	got, err := ExpandPath("~/history")
	if err != nil {
		t.Fatalf("ExpandPath() error = %v", err)
	}
	if want := filepath.Join(tempDir, "history"); got != want {
		t.Errorf("ExpandPath() = %q, want %q", got, want)
	}

	got, err = ExpandPath("/abs/path")
	if err != nil || got != "/abs/path" {
		t.Errorf("ExpandPath(/abs/path) = %q, %v", got, err)
	}
}
