// Package config provides configuration management for pgtuner.
package config

import "time"

// Default configuration values for pgtuner.
const (
	// DefaultHost is the default database host.
	DefaultHost = "localhost"

	// DefaultPort is the default database port.
	DefaultPort = 5432

	// DefaultDatabase is the default database name.
	DefaultDatabase = "postgres"

	// DefaultUser is the default database user.
	DefaultUser = "postgres"

	// DefaultSSLMode is the default libpq sslmode.
	DefaultSSLMode = "prefer"

	// DefaultConnectTimeout bounds connection setup.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultOutput is the default output configuration file.
	DefaultOutput = "postgresql.conf"

	// DefaultUnmatched is the default unmatched-key policy.
	DefaultUnmatched = "drop"

	// DefaultFormat is the default report format.
	DefaultFormat = "pretty"

	// DefaultRetentionDays is the default number of days to keep history.
	DefaultRetentionDays = 90
)

// DefaultComponentLevels are the per-component log levels written by
// WriteDefault.
var DefaultComponentLevels = map[string]string{
	"cli":        "info",
	"collector":  "info",
	"classifier": "info",
	"tuner":      "info",
	"pgconf":     "info",
	"history":    "warn",
}
