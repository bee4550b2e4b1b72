package types

import (
	"fmt"
	"strconv"
)

// Tunable keys in determination order.
const (
	KeyMaxConnections             = "max_connections"
	KeySharedBuffers              = "shared_buffers"
	KeyEffectiveCacheSize         = "effective_cache_size"
	KeyWorkMem                    = "work_mem"
	KeyMaintenanceWorkMem         = "maintenance_work_mem"
	KeyCheckpointSegments         = "checkpoint_segments"
	KeyCheckpointCompletionTarget = "checkpoint_completion_target"
	KeyDefaultStatisticsTarget    = "default_statistics_target"
)

// TunableKeys is the closed set of parameters pgtuner computes and rewrites.
var TunableKeys = []string{
	KeyMaxConnections,
	KeySharedBuffers,
	KeyEffectiveCacheSize,
	KeyWorkMem,
	KeyMaintenanceWorkMem,
	KeyCheckpointSegments,
	KeyCheckpointCompletionTarget,
	KeyDefaultStatisticsTarget,
}

// IsMemoryKey reports whether key is sized in megabytes.
func IsMemoryKey(key string) bool {
	switch key {
	case KeySharedBuffers, KeyEffectiveCacheSize, KeyWorkMem, KeyMaintenanceWorkMem:
		return true
	default:
		return false
	}
}

// Unit tags the unit of a setting value.
type Unit int

const (
	// UnitNone is a plain number.
	UnitNone Unit = iota
	// UnitMegabytes is a memory size in MB.
	UnitMegabytes
)

// Suffix returns the text appended to a rendered value.
func (u Unit) Suffix() string {
	if u == UnitMegabytes {
		return "MB"
	}
	return ""
}

// String returns the unit name.
func (u Unit) String() string {
	if u == UnitMegabytes {
		return "megabytes"
	}
	return "none"
}

// MarshalText implements encoding.TextMarshaler.
func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Unit) UnmarshalText(text []byte) error {
	switch string(text) {
	case "megabytes":
		*u = UnitMegabytes
	case "none", "":
		*u = UnitNone
	default:
		return fmt.Errorf("unknown unit %q", text)
	}
	return nil
}

// Setting is one computed tuning parameter.
type Setting struct {
	Key   string  `json:"key" yaml:"key"`
	Value float64 `json:"value" yaml:"value"`
	Unit  Unit    `json:"unit" yaml:"unit"`
}

// FormatValue renders the value as its shortest decimal representation.
func (s Setting) FormatValue() string {
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

// String renders the value with its unit suffix, e.g. "2048MB".
func (s Setting) String() string {
	return s.FormatValue() + s.Unit.Suffix()
}

// Settings is an ordered set of tuning parameters (a tuning parameter set).
// Order is determination order and drives the merge.
type Settings []Setting

// Keys returns the setting keys in order.
func (s Settings) Keys() []string {
	keys := make([]string, len(s))
	for i, setting := range s {
		keys[i] = setting.Key
	}
	return keys
}

// Get returns the setting for key.
func (s Settings) Get(key string) (Setting, bool) {
	for _, setting := range s {
		if setting.Key == key {
			return setting, true
		}
	}
	return Setting{}, false
}

// Len returns the number of settings.
func (s Settings) Len() int {
	return len(s)
}

// Without returns a copy of s with the given keys removed, order preserved.
func (s Settings) Without(keys ...string) Settings {
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	out := make(Settings, 0, len(s))
	for _, setting := range s {
		if _, ok := drop[setting.Key]; ok {
			continue
		}
		out = append(out, setting)
	}
	return out
}
