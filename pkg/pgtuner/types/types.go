// Package types provides core data types for the pgtuner PostgreSQL tuner.
// It includes the metric sample collected from a running server, the workload
// archetypes, and the ordered set of tuning settings, along with helpers for
// parsing and formatting memory sizes.
package types

import (
	"fmt"
	"strings"
)

// Metric names in a MetricSample.
const (
	MetricWriteRatio      = "write_ratio"
	MetricReadRatio       = "read_ratio"
	MetricTPS             = "tps"
	MetricCacheHitRatio   = "cache_hit_ratio"
	MetricActiveRatio     = "active_ratio"
	MetricConnLongevity   = "conn_longevity"
	MetricComplexityScore = "complexity_score"
	MetricTempUsage       = "temp_usage"
	MetricLockRatio       = "lock_ratio"
)

// MetricNames is the closed set of metrics a sample may carry.
var MetricNames = []string{
	MetricWriteRatio,
	MetricReadRatio,
	MetricTPS,
	MetricCacheHitRatio,
	MetricActiveRatio,
	MetricConnLongevity,
	MetricComplexityScore,
	MetricTempUsage,
	MetricLockRatio,
}

// IsMetric reports whether name belongs to the closed metric set.
func IsMetric(name string) bool {
	for _, m := range MetricNames {
		if m == name {
			return true
		}
	}
	return false
}

// MetricSample is an immutable snapshot of workload metrics.
// The zero value is an empty sample in which every metric reads as 0.
type MetricSample struct {
	values map[string]float64
}

// NewMetricSample builds a sample from the given values.
// The map is copied; names outside MetricNames are rejected.
func NewMetricSample(values map[string]float64) (MetricSample, error) {
	copied := make(map[string]float64, len(values))
	for name, v := range values {
		if !IsMetric(name) {
			return MetricSample{}, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
		}
		copied[name] = v
	}
	return MetricSample{values: copied}, nil
}

// Get returns the raw value of a metric and whether it is present.
func (s MetricSample) Get(name string) (float64, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Value returns the raw value of a metric, or 0 if it is missing.
func (s MetricSample) Value(name string) float64 {
	return s.values[name]
}

// Len returns the number of metrics present in the sample.
func (s MetricSample) Len() int {
	return len(s.values)
}

// Map returns a copy of the sample's values.
func (s MetricSample) Map() map[string]float64 {
	out := make(map[string]float64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Names returns the names of the metrics present, in MetricNames order.
func (s MetricSample) Names() []string {
	names := make([]string, 0, len(s.values))
	for _, m := range MetricNames {
		if _, ok := s.values[m]; ok {
			names = append(names, m)
		}
	}
	return names
}

// Archetype is a workload category used to select a parameter preset.
type Archetype int

// Archetypes in tie-break priority order.
const (
	OLTP Archetype = iota
	OLAP
	Web
	Desktop
	Mixed

	// NumArchetypes is the number of archetypes. Tables indexed by
	// Archetype are sized with it.
	NumArchetypes = int(Mixed) + 1
)

var archetypeNames = [NumArchetypes]string{
	OLTP:    "OLTP",
	OLAP:    "OLAP",
	Web:     "Web",
	Desktop: "Desktop",
	Mixed:   "Mixed",
}

// String returns the canonical name of the archetype.
func (a Archetype) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Archetype(%d)", int(a))
	}
	return archetypeNames[a]
}

// Valid reports whether a is one of the five known archetypes.
func (a Archetype) Valid() bool {
	return a >= OLTP && a <= Mixed
}

// Archetypes returns all archetypes in priority order.
func Archetypes() []Archetype {
	return []Archetype{OLTP, OLAP, Web, Desktop, Mixed}
}

// ParseArchetype parses an archetype name (case-insensitive).
func ParseArchetype(s string) (Archetype, error) {
	want := strings.TrimSpace(s)
	for i, name := range archetypeNames {
		if strings.EqualFold(name, want) {
			return Archetype(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownArchetype, s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Archetype) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownArchetype, int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Archetype) UnmarshalText(text []byte) error {
	parsed, err := ParseArchetype(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
