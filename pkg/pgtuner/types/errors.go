package types

import "errors"

// Error kinds shared across packages. Callers wrap them with %w and test
// with errors.Is.
var (
	// ErrConfigRead indicates the input configuration file could not be read.
	ErrConfigRead = errors.New("cannot read configuration file")

	// ErrMetricCollection indicates that no metric sample could be produced.
	// It is always joined with ErrSourceUnreachable or ErrCapabilityMissing.
	ErrMetricCollection = errors.New("metric collection failed")

	// ErrSourceUnreachable indicates the metric source could not be reached.
	ErrSourceUnreachable = errors.New("data source unreachable")

	// ErrCapabilityMissing indicates the source lacks a required extension.
	ErrCapabilityMissing = errors.New("required capability absent on data source")

	// ErrMemoryDetection indicates total memory was neither supplied nor detectable.
	ErrMemoryDetection = errors.New("total memory not specified and unable to detect")

	// ErrUnknownArchetype indicates an archetype outside the closed set.
	ErrUnknownArchetype = errors.New("unknown workload archetype")

	// ErrUnknownMetric indicates a metric name outside the closed set.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrUnmatchedKeys indicates tunable keys had no line to land on.
	ErrUnmatchedKeys = errors.New("tunable keys not present in configuration")
)
