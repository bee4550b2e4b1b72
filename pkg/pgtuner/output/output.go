// Package output provides formatters for pgtuner run reports in various
// output formats (pretty, plain, markdown, json, yaml).
//
// The package uses a registry pattern so the CLI can select a formatter by
// name at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, report); err != nil {
//	    return err
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

// Score is one archetype's score in a report.
type Score struct {
	Archetype types.Archetype `json:"archetype" yaml:"archetype"`
	Value     float64         `json:"score" yaml:"score"`
}

// Report describes one tuning run.
type Report struct {
	// Input is the configuration file that was read.
	Input string `json:"input,omitempty" yaml:"input,omitempty"`

	// Output is where the tuned file was written ("-" for stdout).
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// Source describes where the metric sample came from.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// MemoryMB is the total memory the settings were sized for.
	MemoryMB int64 `json:"memory_mb" yaml:"memory_mb"`

	// MemoryDetected is true when MemoryMB came from the host.
	MemoryDetected bool `json:"memory_detected" yaml:"memory_detected"`

	// Archetype is the workload archetype the settings were derived for.
	Archetype types.Archetype `json:"archetype" yaml:"archetype"`

	// Forced is true when the archetype was given rather than classified.
	Forced bool `json:"forced" yaml:"forced"`

	// Scores holds every archetype's score in priority order. Empty when
	// the archetype was forced.
	Scores []Score `json:"scores,omitempty" yaml:"scores,omitempty"`

	// Sample is the metric sample that was scored.
	Sample *types.MetricSample `json:"sample,omitempty" yaml:"sample,omitempty"`

	// Settings are the computed settings, in determination order.
	Settings types.Settings `json:"settings" yaml:"settings"`

	// Applied maps each written key to its line in the output file.
	Applied map[string]int `json:"applied,omitempty" yaml:"applied,omitempty"`

	// Unmatched lists keys that had no line in the input file.
	Unmatched []string `json:"unmatched,omitempty" yaml:"unmatched,omitempty"`

	// Skipped lists keys excluded by --skip patterns.
	Skipped []string `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	// Policy is the unmatched-key policy that was applied.
	Policy string `json:"policy,omitempty" yaml:"policy,omitempty"`

	// DryRun is true when nothing was written to disk.
	DryRun bool `json:"dry_run" yaml:"dry_run"`

	// HistoryID is the id of the history record, if one was saved.
	HistoryID string `json:"history_id,omitempty" yaml:"history_id,omitempty"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"-" yaml:"-"`

	// Warnings contains any warning messages generated during the run.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Best returns the score of the selected archetype, if it was scored.
func (r *Report) Best() (Score, bool) {
	for _, s := range r.Scores {
		if s.Archetype == r.Archetype {
			return s, true
		}
	}
	return Score{}, false
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted report to the buffer.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// ErrUnknownFormatter is returned by Get for unregistered names.
var ErrUnknownFormatter = errors.New("unknown formatter")

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormatter, name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
