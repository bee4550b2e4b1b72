// Package filter selects which tunable keys a run is allowed to rewrite.
// Patterns are globs over the PostgreSQL parameter names, for example
// "checkpoint_*" or "*_mem".
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

// ErrInvalidPattern indicates that a glob pattern could not be compiled.
var ErrInvalidPattern = errors.New("invalid key pattern")

// ErrNoMatchingKey indicates that a pattern matches none of the tunable keys.
var ErrNoMatchingKey = errors.New("pattern matches no tunable key")

// Filter decides which settings are kept.
type Filter struct {
	// Exclude contains glob patterns. Matching keys are skipped.
	Exclude []string

	// Include contains glob patterns. If non-empty, keys must match at least one.
	Include []string

	exclude []glob.Glob
	include []glob.Glob
}

// Option is a functional option for configuring a Filter.
type Option func(*Filter)

// WithExclude sets the exclude glob patterns.
func WithExclude(patterns ...string) Option {
	return func(f *Filter) {
		f.Exclude = normalize(patterns)
	}
}

// WithInclude sets the include glob patterns.
func WithInclude(patterns ...string) Option {
	return func(f *Filter) {
		f.Include = normalize(patterns)
	}
}

// New compiles the patterns. Every pattern must be valid and match at
// least one tunable key, so a typo fails loudly instead of silently
// keeping the key.
func New(opts ...Option) (*Filter, error) {
	f := &Filter{}
	for _, opt := range opts {
		opt(f)
	}

	var err error
	if f.exclude, err = compile(f.Exclude); err != nil {
		return nil, err
	}
	if f.include, err = compile(f.Include); err != nil {
		return nil, err
	}
	return f, nil
}

// Match reports whether key survives the filter.
func (f *Filter) Match(key string) bool {
	if matchesAny(f.exclude, key) {
		return false
	}
	if len(f.include) > 0 && !matchesAny(f.include, key) {
		return false
	}
	return true
}

// Apply splits settings into the ones to write and the keys that were
// filtered out. Order is preserved on both sides.
func (f *Filter) Apply(settings types.Settings) (kept types.Settings, skipped []string) {
	for _, s := range settings {
		if !f.Match(s.Key) {
			skipped = append(skipped, s.Key)
		}
	}
	return settings.Without(skipped...), skipped
}

func compile(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
		}
		if !matchesAnyKey(g) {
			return nil, fmt.Errorf("%w: %q", ErrNoMatchingKey, pattern)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func matchesAnyKey(g glob.Glob) bool {
	for _, key := range types.TunableKeys {
		if g.Match(key) {
			return true
		}
	}
	return false
}

func matchesAny(globs []glob.Glob, key string) bool {
	for _, g := range globs {
		if g.Match(key) {
			return true
		}
	}
	return false
}

// normalize lowercases patterns and drops empty ones.
func normalize(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
