package pgconf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

// Policy decides what happens to keys that have no line in the document,
// neither an active directive nor a commented-out one.
type Policy int

const (
	// PolicyDrop leaves unmatched keys out of the output.
	PolicyDrop Policy = iota
	// PolicyAppend adds unmatched keys at end of file.
	PolicyAppend
	// PolicyFail aborts the merge with types.ErrUnmatchedKeys.
	PolicyFail
)

// Policy string constants.
const (
	policyDrop   = "drop"
	policyAppend = "append"
	policyFail   = "fail"
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyAppend:
		return policyAppend
	case PolicyFail:
		return policyFail
	default:
		return policyDrop
	}
}

// ErrInvalidPolicy indicates that the policy string could not be parsed.
var ErrInvalidPolicy = errors.New("invalid unmatched-key policy")

// ParsePolicy parses "drop", "append" or "fail" (case-insensitive).
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case policyDrop, "":
		return PolicyDrop, nil
	case policyAppend:
		return PolicyAppend, nil
	case policyFail:
		return PolicyFail, nil
	default:
		return PolicyDrop, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

// Option configures a merge.
type Option func(*mergeOptions)

type mergeOptions struct {
	policy Policy
}

// WithPolicy sets the unmatched-key policy. The default is PolicyDrop.
func WithPolicy(p Policy) Option {
	return func(o *mergeOptions) {
		o.policy = p
	}
}

// keySet is the ordered set of keys still waiting for a line.
// Written keys are tombstoned rather than removed so that order is stable.
type keySet struct {
	settings types.Settings
	written  []bool
}

func newKeySet(settings types.Settings) *keySet {
	return &keySet{
		settings: settings,
		written:  make([]bool, len(settings)),
	}
}

// take returns the first remaining setting whose key the line matches and
// marks it written.
func (k *keySet) take(line Line) (types.Setting, bool) {
	for i, setting := range k.settings {
		if k.written[i] {
			continue
		}
		if line.matches(setting.Key) {
			k.written[i] = true
			return setting, true
		}
	}
	return types.Setting{}, false
}

// remaining returns the settings not yet written, in order.
func (k *keySet) remaining() types.Settings {
	var out types.Settings
	for i, setting := range k.settings {
		if !k.written[i] {
			out = append(out, setting)
		}
	}
	return out
}

// mentionsTunable reports whether a comment holds a commented-out
// directive for any of the tunable keys.
func mentionsTunable(comment string) bool {
	for _, key := range types.TunableKeys {
		if strings.Contains(comment, key+" = ") {
			return true
		}
	}
	return false
}

// Render formats a replacement line: "<key> = <value><suffix> #<comment>\n".
// Memory keys get an "MB" suffix. An empty comment leaves a bare '#'.
func Render(setting types.Setting, comment string) string {
	suffix := ""
	if types.IsMemoryKey(setting.Key) {
		suffix = types.UnitMegabytes.Suffix()
	}
	return setting.Key + " = " + setting.FormatValue() + suffix + " #" + comment + "\n"
}

// Merge rewrites the document with settings. Each key is written once, at
// its first matching line (active or commented-out); every other line is
// passed through unchanged. The document itself is not modified.
func (d *Document) Merge(settings types.Settings, opts ...Option) (*Result, error) {
	options := mergeOptions{policy: PolicyDrop}
	for _, opt := range opts {
		opt(&options)
	}

	keys := newKeySet(settings)
	result := &Result{
		Lines:   make([]string, 0, len(d.Lines)),
		Applied: make(map[string]int, len(settings)),
	}

	for _, line := range d.Lines {
		if !line.IsDirective() && !mentionsTunable(line.Comment) {
			result.Lines = append(result.Lines, line.Original)
			continue
		}

		setting, ok := keys.take(line)
		if !ok {
			result.Lines = append(result.Lines, line.Original)
			continue
		}

		result.Lines = append(result.Lines, Render(setting, line.Comment))
		result.Applied[setting.Key] = len(result.Lines)
		logger.Debug("setting applied", "key", setting.Key, "value", setting.String(), "line", len(result.Lines))
	}

	unmatched := keys.remaining()
	result.Unmatched = unmatched.Keys()
	if len(unmatched) == 0 {
		return result, nil
	}

	switch options.policy {
	case PolicyFail:
		return nil, fmt.Errorf("%w: %s", types.ErrUnmatchedKeys, strings.Join(result.Unmatched, ", "))
	case PolicyAppend:
		if n := len(result.Lines); n > 0 && !strings.HasSuffix(result.Lines[n-1], "\n") {
			result.Lines[n-1] += "\n"
		}
		for _, setting := range unmatched {
			result.Lines = append(result.Lines, Render(setting, ""))
			result.Applied[setting.Key] = len(result.Lines)
		}
		result.Appended = true
		logger.Info("unmatched settings appended", "keys", strings.Join(result.Unmatched, ","))
	default:
		logger.Warn("unmatched settings dropped", "keys", strings.Join(result.Unmatched, ","))
	}

	return result, nil
}
