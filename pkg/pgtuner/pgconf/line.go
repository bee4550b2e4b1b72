// Package pgconf parses postgresql.conf-style files into typed lines and
// rewrites them with a tuning parameter set.
//
// Only single "key = value [# comment]" directives and blank or
// comment-only lines are understood. Lines that are not touched by a merge
// are written back byte-for-byte.
package pgconf

import "strings"

// Line is one physical line of a configuration file.
type Line struct {
	// Original is the raw line including its terminator. It is never
	// modified; a rewritten line replaces it wholesale in the output.
	Original string

	// Parameter is the trimmed text before the first '#'.
	Parameter string

	// Comment is the text after the first '#', without the '#' itself.
	// Empty when the line has no comment.
	Comment string

	// Name is the directive name for directive lines.
	Name string

	// Value is the directive value with one surrounding quote removed.
	Value string
}

// ParseLine splits a raw line into its parameter and comment parts.
func ParseLine(raw string) Line {
	line := Line{Original: raw}

	stripped := strings.TrimSpace(raw)
	before, after, found := strings.Cut(stripped, "#")
	line.Parameter = strings.TrimSpace(before)
	if found {
		line.Comment = after
	}

	if line.Parameter != "" {
		name, value, _ := strings.Cut(line.Parameter, "=")
		line.Name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		value = strings.TrimPrefix(value, "'")
		value = strings.TrimSuffix(value, "'")
		line.Value = value
	}

	return line
}

// IsDirective reports whether the line carries an active assignment.
func (l Line) IsDirective() bool {
	return l.Parameter != ""
}

// mentions reports whether the comment holds a commented-out directive
// for key, i.e. contains "<key> = ".
func (l Line) mentions(key string) bool {
	return strings.Contains(l.Comment, key+" = ")
}

// matches reports whether the line is a landing spot for key.
func (l Line) matches(key string) bool {
	return l.Name == key || l.mentions(key)
}
