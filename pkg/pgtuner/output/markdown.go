package output

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// MarkdownFormatter formats the report as GitHub-flavored Markdown, for
// pasting a tuning change into a review.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Report) error {
	fmt.Fprintf(w, "**Workload:** %s", r.Archetype)
	if r.Forced {
		w.WriteString(" (forced)")
	}
	fmt.Fprintf(w, "  \n**Memory:** %d MB\n\n", r.MemoryMB)

	if len(r.Scores) > 0 {
		w.WriteString("| Type | Score |\n")
		w.WriteString("|------|------:|\n")
		for _, s := range r.Scores {
			name := s.Archetype.String()
			if s.Archetype == r.Archetype {
				name = "**" + name + "**"
			}
			fmt.Fprintf(w, "| %s | %s |\n", name, strconv.FormatFloat(s.Value, 'f', 4, 64))
		}
		w.WriteString("\n")
	}

	w.WriteString("| Setting | Value | Line |\n")
	w.WriteString("|---------|------:|-----:|\n")
	for _, s := range r.Settings {
		line := "-"
		if n, ok := r.Applied[s.Key]; ok {
			line = strconv.Itoa(n)
		} else if contains(r.Unmatched, s.Key) {
			line = "unmatched"
		}
		fmt.Fprintf(w, "| `%s` | %s | %s |\n", s.Key, escapeMarkdownPipe(s.String()), line)
	}
	for _, key := range r.Skipped {
		fmt.Fprintf(w, "| `%s` | - | skipped |\n", key)
	}

	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "\n> %s\n", escapeMarkdownPipe(warning))
	}

	return nil
}

// escapeMarkdownPipe escapes pipe characters in a string for Markdown tables.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

// Ensure MarkdownFormatter implements Formatter.
var _ Formatter = (*MarkdownFormatter)(nil)
