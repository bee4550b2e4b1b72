package output

import (
	"bytes"
	"fmt"
	"strconv"
	"text/tabwriter"
)

// PlainFormatter formats the report as tab-aligned text without styling,
// suitable for scripting and piping.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	fmt.Fprintf(tw, "archetype\t%s\n", r.Archetype)
	fmt.Fprintf(tw, "memory_mb\t%d\n", r.MemoryMB)
	for _, s := range r.Scores {
		fmt.Fprintf(tw, "score.%s\t%s\n", s.Archetype, strconv.FormatFloat(s.Value, 'f', 4, 64))
	}

	for _, s := range r.Settings {
		status := "-"
		if line, ok := r.Applied[s.Key]; ok {
			status = strconv.Itoa(line)
		} else if contains(r.Unmatched, s.Key) {
			status = "unmatched"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Key, s.String(), status)
	}

	for _, key := range r.Skipped {
		fmt.Fprintf(tw, "%s\t-\tskipped\n", key)
	}

	return tw.Flush()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
