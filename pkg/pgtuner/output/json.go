package output

import (
	"bytes"
	"encoding/json"
)

// jsonReport adds a readable duration to the report.
type jsonReport struct {
	*Report
	Duration string `json:"duration,omitempty"`
}

// JSONFormatter formats the report as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(jsonReport{Report: r, Duration: formatDurationString(r)})
}

// formatDurationString formats the run duration for machine output.
func formatDurationString(r *Report) string {
	if r.Duration == 0 {
		return ""
	}
	return r.Duration.String()
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
