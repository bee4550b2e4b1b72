package output

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// yamlReport adds a readable duration to the report.
type yamlReport struct {
	Report   `yaml:",inline"`
	Duration string `yaml:"duration,omitempty"`
}

// YAMLFormatter formats the report as a YAML document.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(yamlReport{Report: *r, Duration: formatDurationString(r)}); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
