package types

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// MarshalJSON encodes the sample as an object of metric name to value.
func (s MetricSample) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

// UnmarshalJSON decodes an object of metric name to value. Unknown metric
// names are rejected.
func (s *MetricSample) UnmarshalJSON(data []byte) error {
	var values map[string]float64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	parsed, err := NewMetricSample(values)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalYAML encodes the sample as a mapping of metric name to value.
func (s MetricSample) MarshalYAML() (interface{}, error) {
	return s.Map(), nil
}

// UnmarshalYAML decodes a mapping of metric name to value. Unknown metric
// names are rejected.
func (s *MetricSample) UnmarshalYAML(node *yaml.Node) error {
	var values map[string]float64
	if err := node.Decode(&values); err != nil {
		return err
	}
	parsed, err := NewMetricSample(values)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
