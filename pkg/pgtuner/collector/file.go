package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

// File reads a sample saved by "pgtuner collect". Files ending in .json
// are decoded as JSON; anything else as YAML.
type File struct {
	Path string
}

var _ Source = File{}

// Collect reads and decodes the sample file. A missing or unreadable file
// is reported as types.ErrSourceUnreachable; unknown metric names as
// types.ErrUnknownMetric.
func (f File) Collect(_ context.Context) (types.MetricSample, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return types.MetricSample{}, fmt.Errorf("%w: %w: %w",
			types.ErrMetricCollection, types.ErrSourceUnreachable, err)
	}

	var sample types.MetricSample
	if strings.EqualFold(filepath.Ext(f.Path), ".json") {
		err = json.Unmarshal(data, &sample)
	} else {
		err = yaml.Unmarshal(data, &sample)
	}
	if err != nil {
		return types.MetricSample{}, fmt.Errorf("%w: decoding %s: %w", types.ErrMetricCollection, f.Path, err)
	}

	logger.Debug("sample loaded", "path", f.Path, "metrics", sample.Len())
	return sample, nil
}
