// Package history keeps a log of tuning runs in a Badger database.
package history

import (
	"time"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

// Record is one tuning run.
type Record struct {
	ID        string              `json:"id"`
	Timestamp time.Time           `json:"timestamp"`
	Input     string              `json:"input,omitempty"`
	Output    string              `json:"output,omitempty"`
	Source    string              `json:"source,omitempty"`
	MemoryMB  int64               `json:"memory_mb"`
	Archetype types.Archetype     `json:"archetype"`
	Forced    bool                `json:"forced,omitempty"`
	Scores    map[string]float64  `json:"scores,omitempty"`
	Settings  types.Settings      `json:"settings"`
	Sample    *types.MetricSample `json:"sample,omitempty"`
	Unmatched []string            `json:"unmatched,omitempty"`
	Skipped   []string            `json:"skipped,omitempty"`
	DryRun    bool                `json:"dry_run,omitempty"`
}

// ShortID returns the first block of the record id.
func (r *Record) ShortID() string {
	if len(r.ID) >= 8 {
		return r.ID[:8]
	}
	return r.ID
}
