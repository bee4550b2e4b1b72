// Package collector produces metric samples from a running PostgreSQL
// server or from a saved sample file.
package collector

import (
	"context"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/logging"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

var logger = logging.Get("collector")

// Source produces one metric sample.
type Source interface {
	Collect(ctx context.Context) (types.MetricSample, error)
}

// RawStats are the cumulative counters read from the statistics views.
type RawStats struct {
	// From pg_stat_statements.
	Calls         float64
	TotalExecTime float64 // milliseconds
	Rows          float64
	BlocksHit     float64
	BlocksRead    float64
	BlocksDirtied float64

	// From pg_stat_activity, client backends only.
	ActiveBackends   float64
	TotalBackends    float64
	LockWaiters      float64
	OldestBackendAge float64 // seconds

	// From pg_stat_database.
	TempFiles float64
	TempBytes float64
}

// Derive turns raw counters into a metric sample. Ratios with an empty
// denominator are 0, except the cache hit ratio which is 1 when nothing
// was read.
func Derive(raw RawStats) types.MetricSample {
	io := raw.BlocksDirtied + raw.BlocksRead
	values := map[string]float64{
		types.MetricWriteRatio:      ratio(raw.BlocksDirtied, io, 0),
		types.MetricReadRatio:       ratio(raw.BlocksRead, io, 0),
		types.MetricCacheHitRatio:   ratio(raw.BlocksHit, raw.BlocksHit+raw.BlocksRead, 1),
		types.MetricTPS:             ratio(raw.Calls, raw.OldestBackendAge, 0),
		types.MetricComplexityScore: ratio(raw.TotalExecTime, raw.Calls, 0) * ratio(raw.Rows, raw.Calls, 0),
		types.MetricTempUsage:       raw.TempFiles + raw.TempBytes/float64(types.MiB),
		types.MetricActiveRatio:     ratio(raw.ActiveBackends, raw.TotalBackends, 0),
		types.MetricConnLongevity:   raw.OldestBackendAge,
		types.MetricLockRatio:       ratio(raw.LockWaiters, raw.TotalBackends, 0),
	}

	// Every key above is a known metric.
	sample, _ := types.NewMetricSample(values)
	return sample
}

func ratio(num, den, empty float64) float64 {
	if den <= 0 {
		return empty
	}
	return num / den
}
