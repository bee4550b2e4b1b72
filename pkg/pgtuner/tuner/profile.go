package tuner

import "github.com/jamesainslie/pgtuner/pkg/pgtuner/types"

// Memory thresholds and caps, in megabytes.
const (
	// sharedBuffersThresholdMB is the total memory above which
	// shared_buffers becomes a fraction of memory instead of all of it.
	sharedBuffersThresholdMB = 1024

	// maxMaintenanceWorkMemMB caps maintenance_work_mem at 2GB.
	maxMaintenanceWorkMemMB = 2048
)

// fraction is an exact ratio num/den applied to total memory.
type fraction struct {
	num, den int64
}

// profile holds the per-archetype constants used by Calculate.
type profile struct {
	maxConnections int64

	// sharedBuffers applies only above sharedBuffersThresholdMB.
	sharedBuffers      fraction
	effectiveCacheSize fraction

	// workMemDivisor further divides the per-connection memory share.
	workMemDivisor int64

	maintenanceWorkMem fraction

	checkpointSegments         int64
	checkpointCompletionTarget float64
	defaultStatisticsTarget    int64
}

// profiles is indexed by types.Archetype.
var profiles = [types.NumArchetypes]profile{
	types.OLTP: {
		maxConnections:             300,
		sharedBuffers:              fraction{1, 4},
		effectiveCacheSize:         fraction{3, 4},
		workMemDivisor:             1,
		maintenanceWorkMem:         fraction{1, 16},
		checkpointSegments:         64,
		checkpointCompletionTarget: 0.9,
		defaultStatisticsTarget:    100,
	},
	types.OLAP: {
		maxConnections:             20,
		sharedBuffers:              fraction{1, 4},
		effectiveCacheSize:         fraction{3, 4},
		workMemDivisor:             2,
		maintenanceWorkMem:         fraction{1, 8},
		checkpointSegments:         128,
		checkpointCompletionTarget: 0.9,
		defaultStatisticsTarget:    500,
	},
	types.Web: {
		maxConnections:             200,
		sharedBuffers:              fraction{1, 4},
		effectiveCacheSize:         fraction{3, 4},
		workMemDivisor:             1,
		maintenanceWorkMem:         fraction{1, 16},
		checkpointSegments:         32,
		checkpointCompletionTarget: 0.7,
		defaultStatisticsTarget:    100,
	},
	types.Desktop: {
		maxConnections:             5,
		sharedBuffers:              fraction{1, 16},
		effectiveCacheSize:         fraction{1, 4},
		workMemDivisor:             6,
		maintenanceWorkMem:         fraction{1, 16},
		checkpointSegments:         3,
		checkpointCompletionTarget: 0.5,
		defaultStatisticsTarget:    100,
	},
	types.Mixed: {
		maxConnections:             100,
		sharedBuffers:              fraction{1, 4},
		effectiveCacheSize:         fraction{3, 4},
		workMemDivisor:             2,
		maintenanceWorkMem:         fraction{1, 16},
		checkpointSegments:         32,
		checkpointCompletionTarget: 0.9,
		defaultStatisticsTarget:    100,
	},
}

// of returns ceil(mb * num / den).
func (f fraction) of(mb int64) int64 {
	return ceilDiv(mb*f.num, f.den)
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
