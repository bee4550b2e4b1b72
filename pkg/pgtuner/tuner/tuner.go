// Package tuner derives PostgreSQL settings from total memory and a
// workload archetype, and detects total memory on the host.
package tuner

import (
	"errors"
	"fmt"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/logging"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

var logger = logging.Get("tuner")

// ErrInvalidMemory is returned when total memory is zero, negative or
// above MaxMemoryMB.
var ErrInvalidMemory = errors.New("total memory out of range")

// MaxMemoryMB is the largest memory size Calculate accepts. Every derived
// value stays exactly representable as a float64 setting value.
const MaxMemoryMB int64 = 1 << 53

// Calculate returns the settings for an archetype on a host with memoryMB
// megabytes of RAM, in determination order.
//
// The calculation:
//   - shared_buffers: a quarter of memory (Desktop: a sixteenth) above
//     1024MB, all of it otherwise
//   - effective_cache_size: three quarters of memory (Desktop: a quarter)
//   - work_mem: memory / max_connections / divisor, divisor 1 for Web and
//     OLTP, 2 for OLAP and Mixed, 6 for Desktop
//   - maintenance_work_mem: memory / 16 (OLAP: / 8), capped at 2048MB
//
// Every division rounds up.
func Calculate(memoryMB int64, archetype types.Archetype) (types.Settings, error) {
	if !archetype.Valid() {
		return nil, fmt.Errorf("%w: %d", types.ErrUnknownArchetype, int(archetype))
	}
	if memoryMB <= 0 || memoryMB > MaxMemoryMB {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMemory, memoryMB)
	}

	p := profiles[archetype]

	sharedBuffers := memoryMB
	if memoryMB > sharedBuffersThresholdMB {
		sharedBuffers = p.sharedBuffers.of(memoryMB)
	}

	workMem := ceilDiv(memoryMB, p.maxConnections*p.workMemDivisor)
	maintenance := min(p.maintenanceWorkMem.of(memoryMB), maxMaintenanceWorkMemMB)

	settings := types.Settings{
		count(types.KeyMaxConnections, p.maxConnections),
		megabytes(types.KeySharedBuffers, sharedBuffers),
		megabytes(types.KeyEffectiveCacheSize, p.effectiveCacheSize.of(memoryMB)),
		megabytes(types.KeyWorkMem, workMem),
		megabytes(types.KeyMaintenanceWorkMem, maintenance),
		count(types.KeyCheckpointSegments, p.checkpointSegments),
		{Key: types.KeyCheckpointCompletionTarget, Value: p.checkpointCompletionTarget},
		count(types.KeyDefaultStatisticsTarget, p.defaultStatisticsTarget),
	}

	logger.Debug("settings calculated",
		"archetype", archetype,
		"memory_mb", memoryMB,
		"shared_buffers", sharedBuffers,
		"work_mem", workMem)

	return settings, nil
}

func megabytes(key string, mb int64) types.Setting {
	return types.Setting{Key: key, Value: float64(mb), Unit: types.UnitMegabytes}
}

func count(key string, n int64) types.Setting {
	return types.Setting{Key: key, Value: float64(n)}
}
