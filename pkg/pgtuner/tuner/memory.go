package tuner

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

// virtualMemory is replaced in tests.
var virtualMemory = mem.VirtualMemoryWithContext

// DetectMemory returns total physical memory in megabytes.
// Any failure, or a total of zero, is reported as types.ErrMemoryDetection.
func DetectMemory(ctx context.Context) (int64, error) {
	stat, err := virtualMemory(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", types.ErrMemoryDetection, err)
	}
	if stat == nil || stat.Total == 0 {
		return 0, fmt.Errorf("%w: total memory reported as zero", types.ErrMemoryDetection)
	}

	total := int64(stat.Total / uint64(types.MiB))
	if total == 0 {
		return 0, fmt.Errorf("%w: less than 1MB reported", types.ErrMemoryDetection)
	}

	logger.Debug("memory detected", "total", types.FormatMemory(total))
	return total, nil
}

// ResolveMemory returns the memory size to tune for. A non-empty override
// ("8192", "8G", "16GiB") wins over detection; a bare number is megabytes.
func ResolveMemory(ctx context.Context, override string) (int64, error) {
	if strings.TrimSpace(override) == "" {
		return DetectMemory(ctx)
	}

	mb, err := types.ParseMemory(override)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", types.ErrMemoryDetection, err)
	}
	if mb <= 0 || mb > MaxMemoryMB {
		return 0, fmt.Errorf("%w: %w: %q", types.ErrMemoryDetection, ErrInvalidMemory, override)
	}

	logger.Debug("memory override", "total", types.FormatMemory(mb))
	return mb, nil
}
