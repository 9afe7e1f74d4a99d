// Package system reports host resource usage.
package system

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Stats is a point-in-time view of host usage.
type Stats struct {
	CPUPercent    float64
	MemoryPercent float64
}

// Collect samples CPU and memory usage.
func Collect(ctx context.Context) (*Stats, error) {
	cpuPercent, err := CPUUsage(ctx)
	if err != nil {
		return nil, err
	}
	memPercent, err := MemoryUsage(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{CPUPercent: cpuPercent, MemoryPercent: memPercent}, nil
}

// CPUUsage returns the CPU usage since the previous call as a percentage.
func CPUUsage(ctx context.Context) (float64, error) {
	percentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read cpu usage")
	}
	if len(percentages) == 0 {
		return 0, errors.New("could not get cpu usage")
	}
	return percentages[0], nil
}

// MemoryUsage returns the used share of virtual memory as a percentage.
func MemoryUsage(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read memory usage")
	}
	return vm.UsedPercent, nil
}
