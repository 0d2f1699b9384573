package monitor

import (
	"context"

	"github.com/shirou/gopsutil/v4/mem"
)

type MemoryMonitor struct{}

func NewMemoryMonitor() *MemoryMonitor {
	return &MemoryMonitor{}
}

func (m *MemoryMonitor) Name() string {
	return "memory"
}

func (m *MemoryMonitor) Collect(ctx context.Context, state *SystemState) error {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return err
	}

	state.Memory = MemoryState{
		UsedBytes:      v.Used,
		TotalBytes:     v.Total,
		AvailableBytes: v.Available,
		UsagePercent:   v.UsedPercent,
	}

	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		state.Memory.SwapUsedBytes = swap.Used
		state.Memory.SwapTotalBytes = swap.Total
	}

	return nil
}
