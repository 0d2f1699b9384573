package monitor

import (
	"context"

	"github.com/shirou/gopsutil/v4/disk"
)

type StorageMonitor struct {
	paths []string
}

func NewStorageMonitor(paths []string) *StorageMonitor {
	if len(paths) == 0 {
		paths = []string{"/"}
	}
	return &StorageMonitor{paths: paths}
}

func (m *StorageMonitor) Name() string {
	return "storage"
}

func (m *StorageMonitor) Collect(ctx context.Context, state *SystemState) error {
	for _, path := range m.paths {
		usage, err := disk.UsageWithContext(ctx, path)
		if err != nil {
			// Unmounted or unreadable paths are left out.
			continue
		}

		state.Storage[path] = DiskState{
			UsedBytes:    usage.Used,
			FreeBytes:    usage.Free,
			TotalBytes:   usage.Total,
			UsagePercent: usage.UsedPercent,
		}
	}

	return nil
}
