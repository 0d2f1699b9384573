package monitor

import (
	"context"
	"maps"
	"time"
)

// Monitor fills its part of a SystemState. The aggregator runs monitors
// in order against a fresh state on every tick.
type Monitor interface {
	Name() string
	Collect(ctx context.Context, state *SystemState) error
}

type HostState struct {
	Hostname      string `json:"hostname"`
	OS            string `json:"os"`
	Platform      string `json:"platform"`
	PlatformVer   string `json:"platform_version"`
	KernelVersion string `json:"kernel_version"`
	Arch          string `json:"arch"`
	UptimeSec     uint64 `json:"uptime_sec"`
	BootTime      uint64 `json:"boot_time"`
}

type CPUState struct {
	Model        string    `json:"model"`
	UsagePercent float64   `json:"usage_percent"`
	Cores        []float64 `json:"cores"`
	Physical     int       `json:"physical_cores"`
	Logical      int       `json:"logical_processors"`
	BaseGHz      float64   `json:"base_speed_ghz"`
	TemperatureC float64   `json:"temperature_c,omitempty"`
}

type LoadState struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

type MemoryState struct {
	UsedBytes      uint64  `json:"used_bytes"`
	TotalBytes     uint64  `json:"total_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsagePercent   float64 `json:"usage_percent"`
	SwapUsedBytes  uint64  `json:"swap_used_bytes"`
	SwapTotalBytes uint64  `json:"swap_total_bytes"`
}

type GPUState struct {
	Index          int     `json:"index"`
	Name           string  `json:"name"`
	UsagePercent   float64 `json:"usage_percent"`
	Temperature    int     `json:"temperature"`
	VRAMUsedBytes  uint64  `json:"vram_used_bytes"`
	VRAMTotalBytes uint64  `json:"vram_total_bytes"`
	ClockMHz       int     `json:"clock_mhz"`
	VRAMClockMHz   int     `json:"vram_clock_mhz"`
}

type DiskState struct {
	UsedBytes    uint64  `json:"used_bytes"`
	FreeBytes    uint64  `json:"free_bytes"`
	TotalBytes   uint64  `json:"total_bytes"`
	UsagePercent float64 `json:"usage_percent"`
}

type StorageState map[string]DiskState

type ProcessInfo struct {
	PID        int32   `json:"pid"`
	Name       string  `json:"name"`
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
}

type ProcessState struct {
	Count                 int           `json:"count"`
	Running               int           `json:"running"`
	Threads               int           `json:"threads"`
	ContextSwitchesPerSec int64         `json:"context_switches_per_sec"`
	Top                   []ProcessInfo `json:"top"`
}

type SystemState struct {
	Host      HostState     `json:"host"`
	CPU       CPUState      `json:"cpu"`
	Load      LoadState     `json:"load"`
	Memory    MemoryState   `json:"memory"`
	GPUs      []GPUState    `json:"gpus"`
	Storage   StorageState  `json:"storage"`
	Battery   *BatteryState `json:"battery,omitempty"`
	Processes ProcessState  `json:"processes"`
	Timestamp time.Time     `json:"timestamp"`
}

func (s *SystemState) Clone() *SystemState {
	clone := *s
	clone.CPU.Cores = append([]float64(nil), s.CPU.Cores...)
	clone.GPUs = append([]GPUState{}, s.GPUs...)
	clone.Processes.Top = append([]ProcessInfo(nil), s.Processes.Top...)
	clone.Storage = make(StorageState, len(s.Storage))
	maps.Copy(clone.Storage, s.Storage)
	if s.Battery != nil {
		b := *s.Battery
		clone.Battery = &b
	}
	return &clone
}
