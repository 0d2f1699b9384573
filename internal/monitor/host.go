package monitor

import (
	"context"

	"github.com/shirou/gopsutil/v4/host"
)

type HostMonitor struct{}

func NewHostMonitor() *HostMonitor {
	return &HostMonitor{}
}

func (m *HostMonitor) Name() string {
	return "host"
}

func (m *HostMonitor) Collect(ctx context.Context, state *SystemState) error {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return err
	}

	state.Host = HostState{
		Hostname:      info.Hostname,
		OS:            info.OS,
		Platform:      info.Platform,
		PlatformVer:   info.PlatformVersion,
		KernelVersion: info.KernelVersion,
		Arch:          info.KernelArch,
		UptimeSec:     info.Uptime,
		BootTime:      info.BootTime,
	}
	return nil
}
