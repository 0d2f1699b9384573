package monitor

import (
	"context"
	"testing"

	"github.com/shirou/gopsutil/v4/sensors"
)

func TestCPUMonitor_Collect(t *testing.T) {
	m := NewCPUMonitor()
	state := &SystemState{}

	if err := m.Collect(context.Background(), state); err != nil {
		t.Fatalf("failed to collect CPU data: %v", err)
	}

	if state.CPU.UsagePercent < 0 || state.CPU.UsagePercent > 100 {
		t.Errorf("invalid CPU usage percent: %f", state.CPU.UsagePercent)
	}
	if len(state.CPU.Cores) == 0 {
		t.Error("expected at least one core")
	}
	for i, core := range state.CPU.Cores {
		if core < 0 || core > 100 {
			t.Errorf("invalid core %d usage: %f", i, core)
		}
	}
	if state.CPU.Logical == 0 {
		t.Error("expected logical processor count")
	}
}

func TestAveragePercent(t *testing.T) {
	if got := averagePercent(nil); got != 0 {
		t.Errorf("expected 0 for no cores, got %v", got)
	}
	if got := averagePercent([]float64{10, 20, 31}); got != 20.3 {
		t.Errorf("expected 20.3, got %v", got)
	}
}

func TestAverageCPUTemperature(t *testing.T) {
	temps := []sensors.TemperatureStat{
		{SensorKey: "coretemp_core_0", Temperature: 50},
		{SensorKey: "coretemp_core_1", Temperature: 55},
		{SensorKey: "nvme_composite", Temperature: 40},
		{SensorKey: "k10temp_tctl", Temperature: 0},
	}
	if got := averageCPUTemperature(temps); got != 52.5 {
		t.Errorf("expected 52.5, got %v", got)
	}
	if got := averageCPUTemperature([]sensors.TemperatureStat{{SensorKey: "acpitz", Temperature: 30}}); got != 0 {
		t.Errorf("expected 0 without CPU sensors, got %v", got)
	}
}
