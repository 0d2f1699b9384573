package monitor

import (
	"context"
	"math"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/sensors"
)

// CPUMonitor reports usage, topology, temperature and load averages.
// Static details are read once.
type CPUMonitor struct {
	model    string
	physical int
	logical  int
	baseGHz  float64
	probed   bool
}

func NewCPUMonitor() *CPUMonitor {
	return &CPUMonitor{}
}

func (m *CPUMonitor) Name() string {
	return "cpu"
}

func (m *CPUMonitor) Collect(ctx context.Context, state *SystemState) error {
	if !m.probed {
		m.probe(ctx)
	}

	cores, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return err
	}

	state.CPU = CPUState{
		Model:        m.model,
		UsagePercent: averagePercent(cores),
		Cores:        cores,
		Physical:     m.physical,
		Logical:      m.logical,
		BaseGHz:      m.baseGHz,
		TemperatureC: cpuTemperature(ctx),
	}

	// Load averages are unsupported on some platforms.
	if avg, err := load.AvgWithContext(ctx); err == nil {
		state.Load = LoadState{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}
	}

	return nil
}

func (m *CPUMonitor) probe(ctx context.Context) {
	m.probed = true

	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		m.model = strings.TrimSpace(infos[0].ModelName)
		m.baseGHz = math.Round(infos[0].Mhz/10) / 100
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		m.physical = n
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		m.logical = n
	}
}

func averagePercent(cores []float64) float64 {
	if len(cores) == 0 {
		return 0
	}
	var sum float64
	for _, c := range cores {
		sum += c
	}
	return math.Round(sum/float64(len(cores))*10) / 10
}

// cpuTemperature averages package and core sensors. Zero means unknown.
func cpuTemperature(ctx context.Context) float64 {
	temps, err := sensors.TemperaturesWithContext(ctx)
	if err != nil && len(temps) == 0 {
		return 0
	}
	return averageCPUTemperature(temps)
}

func averageCPUTemperature(temps []sensors.TemperatureStat) float64 {
	var sum float64
	var n int
	for _, t := range temps {
		key := strings.ToLower(t.SensorKey)
		if t.Temperature <= 0 || !isCPUSensor(key) {
			continue
		}
		sum += t.Temperature
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Round(sum/float64(n)*10) / 10
}

func isCPUSensor(key string) bool {
	for _, prefix := range []string{"coretemp", "k10temp", "cpu", "package", "tctl", "tdie"} {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
