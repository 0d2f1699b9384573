package monitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	powerSupplyDir = "/sys/class/power_supply"
	pmsetTimeout   = 2 * time.Second

	// MessageNoBattery is reported by /battery on machines without one.
	MessageNoBattery = "No battery detected"
)

// BatteryState describes the first system battery.
type BatteryState struct {
	Percent       float64 `json:"percent"`
	Status        string  `json:"status"`
	Charging      bool    `json:"charging"`
	PowerPlugged  bool    `json:"power_plugged"`
	TimeLeftSec   int64   `json:"time_left_sec"` // -1 when unknown
	PowerWatts    float64 `json:"power_watts,omitempty"`
	HealthPercent float64 `json:"health_percent,omitempty"`
	CycleCount    int     `json:"cycle_count,omitempty"`
}

// BatteryReport is the /battery payload. On machines without a battery
// only Error is set.
type BatteryReport struct {
	*BatteryState
	Error string `json:"error,omitempty"`
}

// PowerState summarises power use for /power_consumption. Sources the
// host cannot report are omitted.
type PowerState struct {
	Timestamp    time.Time `json:"timestamp"`
	CPUPercent   float64   `json:"cpu_percent"`
	GPUPercent   float64   `json:"gpu_percent,omitempty"`
	BatteryWatts float64   `json:"battery_watts,omitempty"`
	OnBattery    bool      `json:"on_battery"`
}

// Power derives the power summary from a collected state.
func (s *SystemState) Power() PowerState {
	p := PowerState{
		Timestamp:  s.Timestamp,
		CPUPercent: s.CPU.UsagePercent,
	}
	if len(s.GPUs) > 0 {
		var sum float64
		for _, g := range s.GPUs {
			sum += g.UsagePercent
		}
		p.GPUPercent = sum / float64(len(s.GPUs))
	}
	if b := s.Battery; b != nil {
		p.BatteryWatts = b.PowerWatts
		p.OnBattery = !b.PowerPlugged
	}
	return p
}

// BatteryMonitor reads the power supply class on Linux and pmset on
// macOS. Machines without a battery leave the state's Battery nil.
type BatteryMonitor struct {
	root string
	goos string
	run  commandFunc
}

func NewBatteryMonitor() *BatteryMonitor {
	return &BatteryMonitor{root: powerSupplyDir, goos: runtime.GOOS, run: runCommand}
}

func (m *BatteryMonitor) Name() string {
	return "battery"
}

func (m *BatteryMonitor) Collect(ctx context.Context, state *SystemState) error {
	var (
		b   *BatteryState
		err error
	)
	if m.goos == "darwin" {
		b, err = m.collectPMSet(ctx)
	} else {
		b, err = readPowerSupply(m.root)
	}
	if err != nil {
		return err
	}
	state.Battery = b
	return nil
}

func (m *BatteryMonitor) collectPMSet(ctx context.Context) (*BatteryState, error) {
	ctx, cancel := context.WithTimeout(ctx, pmsetTimeout)
	defer cancel()

	out, err := m.run(ctx, "pmset", "-g", "batt")
	if err != nil {
		return nil, fmt.Errorf("pmset: %w", err)
	}
	return parsePMSet(string(out)), nil
}

// readPowerSupply reads the first battery under root. Energy values are
// in µWh and µW; supplies that only report charge use µAh and µA.
func readPowerSupply(root string) (*BatteryState, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var dir string
	plugged := false
	for _, e := range entries {
		path := filepath.Join(root, e.Name())
		switch readString(path, "type") {
		case "Battery":
			if dir == "" {
				dir = path
			}
		case "Mains", "USB":
			if readString(path, "online") == "1" {
				plugged = true
			}
		}
	}
	if dir == "" {
		return nil, nil
	}

	b := &BatteryState{
		Status:      readString(dir, "status"),
		TimeLeftSec: -1,
	}
	if b.Status == "" {
		b.Status = "Unknown"
	}
	b.Charging = b.Status == "Charging"
	b.PowerPlugged = plugged || b.Charging || b.Status == "Full" || b.Status == "Not charging"

	now, full, design, rate, ok := readLevels(dir, "energy", "power")
	if ok {
		b.PowerWatts = round1(rate / 1e6)
	} else {
		now, full, design, rate, ok = readLevels(dir, "charge", "current")
		if volts, vok := readNumber(dir, "voltage_now"); ok && vok {
			b.PowerWatts = round1(rate * volts / 1e12)
		}
	}

	if capacity, cok := readNumber(dir, "capacity"); cok {
		b.Percent = capacity
	} else if ok && full > 0 {
		b.Percent = round1(now / full * 100)
	}

	if ok && rate > 0 {
		switch b.Status {
		case "Discharging":
			b.TimeLeftSec = int64(now / rate * 3600)
		case "Charging":
			b.TimeLeftSec = int64(max(full-now, 0) / rate * 3600)
		}
	}
	if ok && design > 0 && full > 0 {
		b.HealthPercent = round1(full / design * 100)
	}
	if cycles, cok := readNumber(dir, "cycle_count"); cok {
		b.CycleCount = int(cycles)
	}

	return b, nil
}

// readLevels reads <level>_now, <level>_full, <level>_full_design and
// <rate>_now. ok is false when the supply does not report <level>_now.
func readLevels(dir, level, rate string) (now, full, design, r float64, ok bool) {
	now, ok = readNumber(dir, level+"_now")
	if !ok {
		return 0, 0, 0, 0, false
	}
	full, _ = readNumber(dir, level+"_full")
	design, _ = readNumber(dir, level+"_full_design")
	r, _ = readNumber(dir, rate+"_now")
	return now, full, design, math.Abs(r), true
}

func readString(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func readNumber(dir, name string) (float64, bool) {
	v, err := strconv.ParseFloat(readString(dir, name), 64)
	return v, err == nil
}

// parsePMSet reads `pmset -g batt` output:
//
//	Now drawing from 'AC Power'
//	 -InternalBattery-0 (id=1234)	85%; charging; 1:23 remaining present: true
func parsePMSet(out string) *BatteryState {
	plugged := strings.Contains(out, "'AC Power'")

	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "%;") {
			continue
		}
		parts := strings.Split(line, ";")
		fields := strings.Fields(parts[0])
		if len(fields) == 0 {
			continue
		}
		percent, err := strconv.ParseFloat(strings.TrimSuffix(fields[len(fields)-1], "%"), 64)
		if err != nil {
			continue
		}

		b := &BatteryState{
			Percent:      percent,
			Status:       "Unknown",
			PowerPlugged: plugged,
			TimeLeftSec:  -1,
		}
		if len(parts) > 1 {
			b.Status = pmsetStatus(strings.TrimSpace(parts[1]))
		}
		b.Charging = b.Status == "Charging"
		if len(parts) > 2 {
			var h, m int
			if _, err := fmt.Sscanf(strings.TrimSpace(parts[2]), "%d:%d", &h, &m); err == nil {
				b.TimeLeftSec = int64(h*3600 + m*60)
			}
		}
		return b
	}
	return nil
}

func pmsetStatus(s string) string {
	switch s {
	case "charging", "finishing charge":
		return "Charging"
	case "discharging":
		return "Discharging"
	case "charged":
		return "Full"
	case "AC attached":
		return "Not charging"
	}
	return s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
