package monitor

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/process"
)

// ProcessMonitor counts processes and threads, derives the context switch
// rate from the kernel counter and lists the largest processes by RSS.
type ProcessMonitor struct {
	top int

	mu           sync.Mutex
	prevSwitches int
	prevTime     time.Time
}

func NewProcessMonitor(top int) *ProcessMonitor {
	return &ProcessMonitor{top: top}
}

func (m *ProcessMonitor) Name() string {
	return "process"
}

func (m *ProcessMonitor) Collect(ctx context.Context, state *SystemState) error {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return err
	}

	ps := ProcessState{Count: len(procs)}
	infos := make([]ProcessInfo, 0, len(procs))

	for _, p := range procs {
		if threads, err := p.NumThreadsWithContext(ctx); err == nil {
			ps.Threads += int(threads)
		}
		if m.top == 0 {
			continue
		}

		// Processes can exit or deny access between listing and reading.
		memInfo, err := p.MemoryInfoWithContext(ctx)
		if err != nil {
			continue
		}
		name, _ := p.NameWithContext(ctx)
		cpuPct, _ := p.CPUPercentWithContext(ctx)
		infos = append(infos, ProcessInfo{
			PID:        p.Pid,
			Name:       name,
			CPUPercent: cpuPct,
			RSSBytes:   memInfo.RSS,
		})
	}

	ps.Top = topByRSS(infos, m.top)

	if misc, err := load.MiscWithContext(ctx); err == nil {
		ps.Running = misc.ProcsRunning
		ps.ContextSwitchesPerSec = m.switchRate(misc.Ctxt, time.Now())
	}

	state.Processes = ps
	return nil
}

// switchRate converts the cumulative context switch counter to a rate.
// The first sample and counter resets report zero.
func (m *ProcessMonitor) switchRate(total int, now time.Time) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rate int64
	if !m.prevTime.IsZero() && total >= m.prevSwitches {
		if elapsed := now.Sub(m.prevTime).Seconds(); elapsed > 0 {
			rate = int64(float64(total-m.prevSwitches) / elapsed)
		}
	}

	m.prevSwitches = total
	m.prevTime = now
	return rate
}

func topByRSS(infos []ProcessInfo, n int) []ProcessInfo {
	slices.SortFunc(infos, func(a, b ProcessInfo) int {
		return cmp.Compare(b.RSSBytes, a.RSSBytes)
	})
	if len(infos) > n {
		infos = infos[:n]
	}
	return infos
}
