package monitor

import (
	"context"
	"testing"
	"time"
)

func TestProcessMonitor_Collect(t *testing.T) {
	m := NewProcessMonitor(2)
	state := &SystemState{}

	if err := m.Collect(context.Background(), state); err != nil {
		t.Fatalf("failed to collect process data: %v", err)
	}

	ps := state.Processes
	if ps.Count <= 0 {
		t.Error("expected at least one process")
	}
	if ps.Threads <= 0 {
		t.Error("expected at least one thread")
	}
	if ps.ContextSwitchesPerSec != 0 {
		t.Errorf("first sample should report no rate, got %d", ps.ContextSwitchesPerSec)
	}
	if len(ps.Top) > 2 {
		t.Errorf("expected at most 2 top processes, got %d", len(ps.Top))
	}
}

func TestProcessMonitor_SwitchRate(t *testing.T) {
	m := NewProcessMonitor(0)
	start := time.Unix(1000, 0)

	if got := m.switchRate(5000, start); got != 0 {
		t.Errorf("first sample: expected 0, got %d", got)
	}
	if got := m.switchRate(7000, start.Add(2*time.Second)); got != 1000 {
		t.Errorf("expected 1000/s, got %d", got)
	}
	if got := m.switchRate(100, start.Add(3*time.Second)); got != 0 {
		t.Errorf("counter reset: expected 0, got %d", got)
	}
}

func TestTopByRSS(t *testing.T) {
	infos := []ProcessInfo{
		{PID: 1, RSSBytes: 10},
		{PID: 2, RSSBytes: 300},
		{PID: 3, RSSBytes: 20},
	}

	top := topByRSS(infos, 2)
	if len(top) != 2 || top[0].PID != 2 || top[1].PID != 3 {
		t.Errorf("unexpected order: %+v", top)
	}
	if got := topByRSS(nil, 5); len(got) != 0 {
		t.Errorf("expected empty result, got %+v", got)
	}
}
