package monitor

import (
	"context"
	"errors"
	"testing"
)

func TestParseGPUs(t *testing.T) {
	out := []byte("0, NVIDIA GeForce RTX 3080, 37, 61, 2048, 10240, 1710, 9501\n" +
		"1, Tesla T4, [N/A], 45, 0, 15360, [N/A], 5000\n")

	gpus, err := parseGPUs(out)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(gpus) != 2 {
		t.Fatalf("expected 2 GPUs, got %d", len(gpus))
	}

	g := gpus[0]
	if g.Name != "NVIDIA GeForce RTX 3080" || g.UsagePercent != 37 || g.Temperature != 61 {
		t.Errorf("unexpected first GPU %+v", g)
	}
	if g.VRAMUsedBytes != 2048*mib || g.VRAMTotalBytes != 10240*mib {
		t.Errorf("unexpected VRAM %d/%d", g.VRAMUsedBytes, g.VRAMTotalBytes)
	}
	if g.ClockMHz != 1710 || g.VRAMClockMHz != 9501 {
		t.Errorf("unexpected clocks %d/%d", g.ClockMHz, g.VRAMClockMHz)
	}

	if gpus[1].Index != 1 || gpus[1].UsagePercent != 0 || gpus[1].ClockMHz != 0 {
		t.Errorf("unsupported fields should be zero, got %+v", gpus[1])
	}
}

func TestParseGPUs_Malformed(t *testing.T) {
	if _, err := parseGPUs([]byte("0, only, three\n")); err == nil {
		t.Error("expected error for short record")
	}
}

func TestGPUMonitor_Unavailable(t *testing.T) {
	m := &GPUMonitor{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		t.Fatal("command should not run without nvidia-smi")
		return nil, nil
	}}
	state := &SystemState{GPUs: []GPUState{}}

	if err := m.Collect(context.Background(), state); err != nil {
		t.Fatalf("collect should not fail: %v", err)
	}
	if len(state.GPUs) != 0 {
		t.Errorf("expected no GPUs, got %d", len(state.GPUs))
	}
}

func TestGPUMonitor_Collect(t *testing.T) {
	var gotArgs []string
	m := &GPUMonitor{path: "/usr/bin/nvidia-smi", run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = args
		return []byte("0, Test GPU, 90, 70, 1, 2, 3, 4\n"), nil
	}}
	state := &SystemState{}

	if err := m.Collect(context.Background(), state); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(state.GPUs) != 1 || state.GPUs[0].UsagePercent != 90 {
		t.Errorf("unexpected GPUs %+v", state.GPUs)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "--query-gpu="+gpuQuery {
		t.Errorf("unexpected args %v", gotArgs)
	}
}

func TestGPUMonitor_CommandError(t *testing.T) {
	m := &GPUMonitor{path: "nvidia-smi", run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("exit status 9")
	}}

	if err := m.Collect(context.Background(), &SystemState{}); err == nil {
		t.Error("expected command failure to surface")
	}
}
