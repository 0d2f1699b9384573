package monitor

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	gpuQuery   = "index,name,utilization.gpu,temperature.gpu,memory.used,memory.total,clocks.gr,clocks.mem"
	gpuTimeout = 5 * time.Second
	mib        = 1024 * 1024
)

type commandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// GPUMonitor reads NVIDIA GPU metrics through nvidia-smi. Without the
// tool the monitor reports no GPUs.
type GPUMonitor struct {
	path string
	run  commandFunc
}

func NewGPUMonitor() *GPUMonitor {
	path, _ := exec.LookPath("nvidia-smi")
	return &GPUMonitor{path: path, run: runCommand}
}

func (m *GPUMonitor) Name() string {
	return "gpu"
}

func (m *GPUMonitor) Available() bool {
	return m.path != ""
}

func (m *GPUMonitor) Collect(ctx context.Context, state *SystemState) error {
	if !m.Available() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, gpuTimeout)
	defer cancel()

	out, err := m.run(ctx, m.path, "--query-gpu="+gpuQuery, "--format=csv,noheader,nounits")
	if err != nil {
		return fmt.Errorf("nvidia-smi: %w", err)
	}

	gpus, err := parseGPUs(out)
	if err != nil {
		return err
	}
	state.GPUs = gpus
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// parseGPUs reads nvidia-smi CSV rows in gpuQuery column order. Fields
// the driver does not support ("[N/A]") are reported as zero.
func parseGPUs(out []byte) ([]GPUState, error) {
	r := csv.NewReader(bytes.NewReader(out))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = 8

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse nvidia-smi output: %w", err)
	}

	gpus := make([]GPUState, 0, len(records))
	for _, rec := range records {
		gpus = append(gpus, GPUState{
			Index:          int(number(rec[0])),
			Name:           strings.TrimSpace(rec[1]),
			UsagePercent:   number(rec[2]),
			Temperature:    int(number(rec[3])),
			VRAMUsedBytes:  uint64(number(rec[4]) * mib),
			VRAMTotalBytes: uint64(number(rec[5]) * mib),
			ClockMHz:       int(number(rec[6])),
			VRAMClockMHz:   int(number(rec[7])),
		})
	}
	return gpus, nil
}

func number(field string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0
	}
	return v
}
