package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/haskel/vitals/internal/monitor"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Get current system metrics",
	Long:  `Query the running vitals server for current resource utilization.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	state, err := NewClient().SystemStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(state)
	}

	printStatus(os.Stdout, state)
	return nil
}

const gib = 1024 * 1024 * 1024

func printStatus(w io.Writer, s *monitor.SystemState) {
	fmt.Fprintln(w, "=== System Status ===")

	if s.Host.Hostname != "" {
		fmt.Fprintf(w, "\nHost: %s (%s %s, %s)\n", s.Host.Hostname, s.Host.Platform, s.Host.PlatformVer, s.Host.Arch)
	}

	fmt.Fprintf(w, "\nCPU:\n")
	if s.CPU.Model != "" {
		fmt.Fprintf(w, "  Model: %s\n", s.CPU.Model)
	}
	fmt.Fprintf(w, "  Usage: %.1f%%\n", s.CPU.UsagePercent)
	fmt.Fprintf(w, "  Cores: %d physical, %d logical\n", s.CPU.Physical, s.CPU.Logical)
	if s.CPU.TemperatureC > 0 {
		fmt.Fprintf(w, "  Temperature: %.0f°C\n", s.CPU.TemperatureC)
	}
	fmt.Fprintf(w, "  Load: %.2f %.2f %.2f\n", s.Load.Load1, s.Load.Load5, s.Load.Load15)

	fmt.Fprintf(w, "\nMemory:\n")
	fmt.Fprintf(w, "  Usage: %.1f%%\n", s.Memory.UsagePercent)
	fmt.Fprintf(w, "  Used:  %.1f / %.1f GB\n", float64(s.Memory.UsedBytes)/gib, float64(s.Memory.TotalBytes)/gib)
	if s.Memory.SwapTotalBytes > 0 {
		fmt.Fprintf(w, "  Swap:  %.1f / %.1f GB\n", float64(s.Memory.SwapUsedBytes)/gib, float64(s.Memory.SwapTotalBytes)/gib)
	}

	if len(s.Storage) > 0 {
		fmt.Fprintf(w, "\nStorage:\n")
		for _, path := range slices.Sorted(maps.Keys(s.Storage)) {
			d := s.Storage[path]
			fmt.Fprintf(w, "  %s: %.1f GB free / %.1f GB total\n", path, float64(d.FreeBytes)/gib, float64(d.TotalBytes)/gib)
		}
	}

	if len(s.GPUs) > 0 {
		fmt.Fprintf(w, "\nGPU:\n")
		for _, g := range s.GPUs {
			fmt.Fprintf(w, "  GPU %d (%s): %.1f%% usage, %d°C", g.Index, g.Name, g.UsagePercent, g.Temperature)
			if g.VRAMTotalBytes > 0 {
				fmt.Fprintf(w, ", VRAM: %.1f / %.1f GB", float64(g.VRAMUsedBytes)/gib, float64(g.VRAMTotalBytes)/gib)
			}
			fmt.Fprintln(w)
		}
	}

	if s.Battery != nil {
		printBattery(w, s.Battery)
	}

	fmt.Fprintf(w, "\nProcesses:\n")
	fmt.Fprintf(w, "  Total: %d (%d running)\n", s.Processes.Count, s.Processes.Running)
	fmt.Fprintf(w, "  Threads: %d\n", s.Processes.Threads)
	for _, p := range s.Processes.Top {
		fmt.Fprintf(w, "  %7d %-24s %6.1f%% %8.1f MB\n", p.PID, p.Name, p.CPUPercent, float64(p.RSSBytes)/1024/1024)
	}
}
