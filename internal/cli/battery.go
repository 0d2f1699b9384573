package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/haskel/vitals/internal/monitor"
)

var batteryCmd = &cobra.Command{
	Use:   "battery",
	Short: "Show battery and power usage",
	Long: `Query the vitals server for the battery state and current power use.

Examples:
  vitals battery
  vitals battery --json`,
	Args: cobra.NoArgs,
	RunE: runBattery,
}

func init() {
	rootCmd.AddCommand(batteryCmd)
}

type batteryReport struct {
	Battery *monitor.BatteryState `json:"battery"`
	Power   monitor.PowerState    `json:"power"`
}

func runBattery(cmd *cobra.Command, args []string) error {
	c := NewClient()

	b, err := c.Battery(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get battery: %w", err)
	}
	p, err := c.PowerConsumption(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get power consumption: %w", err)
	}

	report := batteryReport{Battery: b, Power: p}
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(report)
	}

	printBatteryReport(os.Stdout, report)
	return nil
}

func printBatteryReport(w io.Writer, r batteryReport) {
	fmt.Fprintln(w, "=== Power ===")
	printBattery(w, r.Battery)

	fmt.Fprintf(w, "\nUsage:\n")
	fmt.Fprintf(w, "  CPU: %.1f%%\n", r.Power.CPUPercent)
	if r.Power.GPUPercent > 0 {
		fmt.Fprintf(w, "  GPU: %.1f%%\n", r.Power.GPUPercent)
	}
	source := "AC power"
	if r.Power.OnBattery {
		source = "battery"
	}
	fmt.Fprintf(w, "  Source: %s\n", source)
}

func printBattery(w io.Writer, b *monitor.BatteryState) {
	fmt.Fprintf(w, "\nBattery:\n")
	if b == nil {
		fmt.Fprintln(w, "  "+monitor.MessageNoBattery)
		return
	}
	fmt.Fprintf(w, "  Level: %.0f%% (%s)\n", b.Percent, b.Status)
	fmt.Fprintf(w, "  Time left: %s\n", formatTimeLeft(b.TimeLeftSec))
	if b.PowerWatts > 0 {
		fmt.Fprintf(w, "  Power: %.1f W\n", b.PowerWatts)
	}
	if b.HealthPercent > 0 {
		fmt.Fprintf(w, "  Health: %.1f%% (%d cycles)\n", b.HealthPercent, b.CycleCount)
	}
}

func formatTimeLeft(sec int64) string {
	if sec < 0 {
		return "unknown"
	}
	return fmt.Sprintf("%dh %02dm", sec/3600, sec%3600/60)
}
