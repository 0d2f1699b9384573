package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/haskel/vitals/internal/network"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Show network connection and quality",
	Long: `Query the vitals server for the aggregate network snapshot and the
current connection quality.

Examples:
  vitals network
  vitals network --json`,
	Args: cobra.NoArgs,
	RunE: runNetwork,
}

func init() {
	rootCmd.AddCommand(networkCmd)
}

type networkReport struct {
	Snapshot network.Snapshot `json:"snapshot"`
	Quality  *network.Quality `json:"quality"`
}

func runNetwork(cmd *cobra.Command, args []string) error {
	c := NewClient()

	snap, err := c.All(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get network data: %w", err)
	}

	report := networkReport{Snapshot: snap}
	// Quality is unavailable until the first refresh completes.
	if q, err := c.ConnectionQuality(cmd.Context()); err == nil {
		report.Quality = &q
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(report)
	}

	printNetwork(os.Stdout, report)
	return nil
}

func printNetwork(w io.Writer, r networkReport) {
	fmt.Fprintln(w, "=== Network ===")

	d := r.Snapshot.NetworkData
	if d == nil {
		fmt.Fprintln(w, "\nNo network data collected yet.")
		return
	}

	fmt.Fprintf(w, "\nConnection: %s (%s)\n", d.ConnectionType, d.Interface)
	fmt.Fprintf(w, "  IP:   %s\n", d.IPAddress)
	fmt.Fprintf(w, "  MAC:  %s\n", d.MACAddress)
	fmt.Fprintf(w, "  Down: %.1f Mbps\n", d.DownloadSpeed)
	fmt.Fprintf(w, "  Up:   %.1f Mbps\n", d.UploadSpeed)

	if q := r.Quality; q != nil {
		fmt.Fprintf(w, "\nQuality:\n")
		fmt.Fprintf(w, "  Ping:        %.0f ms\n", q.Ping)
		fmt.Fprintf(w, "  Jitter:      %.1f ms\n", q.Jitter)
		fmt.Fprintf(w, "  Packet loss: %.1f%%\n", q.PacketLoss)
		fmt.Fprintf(w, "  Stability:   %.1f%%\n", q.Stability)
	}

	if stats := r.Snapshot.IOData; stats != nil {
		fmt.Fprintf(w, "\nInterfaces: %v\n", stats.ActiveInterfaces)
		fmt.Fprintf(w, "  Sent:     %.1f MB\n", float64(stats.BytesSent)/1024/1024)
		fmt.Fprintf(w, "  Received: %.1f MB\n", float64(stats.BytesReceived)/1024/1024)
	}

	fmt.Fprintf(w, "\nHistory points (5 min): %d\n", len(r.Snapshot.BandwidthHistory))
}
