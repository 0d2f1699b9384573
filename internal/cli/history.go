package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/haskel/vitals/internal/network"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear bandwidth history",
	Long: `Print the bandwidth history kept by the vitals server, or clear it.

Examples:
  vitals history
  vitals history --timeframe 1hour
  vitals history --clear`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var (
	timeframe    string
	clearHistory bool
)

func init() {
	historyCmd.Flags().StringVar(&timeframe, "timeframe", network.Timeframe5Min, "history window: 5min, 1hour or 1day")
	historyCmd.Flags().BoolVar(&clearHistory, "clear", false, "clear the history instead of printing it")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	c := NewClient()

	if clearHistory {
		if err := c.ClearHistory(cmd.Context()); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		if jsonOut {
			fmt.Println(`{"status":"success"}`)
		} else {
			fmt.Println("History cleared")
		}
		return nil
	}

	points, err := c.BandwidthHistory(cmd.Context(), timeframe)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if jsonOut {
		if points == nil {
			points = []network.BandwidthPoint{}
		}
		return json.NewEncoder(os.Stdout).Encode(points)
	}

	printHistory(os.Stdout, points)
	return nil
}

func printHistory(w io.Writer, points []network.BandwidthPoint) {
	if len(points) == 0 {
		fmt.Fprintln(w, "No history recorded yet.")
		return
	}

	fmt.Fprintf(w, "%-8s  %10s  %10s\n", "TIME", "DOWN Mbps", "UP Mbps")
	for _, p := range points {
		marker := ""
		if p.IsSpeedTest {
			marker = "  speed test"
		}
		fmt.Fprintf(w, "%-8s  %10.1f  %10.1f%s\n", p.Timestamp.Local().Format("15:04:05"), p.Download, p.Upload, marker)
	}
}
