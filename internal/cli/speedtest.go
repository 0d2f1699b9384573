package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haskel/vitals/internal/config"
	"github.com/haskel/vitals/internal/logger"
	"github.com/haskel/vitals/internal/orchestrator"
)

var speedtestCmd = &cobra.Command{
	Use:   "speedtest",
	Short: "Run an internet speed test with live progress",
	Long: `Run a speed test on the vitals server and follow it until it resolves.
A test that is already running on the server is adopted instead of
starting a new one.

Examples:
  vitals speedtest
  vitals speedtest --strategy direct
  vitals speedtest --json`,
	Args: cobra.NoArgs,
	RunE: runSpeedTest,
}

var strategy string

func init() {
	speedtestCmd.Flags().StringVar(&strategy, "strategy", "", "request strategy: poll or direct (default from config)")
	rootCmd.AddCommand(speedtestCmd)
}

func runSpeedTest(cmd *cobra.Command, args []string) error {
	cfg := config.LoadOrDefault(cfgFile)

	opts := orchestrator.OptionsFromConfig(cfg)
	if strategy != "" {
		switch s := orchestrator.Strategy(strategy); s {
		case orchestrator.StrategyPoll, orchestrator.StrategyDirect:
			opts.Strategy = s
		default:
			return fmt.Errorf("unknown strategy %q (want poll or direct)", strategy)
		}
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	o := orchestrator.New(NewClient(), opts, logger.NewStderr(level, cfg.Logging.Format))
	defer o.Close()

	updates, unsubscribe := o.Subscribe()
	defer unsubscribe()

	ctx := cmd.Context()
	if o.RecoverInFlightTest(ctx) {
		if !jsonOut {
			fmt.Fprintln(os.Stderr, "Following a speed test already in progress")
		}
	} else {
		o.StartTest(ctx)
	}

	var final orchestrator.Session
	for s := range updates {
		if !jsonOut && s.IsRunning {
			fmt.Fprintf(os.Stderr, "\r\033[K%s", progressLine(s, 30))
		}
		if s.Terminal() {
			final = s
			break
		}
	}
	if !jsonOut {
		fmt.Fprintln(os.Stderr)
	}

	// Join the telemetry refresh that follows a successful run.
	o.Wait()

	if jsonOut {
		if err := json.NewEncoder(os.Stdout).Encode(final); err != nil {
			return err
		}
	} else {
		printSession(os.Stdout, final)
	}

	if final.State == orchestrator.StateFailed {
		return errors.New(final.LastError)
	}
	return nil
}

// progressLine renders a session as a text bar followed by the rounded
// percent and the phase label.
func progressLine(s orchestrator.Session, width int) string {
	pct := math.Round(s.ProgressPercent)
	filled := int(float64(width) * min(max(s.ProgressPercent, 0), 100) / 100)
	bar := strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
	return fmt.Sprintf("[%s] %3.0f%% %s", bar, pct, s.CurrentPhaseLabel)
}

func printSession(w io.Writer, s orchestrator.Session) {
	if s.State == orchestrator.StateFailed {
		fmt.Fprintf(w, "✗ %s\n", s.LastError)
		return
	}
	r := s.Result
	if r == nil {
		return
	}

	fmt.Fprintln(w, "=== Speed Test ===")
	fmt.Fprintf(w, "  Download: %.1f Mbps\n", r.Download)
	fmt.Fprintf(w, "  Upload:   %.1f Mbps\n", r.Upload)
	fmt.Fprintf(w, "  Ping:     %.0f ms\n", r.Ping)
	if srv := r.Server; srv != nil {
		fmt.Fprintf(w, "  Server:   %s", srv.Name)
		if srv.Location != "" {
			fmt.Fprintf(w, " (%s)", srv.Location)
		}
		if srv.Sponsor != "" {
			fmt.Fprintf(w, ", %s", srv.Sponsor)
		}
		if srv.Distance != "" {
			fmt.Fprintf(w, ", %s", srv.Distance)
		}
		fmt.Fprintln(w)
	}
}
