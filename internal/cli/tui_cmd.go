package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/haskel/vitals/internal/cli/tui"
	"github.com/haskel/vitals/internal/config"
	"github.com/haskel/vitals/internal/logger"
	"github.com/haskel/vitals/internal/orchestrator"
)

var (
	refreshInterval time.Duration
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	Long: `Launch an interactive terminal dashboard with system, network and
speed test pages. A speed test started from the dashboard keeps running
while you switch pages.

Examples:
  vitals tui                    # Basic launch with default settings
  vitals tui --refresh 500ms    # Faster refresh rate
  vitals tui --host 10.0.0.1    # Connect to remote server`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().DurationVar(&refreshInterval, "refresh", time.Second, "dashboard refresh interval")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg := config.LoadOrDefault(cfgFile)

	// The alternate screen owns stdout; only errors go to stderr.
	level := "error"
	if verbose {
		level = "warn"
	}

	return tui.Run(tui.Config{
		ServerURL:          GetServerURL(),
		RefreshInterval:    refreshInterval,
		User:               user,
		Password:           password,
		Orchestrator:       orchestrator.OptionsFromConfig(cfg),
		NotificationWindow: cfg.NotificationWindow(),
		Logger:             logger.NewStderr(level, cfg.Logging.Format),
	})
}
