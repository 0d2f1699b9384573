package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haskel/vitals/internal/config"
	"github.com/haskel/vitals/internal/logger"
	"github.com/haskel/vitals/internal/monitor"
	"github.com/haskel/vitals/internal/network"
	"github.com/haskel/vitals/internal/server"
	"github.com/haskel/vitals/internal/speedtest"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the vitals telemetry server",
	Long:  `Start the vitals telemetry server in foreground mode.`,
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = host
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	log.Info("vitals starting",
		"version", Version,
		"config", cfgFile,
	)

	gpu := monitor.NewGPUMonitor()
	if !gpu.Available() {
		log.Info("nvidia-smi not found, GPU metrics disabled")
	}

	monitors := []monitor.Monitor{
		monitor.NewHostMonitor(),
		monitor.NewCPUMonitor(),
		monitor.NewMemoryMonitor(),
		monitor.NewStorageMonitor(cfg.Monitoring.Paths),
		monitor.NewProcessMonitor(cfg.Monitoring.TopProcesses),
		monitor.NewBatteryMonitor(),
		gpu,
	}

	agg := monitor.NewAggregator(monitors, cfg.MonitoringInterval(), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := agg.Start(ctx); err != nil {
		return fmt.Errorf("failed to start aggregator: %w", err)
	}

	collector := network.NewCollector(cfg.Network, log)
	if err := collector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start network collector: %w", err)
	}

	runner := speedtest.NewRunner(speedtest.NewHTTPMeasurer(cfg.SpeedTest), cfg.SpeedTest, log)
	runner.OnResult(collector.RecordSpeedTest)

	if cfg.Server.PIDFile != "" {
		if err := writePIDFile(cfg.Server.PIDFile); err != nil {
			log.Warn("failed to write PID file", "error", err)
		} else {
			defer os.Remove(cfg.Server.PIDFile)
		}
	}

	srv := server.New(cfg, agg, collector, runner, log, Version)

	sighupCh := make(chan os.Signal, 1)
	sigCh := make(chan os.Signal, 1)
	shutdownDone := make(chan struct{})

	signal.Notify(sighupCh, syscall.SIGHUP)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// SIGHUP reloads the config file; only auth changes take effect.
	go func() {
		for {
			select {
			case <-sighupCh:
				log.Info("SIGHUP received, reloading configuration")

				newCfg, err := loadConfig(cfgFile)
				if err != nil {
					log.Error("invalid configuration, reload aborted", "error", err)
					continue
				}

				srv.ReloadConfig(newCfg)
			case <-shutdownDone:
				return
			}
		}
	}()

	go func() {
		<-sigCh

		log.Info("shutdown signal received")

		signal.Stop(sighupCh)
		signal.Stop(sigCh)
		close(shutdownDone)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", "error", err)
		}

		runner.Close()
		if err := collector.Stop(); err != nil {
			log.Error("network collector shutdown error", "error", err)
		}
		agg.Stop()
		cancel()
	}()

	log.Info("vitals ready", "addr", srv.Addr())

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("vitals stopped")
	return nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, fmt.Appendf(nil, "%d", os.Getpid()), 0644)
}

// loadConfig is strict about an explicit file; without one the defaults apply.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
