package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/haskel/vitals/internal/client"
	"github.com/haskel/vitals/internal/logger"
	"github.com/haskel/vitals/internal/monitor"
	"github.com/haskel/vitals/internal/network"
	"github.com/haskel/vitals/internal/orchestrator"
	"github.com/haskel/vitals/internal/telemetry"
)

// qualityInterval matches the backend network refresh cadence.
const qualityInterval = 30 * time.Second

// Run starts the TUI application. The orchestrator and pollers live for
// the whole program so a run survives page switches.
func Run(cfg Config) error {
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}

	c := client.New(client.Options{
		BaseURL:  cfg.ServerURL,
		User:     cfg.User,
		Password: cfg.Password,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orch := orchestrator.New(c, cfg.Orchestrator, log)
	system := telemetry.NewPoller[*monitor.SystemState]("status", cfg.RefreshInterval, c.SystemStatus, nil, log)
	quality := telemetry.NewPoller[network.Quality]("connection-quality", qualityInterval, c.ConnectionQuality, network.Quality{}, log)

	if err := orch.StartTelemetry(ctx); err != nil {
		return fmt.Errorf("failed to start telemetry: %w", err)
	}
	defer orch.Close()
	if err := system.Start(ctx); err != nil {
		return fmt.Errorf("failed to start status poller: %w", err)
	}
	defer system.Stop()
	if err := quality.Start(ctx); err != nil {
		return fmt.Errorf("failed to start quality poller: %w", err)
	}
	defer quality.Stop()

	model := NewModel(ctx, cfg, Sources{
		SpeedTests: orch,
		System:     system,
		Quality:    quality,
	})
	defer model.Close()

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
