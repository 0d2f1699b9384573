package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/haskel/vitals/internal/monitor"
	"github.com/haskel/vitals/internal/network"
	"github.com/haskel/vitals/internal/orchestrator"
)

// Config holds TUI configuration
type Config struct {
	ServerURL       string
	RefreshInterval time.Duration
	User            string
	Password        string

	Orchestrator       orchestrator.Options
	NotificationWindow time.Duration
	Logger             *slog.Logger
}

type Page int

const (
	PageSystem Page = iota
	PageNetwork
	PageSpeedTest
)

var pageNames = []string{"System", "Network", "Speed Test"}

func (p Page) String() string {
	return pageNames[p]
}

// SpeedTests is the orchestrator surface the dashboard drives.
type SpeedTests interface {
	StartTest(ctx context.Context) bool
	RecoverInFlightTest(ctx context.Context) bool
	Subscribe() (<-chan orchestrator.Session, func())
	Telemetry() (network.Snapshot, bool)
}

// Source is a polled telemetry value with its last fetch error.
type Source[T any] interface {
	Latest() (T, bool)
	Err() error
	Poll(ctx context.Context) error
}

// Sources groups everything the model reads from.
type Sources struct {
	SpeedTests SpeedTests
	System     Source[*monitor.SystemState]
	Quality    Source[network.Quality]
}

// Model represents the TUI state
type Model struct {
	config  Config
	ctx     context.Context
	sources Sources

	sessions    <-chan orchestrator.Session
	unsubscribe func()

	// Data from pollers
	system     *monitor.SystemState
	network    network.Snapshot
	hasNetwork bool
	quality    *network.Quality
	session    orchestrator.Session

	// UI state
	page        Page
	width       int
	height      int
	err         error
	now         time.Time
	lastUpdated time.Time
}

// NewModel subscribes to the orchestrator; ctx bounds the backend I/O
// of runs started from the dashboard.
func NewModel(ctx context.Context, cfg Config, src Sources) Model {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Second
	}
	sessions, unsubscribe := src.SpeedTests.Subscribe()
	return Model{
		config:      cfg,
		ctx:         ctx,
		sources:     src,
		sessions:    sessions,
		unsubscribe: unsubscribe,
		now:         time.Now(),
	}
}

// Close releases the session subscription.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}
