package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/haskel/vitals/internal/orchestrator"
)

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForSession(m.sessions),
		recoverTest(m.ctx, m.sources.SpeedTests),
		tick(m.config.RefreshInterval),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case sessionMsg:
		m.session = orchestrator.Session(msg)
		m.now = time.Now()
		return m, waitForSession(m.sessions)

	case tickMsg:
		m.now = time.Time(msg)
		m.readSources()
		return m, tick(m.config.RefreshInterval)

	case refreshedMsg:
		m.now = time.Now()
		m.readSources()
		return m, nil

	case recoveredMsg:
		return m, recoverAfter(m.recoverInterval())

	case recoverDueMsg:
		return m, recoverTest(m.ctx, m.sources.SpeedTests)

	case startedMsg:
		return m, nil
	}

	return m, nil
}

// recoverInterval paces in-flight checks at the status poll cadence.
// The orchestrator skips the backend query while its own run is active.
func (m Model) recoverInterval() time.Duration {
	if d := m.config.Orchestrator.PollInterval; d > 0 {
		return d
	}
	return time.Second
}

// readSources copies the latest polled values into the model. Poll
// failures keep the previous values.
func (m *Model) readSources() {
	if s, ok := m.sources.System.Latest(); ok {
		m.system = s
		m.lastUpdated = m.now
	}
	m.err = m.sources.System.Err()

	if snap, ok := m.sources.SpeedTests.Telemetry(); ok {
		m.network = snap
		m.hasNetwork = true
	}

	if q, ok := m.sources.Quality.Latest(); ok {
		m.quality = &q
	}
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab", "right", "l":
		m.page = (m.page + 1) % Page(len(pageNames))
		return m, nil

	case "shift+tab", "left", "h":
		m.page = (m.page + Page(len(pageNames)) - 1) % Page(len(pageNames))
		return m, nil

	case "1", "2", "3":
		m.page = Page(msg.String()[0] - '1')
		return m, nil

	case "s":
		// The orchestrator ignores the request while a run is active.
		if m.session.IsRunning {
			return m, nil
		}
		return m, startTest(m.ctx, m.sources.SpeedTests)

	case "r":
		return m, refresh(m.ctx, m.sources)
	}

	return m, nil
}
