package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/haskel/vitals/internal/orchestrator"
)

// Messages for tea.Cmd
type tickMsg time.Time

type sessionMsg orchestrator.Session

type startedMsg struct {
	accepted bool
}

type recoveredMsg struct {
	adopted bool
}

type recoverDueMsg struct{}

type refreshedMsg struct {
	err error
}

// tick creates a periodic tick command
func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForSession delivers the next session published by the orchestrator.
func waitForSession(ch <-chan orchestrator.Session) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return sessionMsg(s)
	}
}

func startTest(ctx context.Context, st SpeedTests) tea.Cmd {
	return func() tea.Msg {
		return startedMsg{accepted: st.StartTest(ctx)}
	}
}

// recoverTest adopts a run the backend reports as running, whether it
// was in progress when the dashboard opened or started elsewhere later.
func recoverTest(ctx context.Context, st SpeedTests) tea.Cmd {
	return func() tea.Msg {
		return recoveredMsg{adopted: st.RecoverInFlightTest(ctx)}
	}
}

// recoverAfter schedules the next in-flight check. A failed status
// query only delays recovery until then.
func recoverAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return recoverDueMsg{}
	})
}

// refresh polls the telemetry sources immediately.
func refresh(ctx context.Context, src Sources) tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{err: errors.Join(
			src.System.Poll(ctx),
			src.Quality.Poll(ctx),
		)}
	}
}
