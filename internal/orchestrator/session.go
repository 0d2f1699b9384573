package orchestrator

import (
	"time"

	"github.com/haskel/vitals/internal/speedtest"
)

type State string

const (
	StateIdle       State = "idle"
	StateRunning    State = "running"
	StateFinalizing State = "finalizing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// CompletedLabel is shown while the session animates from 99 to 100.
const CompletedLabel = "Test completed!"

// Session is the lifecycle record of one speed test run. Values handed
// out by the Orchestrator are copies.
type Session struct {
	ID                string            `json:"id,omitempty"`
	State             State             `json:"state"`
	IsRunning         bool              `json:"is_running"`
	ProgressPercent   float64           `json:"progress_percent"`
	CurrentPhaseLabel string            `json:"current_phase_label"`
	Result            *speedtest.Result `json:"result"`
	LastError         string            `json:"last_error,omitempty"`
	DataReady         bool              `json:"data_ready"`
	StartedAt         time.Time         `json:"started_at,omitzero"`
	CompletedAt       time.Time         `json:"completed_at,omitzero"`
}

// Terminal reports whether the run has resolved.
func (s Session) Terminal() bool {
	return s.State == StateCompleted || s.State == StateFailed
}

func (s Session) clone() Session {
	if s.Result != nil {
		r := *s.Result
		if r.Server != nil {
			srv := *r.Server
			r.Server = &srv
		}
		s.Result = &r
	}
	return s
}
