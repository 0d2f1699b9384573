package tui

import (
	"fmt"
	"math"
	"time"

	"github.com/haskel/vitals/internal/orchestrator"
)

type NotificationKind int

const (
	NotificationNone NotificationKind = iota
	NotificationProgress
	NotificationSuccess
	NotificationError
)

// Notification is the transient speed test panel.
type Notification struct {
	Kind     NotificationKind
	Title    string
	Detail   string
	Progress float64
}

// Notify derives the panel from the session alone. A resolved run stays
// visible until window has passed since its completion.
func Notify(s orchestrator.Session, now time.Time, window time.Duration) Notification {
	if s.IsRunning {
		return Notification{
			Kind:     NotificationProgress,
			Title:    "Speed Test Running",
			Detail:   fmt.Sprintf("%s (%.0f%%)", s.CurrentPhaseLabel, math.Round(s.ProgressPercent)),
			Progress: s.ProgressPercent,
		}
	}

	if !s.Terminal() || s.CompletedAt.IsZero() || now.Sub(s.CompletedAt) >= window {
		return Notification{}
	}

	if s.State == orchestrator.StateFailed {
		return Notification{
			Kind:     NotificationError,
			Title:    "Speed Test Failed",
			Detail:   s.LastError,
			Progress: 100,
		}
	}

	n := Notification{Kind: NotificationSuccess, Title: "Speed Test Complete", Progress: 100}
	if r := s.Result; r != nil {
		n.Detail = fmt.Sprintf("↓ %.1f Mbps  ↑ %.1f Mbps  ping %.0f ms", r.Download, r.Upload, r.Ping)
	}
	return n
}

// Visible reports whether the panel renders anything.
func (n Notification) Visible() bool {
	return n.Kind != NotificationNone
}
