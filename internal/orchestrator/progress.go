package orchestrator

import (
	"time"

	"github.com/haskel/vitals/internal/config"
)

// Phase is one segment of the simulated progress animation.
type Phase struct {
	Label    string
	Target   float64
	Duration time.Duration
}

func PhasesFromConfig(cfg []config.PhaseConfig) []Phase {
	phases := make([]Phase, 0, len(cfg))
	for _, p := range cfg {
		phases = append(phases, Phase{
			Label:    p.Label,
			Target:   p.Target,
			Duration: time.Duration(p.DurationMS) * time.Millisecond,
		})
	}
	return phases
}

// TotalDuration is the cumulative nominal duration of all phases.
func TotalDuration(phases []Phase) time.Duration {
	var total time.Duration
	for _, p := range phases {
		total += p.Duration
	}
	return total
}

// ProgressAt returns the interpolated progress and phase label after
// elapsed time, and whether the last phase has completed.
func ProgressAt(phases []Phase, elapsed time.Duration) (float64, string, bool) {
	if len(phases) == 0 {
		return finalTarget, "", true
	}

	prev := 0.0
	for _, p := range phases {
		if elapsed < p.Duration {
			frac := float64(elapsed) / float64(p.Duration)
			if frac < 0 {
				frac = 0
			}
			return prev + (p.Target-prev)*frac, p.Label, false
		}
		elapsed -= p.Duration
		prev = p.Target
	}

	last := phases[len(phases)-1]
	return last.Target, last.Label, true
}

// ElapsedFor is the inverse of ProgressAt: the elapsed time at which the
// animation first reaches progress.
func ElapsedFor(phases []Phase, progress float64) time.Duration {
	var elapsed time.Duration
	prev := 0.0
	for _, p := range phases {
		if progress < p.Target {
			if progress <= prev {
				return elapsed
			}
			frac := (progress - prev) / (p.Target - prev)
			return elapsed + time.Duration(frac*float64(p.Duration))
		}
		elapsed += p.Duration
		prev = p.Target
	}
	return elapsed
}
