package network

import (
	"sync"
	"time"
)

const (
	Timeframe5Min  = "5min"
	Timeframe1Hour = "1hour"
	Timeframe1Day  = "1day"
)

// TimeframeWindow maps a timeframe name to its look-back window.
// Unknown names select everything retained.
func TimeframeWindow(timeframe string) time.Duration {
	switch timeframe {
	case Timeframe5Min:
		return 5 * time.Minute
	case Timeframe1Hour:
		return time.Hour
	case Timeframe1Day:
		return 24 * time.Hour
	default:
		return 100 * 24 * time.Hour
	}
}

// History is a fixed-size ring of bandwidth samples, oldest first.
type History struct {
	mu     sync.RWMutex
	points []BandwidthPoint
	start  int
	size   int
}

func NewHistory(capacity int) *History {
	return &History{points: make([]BandwidthPoint, max(capacity, 1))}
}

func (h *History) Add(p BandwidthPoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := (h.start + h.size) % len(h.points)
	h.points[idx] = p
	if h.size < len(h.points) {
		h.size++
	} else {
		h.start = (h.start + 1) % len(h.points)
	}
}

// Since returns the samples taken at or after cutoff.
func (h *History) Since(cutoff time.Time) []BandwidthPoint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]BandwidthPoint, 0, h.size)
	for i := range h.size {
		p := h.points[(h.start+i)%len(h.points)]
		if !p.Timestamp.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.start = 0
	h.size = 0
	clear(h.points)
}
