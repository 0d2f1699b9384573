package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// perIPMaxAge is how long an idle client keeps its limiter.
	perIPMaxAge = 10 * time.Minute
	// perIPMaxEntries caps the limiter table; the least recently seen
	// client is evicted beyond it.
	perIPMaxEntries = 4096
	perIPSweepEvery = time.Minute
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
	// PerIP gives every client address its own token bucket instead of
	// sharing one across the server.
	PerIP bool
}

// RateLimit rejects requests over the configured token bucket rate with
// 429. The dashboard polls several endpoints a second, so the burst
// should cover one refresh of every panel.
func RateLimit(config RateLimitConfig) Middleware {
	if !config.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	var allow func(r *http.Request) bool
	if config.PerIP {
		limiters := newPerIPLimiter(config.RequestsPerSecond, config.Burst)
		allow = func(r *http.Request) bool {
			return limiters.getLimiter(getClientIP(r)).Allow()
		}
	} else {
		limiter := rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
		allow = func(*http.Request) bool {
			return limiter.Allow()
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow(r) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type ipLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// perIPLimiter keeps one limiter per client. Idle entries are swept
// lazily from getLimiter.
type perIPLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiterEntry
	rps       rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newPerIPLimiter(rps float64, burst int) *perIPLimiter {
	return &perIPLimiter{
		limiters:  make(map[string]*ipLimiterEntry),
		rps:       rate.Limit(rps),
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *perIPLimiter) getLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= perIPSweepEvery {
		l.cleanupLocked(now)
	}

	entry, exists := l.limiters[ip]
	if !exists {
		if len(l.limiters) >= perIPMaxEntries {
			l.evictOldestLocked()
		}
		entry = &ipLimiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastAccess = now
	return entry.limiter
}

func (l *perIPLimiter) cleanupLocked(now time.Time) {
	l.lastSweep = now
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastAccess) > perIPMaxAge {
			delete(l.limiters, ip)
		}
	}
}

func (l *perIPLimiter) evictOldestLocked() {
	var oldestIP string
	var oldest time.Time
	for ip, entry := range l.limiters {
		if oldestIP == "" || entry.lastAccess.Before(oldest) {
			oldestIP = ip
			oldest = entry.lastAccess
		}
	}
	delete(l.limiters, oldestIP)
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP,
// then the connection's remote host.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
