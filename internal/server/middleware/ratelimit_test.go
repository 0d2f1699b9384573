package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func doRequest(h http.Handler, remote, xff string) int {
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.RemoteAddr = remote
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_Disabled(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Enabled: false, RequestsPerSecond: 1, Burst: 1})(okHandler())

	for i := range 50 {
		if code := doRequest(handler, "10.0.0.1:1", ""); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
}

func TestRateLimit_Global(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2})(okHandler())

	if doRequest(handler, "10.0.0.1:1", "") != http.StatusOK || doRequest(handler, "10.0.0.2:1", "") != http.StatusOK {
		t.Fatal("burst should be allowed")
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 once the shared bucket is empty, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimit_PerIP(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Enabled: true, PerIP: true, RequestsPerSecond: 0.001, Burst: 2})(okHandler())

	for range 2 {
		doRequest(handler, "192.168.1.1:12345", "")
	}
	if code := doRequest(handler, "192.168.1.1:23456", ""); code != http.StatusTooManyRequests {
		t.Errorf("same host on another port should share a bucket, got %d", code)
	}
	if code := doRequest(handler, "192.168.1.2:12345", ""); code != http.StatusOK {
		t.Errorf("other client should have its own bucket, got %d", code)
	}
	if code := doRequest(handler, "192.168.1.1:12345", "10.0.0.9"); code != http.StatusOK {
		t.Errorf("forwarded client should have its own bucket, got %d", code)
	}
}

func TestRateLimit_PerIPConcurrent(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Enabled: true, PerIP: true, RequestsPerSecond: 1000, Burst: 100})(okHandler())

	var wg sync.WaitGroup
	var ok atomic.Int32
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if doRequest(handler, "192.168.1.1:12345", "") == http.StatusOK {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 50 {
		t.Errorf("expected 50 successful requests, got %d", ok.Load())
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		expected   string
	}{
		{"forwarded chain uses first hop", "10.0.0.1, 172.16.0.1", "10.0.0.2", "10.0.0.3:12345", "10.0.0.1"},
		{"real ip", "", " 10.0.0.2 ", "10.0.0.3:12345", "10.0.0.2"},
		{"remote host", "", "", "10.0.0.3:12345", "10.0.0.3"},
		{"ipv6 remote host", "", "", "[::1]:8080", "::1"},
		{"remote without port", "", "", "unix", "unix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			if ip := getClientIP(req); ip != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, ip)
			}
		})
	}
}

func TestPerIPLimiter_SweepsIdleEntries(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	limiter := newPerIPLimiter(100, 10)
	limiter.now = c.now
	limiter.lastSweep = c.t

	for i := range 5 {
		limiter.getLimiter(fmt.Sprintf("192.168.1.%d", i))
	}

	c.t = c.t.Add(perIPMaxAge + time.Minute)
	limiter.getLimiter("10.0.0.1")

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if len(limiter.limiters) != 1 {
		t.Errorf("expected only the fresh client to remain, got %d entries", len(limiter.limiters))
	}
	if _, ok := limiter.limiters["10.0.0.1"]; !ok {
		t.Error("fresh client missing")
	}
}

func TestPerIPLimiter_KeepsActiveEntries(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	limiter := newPerIPLimiter(100, 10)
	limiter.now = c.now
	limiter.lastSweep = c.t

	limiter.getLimiter("a")
	c.t = c.t.Add(perIPMaxAge - time.Minute)
	limiter.getLimiter("a")
	c.t = c.t.Add(2 * time.Minute)
	limiter.getLimiter("b")

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if len(limiter.limiters) != 2 {
		t.Errorf("expected recently seen client to survive the sweep, got %d entries", len(limiter.limiters))
	}
}

func TestPerIPLimiter_EvictOldest(t *testing.T) {
	limiter := newPerIPLimiter(100, 10)
	now := time.Now()

	limiter.mu.Lock()
	for i := range 3 {
		limiter.limiters[fmt.Sprintf("192.168.1.%d", i)] = &ipLimiterEntry{
			lastAccess: now.Add(time.Duration(i) * time.Second),
		}
	}
	limiter.evictOldestLocked()
	defer limiter.mu.Unlock()

	if len(limiter.limiters) != 2 {
		t.Errorf("expected 2 limiters, got %d", len(limiter.limiters))
	}
	if _, exists := limiter.limiters["192.168.1.0"]; exists {
		t.Error("oldest limiter should have been evicted")
	}
}
