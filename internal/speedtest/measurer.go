package speedtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/haskel/vitals/internal/config"
)

// Measurer performs the network work of a single run.
type Measurer interface {
	BestServer(ctx context.Context) (config.SpeedTestServer, time.Duration, error)
	// Download and Upload return raw throughput in Mbps.
	Download(ctx context.Context, srv config.SpeedTestServer) (float64, error)
	Upload(ctx context.Context, srv config.SpeedTestServer) (float64, error)
}

var ErrNoServers = errors.New("no reachable speed test server")

// HTTPMeasurer measures throughput with parallel HTTP streams against
// servers that accept a "bytes" query on the download URL and arbitrary
// POST bodies on the upload URL.
type HTTPMeasurer struct {
	servers       []config.SpeedTestServer
	threads       int
	downloadBytes int64
	uploadBytes   int64
	timeout       time.Duration
	client        *http.Client
}

func NewHTTPMeasurer(cfg config.SpeedTestConfig) *HTTPMeasurer {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	return &HTTPMeasurer{
		servers:       cfg.Servers,
		threads:       max(cfg.Threads, 1),
		downloadBytes: cfg.DownloadBytes,
		uploadBytes:   cfg.UploadBytes,
		timeout:       timeout,
		client: &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
	}
}

// BestServer picks the server with the lowest TCP connect latency.
func (m *HTTPMeasurer) BestServer(ctx context.Context) (config.SpeedTestServer, time.Duration, error) {
	latencies := make([]time.Duration, len(m.servers))

	g, gctx := errgroup.WithContext(ctx)
	for i, srv := range m.servers {
		g.Go(func() error {
			lat, err := m.dialLatency(gctx, srv.DownloadURL)
			if err != nil {
				latencies[i] = -1
				return nil
			}
			latencies[i] = lat
			return nil
		})
	}
	_ = g.Wait()

	best := -1
	for i, lat := range latencies {
		if lat < 0 {
			continue
		}
		if best < 0 || lat < latencies[best] {
			best = i
		}
	}
	if best < 0 {
		return config.SpeedTestServer{}, 0, ErrNoServers
	}
	return m.servers[best], latencies[best], nil
}

func (m *HTTPMeasurer) dialLatency(ctx context.Context, rawURL string) (time.Duration, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, err
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}

	d := net.Dialer{Timeout: m.timeout}
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(u.Hostname(), port))
	if err != nil {
		return 0, err
	}
	lat := time.Since(start)
	conn.Close()
	return lat, nil
}

func (m *HTTPMeasurer) Download(ctx context.Context, srv config.SpeedTestServer) (float64, error) {
	perStream := m.downloadBytes / int64(m.threads)
	target, err := withBytes(srv.DownloadURL, perStream)
	if err != nil {
		return 0, err
	}

	return m.parallel(ctx, func(ctx context.Context) (int64, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return 0, err
		}
		resp, err := m.client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return 0, fmt.Errorf("download: unexpected status %d", resp.StatusCode)
		}
		return io.Copy(io.Discard, io.LimitReader(resp.Body, perStream))
	})
}

func (m *HTTPMeasurer) Upload(ctx context.Context, srv config.SpeedTestServer) (float64, error) {
	perStream := m.uploadBytes / int64(m.threads)
	payload := make([]byte, perStream)

	return m.parallel(ctx, func(ctx context.Context) (int64, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.UploadURL, bytes.NewReader(payload))
		if err != nil {
			return 0, err
		}
		req.Header.Set("Content-Type", "application/octet-stream")

		resp, err := m.client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return 0, fmt.Errorf("upload: unexpected status %d", resp.StatusCode)
		}
		return perStream, nil
	})
}

// parallel runs one transfer per thread and converts the total to Mbps.
func (m *HTTPMeasurer) parallel(ctx context.Context, transfer func(context.Context) (int64, error)) (float64, error) {
	counts := make([]int64, m.threads)

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()
	for i := range m.threads {
		g.Go(func() error {
			n, err := transfer(gctx)
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	elapsed := time.Since(start).Seconds()

	var total int64
	for _, n := range counts {
		total += n
	}
	return toMbps(total, elapsed), nil
}

func toMbps(n int64, seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return float64(n) * 8 / seconds / 1e6
}

func withBytes(rawURL string, n int64) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("bytes", strconv.FormatInt(n, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
