package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/haskel/vitals/internal/monitor"
	"github.com/haskel/vitals/internal/network"
	"github.com/haskel/vitals/internal/speedtest"
)

const DefaultTimeout = 10 * time.Second

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned status %d", e.Code)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Code, e.Body)
}

type Options struct {
	BaseURL  string
	User     string
	Password string
	// Timeout bounds every request except the blocking speed test.
	Timeout time.Duration
}

// Client talks to the vitals HTTP API.
type Client struct {
	baseURL  string
	http     *http.Client
	user     string
	password string
	timeout  time.Duration
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:  opts.BaseURL,
		http:     &http.Client{},
		user:     opts.User,
		password: opts.Password,
		timeout:  timeout,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request and returns the raw body and status code.
func (c *Client) Get(ctx context.Context, path string) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.request(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, 0, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.request(ctx, http.MethodPost, path, &buf)
}

func (c *Client) request(ctx context.Context, method, path string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" && c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return data, resp.StatusCode, nil
}

func decode(data []byte, status int, v any) error {
	if status < 200 || status >= 300 {
		return &StatusError{Code: status, Body: string(bytes.TrimSpace(data))}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	data, status, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	return decode(data, status, v)
}

// Health checks if the server is running.
func (c *Client) Health(ctx context.Context) error {
	_, status, err := c.Get(ctx, "/health")
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &StatusError{Code: status}
	}
	return nil
}

func (c *Client) SystemStatus(ctx context.Context) (*monitor.SystemState, error) {
	var state monitor.SystemState
	if err := c.getJSON(ctx, "/status", &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Battery returns the battery state, or nil on machines without one.
func (c *Client) Battery(ctx context.Context) (*monitor.BatteryState, error) {
	var report monitor.BatteryReport
	if err := c.getJSON(ctx, "/battery", &report); err != nil {
		return nil, err
	}
	if report.Error != "" {
		if report.Error == monitor.MessageNoBattery {
			return nil, nil
		}
		return nil, errors.New(report.Error)
	}
	return report.BatteryState, nil
}

func (c *Client) PowerConsumption(ctx context.Context) (monitor.PowerState, error) {
	var p monitor.PowerState
	err := c.getJSON(ctx, "/power_consumption", &p)
	return p, err
}

// All fetches the aggregate network snapshot.
func (c *Client) All(ctx context.Context) (network.Snapshot, error) {
	var snap network.Snapshot
	err := c.getJSON(ctx, "/all", &snap)
	return snap, err
}

func (c *Client) BandwidthHistory(ctx context.Context, timeframe string) ([]network.BandwidthPoint, error) {
	var points []network.BandwidthPoint
	err := c.getJSON(ctx, "/bandwidth-history?timeframe="+url.QueryEscape(timeframe), &points)
	return points, err
}

func (c *Client) ConnectionQuality(ctx context.Context) (network.Quality, error) {
	var q network.Quality
	err := c.getJSON(ctx, "/connection-quality", &q)
	return q, err
}

func (c *Client) ClearHistory(ctx context.Context) error {
	data, status, err := c.Post(ctx, "/history/clear", nil)
	if err != nil {
		return err
	}
	var resp map[string]any
	return decode(data, status, &resp)
}

// StartSpeedTest asks the backend to run a speed test in the background.
func (c *Client) StartSpeedTest(ctx context.Context) (speedtest.StartResponse, error) {
	var resp speedtest.StartResponse
	err := c.getJSON(ctx, "/speedtest", &resp)
	return resp, err
}

// RunSpeedTest performs a speed test and blocks until the backend
// returns the payload. Only ctx bounds the request.
func (c *Client) RunSpeedTest(ctx context.Context) (speedtest.Payload, error) {
	var p speedtest.Payload
	data, status, err := c.request(ctx, http.MethodGet, "/speedtest?wait=true", nil)
	if err != nil {
		return p, err
	}
	// 409 carries a payload whose error says a test is already running.
	if status == http.StatusConflict && json.Unmarshal(data, &p) == nil && p.Failed() {
		return p, nil
	}
	err = decode(data, status, &p)
	return p, err
}

func (c *Client) SpeedTestStatus(ctx context.Context) (speedtest.Status, error) {
	var st speedtest.Status
	err := c.getJSON(ctx, "/speedtest/status", &st)
	return st, err
}

func (c *Client) SpeedTestResult(ctx context.Context) (speedtest.Payload, error) {
	var p speedtest.Payload
	err := c.getJSON(ctx, "/speedtest/result", &p)
	return p, err
}
