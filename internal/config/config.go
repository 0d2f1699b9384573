package config

import "time"

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Auth         AuthConfig         `yaml:"auth"`
	Monitoring   MonitoringConfig   `yaml:"monitoring"`
	Network      NetworkConfig      `yaml:"network"`
	SpeedTest    SpeedTestConfig    `yaml:"speedtest"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Logging      LoggingConfig      `yaml:"logging"`
	Debug        DebugConfig        `yaml:"debug"`
}

// DebugConfig holds debug mode configuration.
type DebugConfig struct {
	// Enabled exposes /debug/status.
	Enabled bool `yaml:"enabled"`
	// Auth holds debug-specific authentication.
	// If set, debug endpoints require this token.
	// If not set but main auth is enabled, main auth is used.
	Auth DebugAuthConfig `yaml:"auth"`
}

// DebugAuthConfig holds debug endpoint authentication.
type DebugAuthConfig struct {
	// Token for Bearer authentication on debug endpoints.
	// If empty, falls back to main auth.
	Token string `yaml:"token"`
}

type ServerConfig struct {
	Host      string          `yaml:"host"`
	Port      int             `yaml:"port"`
	PIDFile   string          `yaml:"pid_file"`
	Profiling ProfilingConfig `yaml:"profiling"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	// CORSOrigins lists browser origins allowed to call the API; "*" allows any.
	CORSOrigins []string `yaml:"cors_origins"`
}

type ProfilingConfig struct {
	Enabled bool `yaml:"enabled"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	PerIP             bool    `yaml:"per_ip"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type AuthConfig struct {
	Enabled  bool   `yaml:"enabled"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type MonitoringConfig struct {
	IntervalMS int      `yaml:"interval_ms"`
	Paths      []string `yaml:"paths"`

	// TopProcesses is how many processes, by resident memory, /status lists.
	TopProcesses int `yaml:"top_processes"`
}

// NetworkConfig controls the background network collector.
type NetworkConfig struct {
	IntervalSec    int      `yaml:"interval_sec"`
	HistorySize    int      `yaml:"history_size"`
	ProbeTargets   []string `yaml:"probe_targets"`
	ProbeCount     int      `yaml:"probe_count"`
	ProbeTimeoutMS int      `yaml:"probe_timeout_ms"`
	// ScanHosts is how many addresses from .1 of the local /24 are checked
	// for neighbours. 0 lists only this device.
	ScanHosts int `yaml:"scan_hosts"`
}

// SpeedTestConfig controls the backend speed test runner.
type SpeedTestConfig struct {
	Servers          []SpeedTestServer `yaml:"servers"`
	Threads          int               `yaml:"threads"`
	DownloadBytes    int64             `yaml:"download_bytes"`
	UploadBytes      int64             `yaml:"upload_bytes"`
	TimeoutSec       int               `yaml:"timeout_sec"`
	StaleAfterSec    int               `yaml:"stale_after_sec"`
	DownloadOverhead float64           `yaml:"download_overhead"`
	UploadOverhead   float64           `yaml:"upload_overhead"`
	MinMbps          float64           `yaml:"min_mbps"`
	MaxMbps          float64           `yaml:"max_mbps"`
}

// SpeedTestServer is one candidate endpoint pair for the runner.
type SpeedTestServer struct {
	Name        string  `yaml:"name"`
	Location    string  `yaml:"location"`
	Sponsor     string  `yaml:"sponsor"`
	DistanceKM  float64 `yaml:"distance_km"`
	DownloadURL string  `yaml:"download_url"`
	UploadURL   string  `yaml:"upload_url"`
}

// OrchestratorConfig controls the client-side speed test orchestration.
type OrchestratorConfig struct {
	// Strategy is "poll" (start, poll status, fetch result) or "direct"
	// (single blocking request).
	Strategy             string        `yaml:"strategy"`
	PollIntervalMS       int           `yaml:"poll_interval_ms"`
	FrameIntervalMS      int           `yaml:"frame_interval_ms"`
	FinalizeMS           int           `yaml:"finalize_ms"`
	NotificationSec      int           `yaml:"notification_sec"`
	MaxStatusFailures    int           `yaml:"max_status_failures"`
	TelemetryIntervalSec int           `yaml:"telemetry_interval_sec"`
	Phases               []PhaseConfig `yaml:"phases"`
}

type PhaseConfig struct {
	Label      string  `yaml:"label"`
	Target     float64 `yaml:"target"`
	DurationMS int     `yaml:"duration_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) MonitoringInterval() time.Duration {
	return time.Duration(c.Monitoring.IntervalMS) * time.Millisecond
}

func (c *Config) NetworkInterval() time.Duration {
	return time.Duration(c.Network.IntervalSec) * time.Second
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Network.ProbeTimeoutMS) * time.Millisecond
}

func (c *Config) SpeedTestTimeout() time.Duration {
	return time.Duration(c.SpeedTest.TimeoutSec) * time.Second
}

func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.SpeedTest.StaleAfterSec) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Orchestrator.PollIntervalMS) * time.Millisecond
}

func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.Orchestrator.FrameIntervalMS) * time.Millisecond
}

func (c *Config) FinalizeDuration() time.Duration {
	return time.Duration(c.Orchestrator.FinalizeMS) * time.Millisecond
}

func (c *Config) NotificationWindow() time.Duration {
	return time.Duration(c.Orchestrator.NotificationSec) * time.Second
}

func (c *Config) TelemetryInterval() time.Duration {
	return time.Duration(c.Orchestrator.TelemetryIntervalSec) * time.Second
}
