package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

func (c *Config) Validate() error {
	var errs []error

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}

	if err := c.Monitoring.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("monitoring: %w", err))
	}

	if err := c.Network.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("network: %w", err))
	}

	if err := c.SpeedTest.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("speedtest: %w", err))
	}

	if err := c.Orchestrator.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("orchestrator: %w", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if err := c.Auth.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("auth: %w", err))
	}

	if err := c.validateDebugSecurity(); err != nil {
		errs = append(errs, fmt.Errorf("debug: %w", err))
	}

	return errors.Join(errs...)
}

func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.RateLimit.Enabled {
		if s.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limit.requests_per_second must be positive")
		}
		if s.RateLimit.Burst < 1 {
			return fmt.Errorf("rate_limit.burst must be at least 1")
		}
	}
	return nil
}

func (m *MonitoringConfig) Validate() error {
	var errs []error
	if m.IntervalMS < 100 {
		errs = append(errs, fmt.Errorf("interval_ms must be at least 100, got %d", m.IntervalMS))
	}
	if m.TopProcesses < 0 || m.TopProcesses > 50 {
		errs = append(errs, fmt.Errorf("top_processes must be between 0 and 50, got %d", m.TopProcesses))
	}
	return errors.Join(errs...)
}

func (n *NetworkConfig) Validate() error {
	var errs []error

	if n.IntervalSec < 1 {
		errs = append(errs, fmt.Errorf("interval_sec must be at least 1"))
	}
	if n.HistorySize < 1 {
		errs = append(errs, fmt.Errorf("history_size must be at least 1"))
	}
	if n.ProbeCount < 1 {
		errs = append(errs, fmt.Errorf("probe_count must be at least 1"))
	}
	if n.ProbeTimeoutMS < 10 {
		errs = append(errs, fmt.Errorf("probe_timeout_ms must be at least 10"))
	}
	if n.ScanHosts < 0 || n.ScanHosts > 254 {
		errs = append(errs, fmt.Errorf("scan_hosts must be between 0 and 254"))
	}
	for _, target := range n.ProbeTargets {
		if _, _, err := net.SplitHostPort(target); err != nil {
			errs = append(errs, fmt.Errorf("invalid probe target %q: %w", target, err))
		}
	}

	return errors.Join(errs...)
}

func (s *SpeedTestConfig) Validate() error {
	var errs []error

	if len(s.Servers) == 0 {
		errs = append(errs, fmt.Errorf("at least one server is required"))
	}
	for i, srv := range s.Servers {
		if _, err := url.ParseRequestURI(srv.DownloadURL); err != nil {
			errs = append(errs, fmt.Errorf("servers[%d].download_url: %w", i, err))
		}
		if _, err := url.ParseRequestURI(srv.UploadURL); err != nil {
			errs = append(errs, fmt.Errorf("servers[%d].upload_url: %w", i, err))
		}
	}
	if s.Threads < 1 {
		errs = append(errs, fmt.Errorf("threads must be at least 1"))
	}
	if s.DownloadBytes < 1 || s.UploadBytes < 1 {
		errs = append(errs, fmt.Errorf("download_bytes and upload_bytes must be positive"))
	}
	if s.TimeoutSec < 1 {
		errs = append(errs, fmt.Errorf("timeout_sec must be at least 1"))
	}
	if s.StaleAfterSec < 1 {
		errs = append(errs, fmt.Errorf("stale_after_sec must be at least 1"))
	}
	if s.DownloadOverhead <= 0 || s.DownloadOverhead > 1 {
		errs = append(errs, fmt.Errorf("download_overhead must be in (0, 1]"))
	}
	if s.UploadOverhead <= 0 || s.UploadOverhead > 1 {
		errs = append(errs, fmt.Errorf("upload_overhead must be in (0, 1]"))
	}
	if s.MinMbps < 0 || (s.MaxMbps > 0 && s.MaxMbps <= s.MinMbps) {
		errs = append(errs, fmt.Errorf("min_mbps must be non-negative and below max_mbps"))
	}

	return errors.Join(errs...)
}

func (o *OrchestratorConfig) Validate() error {
	var errs []error

	if o.Strategy != "poll" && o.Strategy != "direct" {
		errs = append(errs, fmt.Errorf("invalid strategy: %s (valid: poll, direct)", o.Strategy))
	}
	if o.PollIntervalMS < 1 {
		errs = append(errs, fmt.Errorf("poll_interval_ms must be positive"))
	}
	if o.FrameIntervalMS < 1 {
		errs = append(errs, fmt.Errorf("frame_interval_ms must be positive"))
	}
	if o.FinalizeMS < 0 {
		errs = append(errs, fmt.Errorf("finalize_ms must be non-negative"))
	}
	if o.NotificationSec < 0 {
		errs = append(errs, fmt.Errorf("notification_sec must be non-negative"))
	}
	if o.TelemetryIntervalSec < 1 {
		errs = append(errs, fmt.Errorf("telemetry_interval_sec must be at least 1"))
	}
	if len(o.Phases) == 0 {
		errs = append(errs, fmt.Errorf("at least one phase is required"))
	}

	prev := 0.0
	for i, p := range o.Phases {
		if p.Target <= prev || p.Target >= 100 {
			errs = append(errs, fmt.Errorf("phases[%d].target must increase and stay below 100, got %.1f", i, p.Target))
		}
		if p.DurationMS < 1 {
			errs = append(errs, fmt.Errorf("phases[%d].duration_ms must be positive", i))
		}
		prev = p.Target
	}

	return errors.Join(errs...)
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", l.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[l.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text)", l.Format)
	}

	return nil
}

func (a *AuthConfig) Validate() error {
	if a.Enabled {
		if a.User == "" {
			return fmt.Errorf("user cannot be empty when auth is enabled")
		}
		if a.Password == "" {
			return fmt.Errorf("password cannot be empty when auth is enabled")
		}
	}
	return nil
}

// validateDebugSecurity rejects debug or profiling endpoints that would be
// reachable without any credentials.
func (c *Config) validateDebugSecurity() error {
	if !c.Debug.Enabled && !c.Server.Profiling.Enabled {
		return nil
	}
	if c.Debug.Auth.Token != "" || c.Auth.Enabled {
		return nil
	}
	return fmt.Errorf("debug or profiling endpoints require auth.enabled or debug.auth.token")
}
