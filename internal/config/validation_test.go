package config

import (
	"testing"
)

func TestValidateDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestValidateServerPort(t *testing.T) {
	tests := []struct {
		port    int
		wantErr bool
	}{
		{0, true},
		{-1, true},
		{65536, true},
		{1, false},
		{8080, false},
		{65535, false},
	}

	for _, tt := range tests {
		cfg := Default()
		cfg.Server.Port = tt.port
		err := cfg.Server.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("port %d: wantErr=%v, got %v", tt.port, tt.wantErr, err)
		}
	}
}

func TestValidateRateLimit(t *testing.T) {
	cfg := Default()
	cfg.Server.RateLimit.Enabled = true
	cfg.Server.RateLimit.Burst = 0

	if err := cfg.Server.Validate(); err == nil {
		t.Error("expected error for zero burst")
	}
}

func TestValidateNetwork(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*NetworkConfig)
		wantErr bool
	}{
		{"valid defaults", func(n *NetworkConfig) {}, false},
		{"zero interval", func(n *NetworkConfig) { n.IntervalSec = 0 }, true},
		{"zero history", func(n *NetworkConfig) { n.HistorySize = 0 }, true},
		{"target without port", func(n *NetworkConfig) { n.ProbeTargets = []string{"8.8.8.8"} }, true},
		{"no targets", func(n *NetworkConfig) { n.ProbeTargets = nil }, false},
		{"scan disabled", func(n *NetworkConfig) { n.ScanHosts = 0 }, false},
		{"negative scan hosts", func(n *NetworkConfig) { n.ScanHosts = -1 }, true},
		{"scan beyond subnet", func(n *NetworkConfig) { n.ScanHosts = 255 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg.Network)
			err := cfg.Network.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateSpeedTest(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*SpeedTestConfig)
		wantErr bool
	}{
		{"valid defaults", func(s *SpeedTestConfig) {}, false},
		{"no servers", func(s *SpeedTestConfig) { s.Servers = nil }, true},
		{"bad url", func(s *SpeedTestConfig) { s.Servers[0].DownloadURL = "not a url" }, true},
		{"zero threads", func(s *SpeedTestConfig) { s.Threads = 0 }, true},
		{"overhead above one", func(s *SpeedTestConfig) { s.UploadOverhead = 1.5 }, true},
		{"max below min", func(s *SpeedTestConfig) { s.MinMbps = 10; s.MaxMbps = 5 }, true},
		{"unbounded max", func(s *SpeedTestConfig) { s.MaxMbps = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg.SpeedTest)
			err := cfg.SpeedTest.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateOrchestrator(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*OrchestratorConfig)
		wantErr bool
	}{
		{"valid defaults", func(o *OrchestratorConfig) {}, false},
		{"direct strategy", func(o *OrchestratorConfig) { o.Strategy = "direct" }, false},
		{"unknown strategy", func(o *OrchestratorConfig) { o.Strategy = "push" }, true},
		{"no phases", func(o *OrchestratorConfig) { o.Phases = nil }, true},
		{
			name: "decreasing targets",
			modify: func(o *OrchestratorConfig) {
				o.Phases = []PhaseConfig{{Label: "a", Target: 50, DurationMS: 10}, {Label: "b", Target: 40, DurationMS: 10}}
			},
			wantErr: true,
		},
		{
			name: "target reaches 100",
			modify: func(o *OrchestratorConfig) {
				o.Phases = []PhaseConfig{{Label: "a", Target: 100, DurationMS: 10}}
			},
			wantErr: true,
		},
		{
			name: "zero duration",
			modify: func(o *OrchestratorConfig) {
				o.Phases[1].DurationMS = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg.Orchestrator)
			err := cfg.Orchestrator.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateLogging(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		wantErr bool
	}{
		{"debug", "json", false},
		{"info", "json", false},
		{"warn", "json", false},
		{"error", "json", false},
		{"info", "text", false},
		{"invalid", "json", true},
		{"info", "invalid", true},
	}

	for _, tt := range tests {
		cfg := Default()
		cfg.Logging.Level = tt.level
		cfg.Logging.Format = tt.format
		err := cfg.Logging.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("level=%s format=%s: wantErr=%v, got %v", tt.level, tt.format, tt.wantErr, err)
		}
	}
}

func TestValidateAuth(t *testing.T) {
	tests := []struct {
		name     string
		enabled  bool
		user     string
		password string
		wantErr  bool
	}{
		{"disabled no creds", false, "", "", false},
		{"enabled with creds", true, "admin", "secret", false},
		{"enabled no user", true, "", "secret", true},
		{"enabled no password", true, "admin", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Auth.Enabled = tt.enabled
			cfg.Auth.User = tt.user
			cfg.Auth.Password = tt.password
			err := cfg.Auth.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateMonitoring(t *testing.T) {
	tests := []struct {
		interval int
		top      int
		wantErr  bool
	}{
		{1000, 5, false},
		{100, 0, false},
		{99, 5, true},
		{0, 5, true},
		{1000, -1, true},
		{1000, 51, true},
	}

	for _, tt := range tests {
		cfg := Default()
		cfg.Monitoring.IntervalMS = tt.interval
		cfg.Monitoring.TopProcesses = tt.top
		err := cfg.Monitoring.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("interval=%d top=%d: wantErr=%v, got %v", tt.interval, tt.top, tt.wantErr, err)
		}
	}
}

func TestValidateDebugSecurity(t *testing.T) {
	tests := []struct {
		name             string
		debugEnabled     bool
		profilingEnabled bool
		authEnabled      bool
		debugToken       string
		wantErr          bool
	}{
		{"no debug no profiling", false, false, false, "", false},
		{"debug enabled with main auth", true, false, true, "", false},
		{"debug enabled with debug token", true, false, false, "secret-token", false},
		{"debug enabled no auth", true, false, false, "", true},
		{"profiling enabled with main auth", false, true, true, "", false},
		{"profiling enabled no auth", false, true, false, "", true},
		{"both enabled with token", true, true, false, "token", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Debug.Enabled = tt.debugEnabled
			cfg.Server.Profiling.Enabled = tt.profilingEnabled
			cfg.Auth.Enabled = tt.authEnabled
			if tt.authEnabled {
				cfg.Auth.User = "admin"
				cfg.Auth.Password = "secret"
			}
			cfg.Debug.Auth.Token = tt.debugToken

			err := cfg.validateDebugSecurity()
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
