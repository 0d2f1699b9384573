package config

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "127.0.0.1",
			Port:    8080,
			PIDFile: "/tmp/vitals.pid",
			RateLimit: RateLimitConfig{
				Enabled:           false,
				PerIP:             false,
				RequestsPerSecond: 100,
				Burst:             200,
			},
		},
		Auth: AuthConfig{
			Enabled:  false,
			User:     "",
			Password: "",
		},
		Monitoring: MonitoringConfig{
			IntervalMS:   1000,
			Paths:        []string{"/"},
			TopProcesses: 5,
		},
		Network: NetworkConfig{
			IntervalSec:    30,
			HistorySize:    60,
			ProbeTargets:   []string{"8.8.8.8:53", "1.1.1.1:53", "208.67.222.222:53"},
			ProbeCount:     4,
			ProbeTimeoutMS: 1000,
			ScanHosts:      9,
		},
		SpeedTest: SpeedTestConfig{
			Servers: []SpeedTestServer{
				{
					Name:        "Cloudflare",
					Location:    "Anycast",
					Sponsor:     "Cloudflare, Inc.",
					DownloadURL: "https://speed.cloudflare.com/__down",
					UploadURL:   "https://speed.cloudflare.com/__up",
				},
			},
			Threads:          4,
			DownloadBytes:    25 << 20,
			UploadBytes:      10 << 20,
			TimeoutSec:       15,
			StaleAfterSec:    120,
			DownloadOverhead: 0.85,
			UploadOverhead:   0.80,
			MinMbps:          1,
			MaxMbps:          10000,
		},
		Orchestrator: OrchestratorConfig{
			Strategy:             "poll",
			PollIntervalMS:       1000,
			FrameIntervalMS:      16,
			FinalizeMS:           500,
			NotificationSec:      7,
			MaxStatusFailures:    5,
			TelemetryIntervalSec: 2,
			Phases: []PhaseConfig{
				{Label: "Finding best server...", Target: 20, DurationMS: 5000},
				{Label: "Testing download speed...", Target: 50, DurationMS: 8000},
				{Label: "Testing upload speed...", Target: 80, DurationMS: 8000},
				{Label: "Finalizing results...", Target: 99, DurationMS: 2000},
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
