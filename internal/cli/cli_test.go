package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/haskel/vitals/internal/config"
	"github.com/haskel/vitals/internal/monitor"
	"github.com/haskel/vitals/internal/network"
	"github.com/haskel/vitals/internal/orchestrator"
	"github.com/haskel/vitals/internal/speedtest"
)

func TestGetServerURL(t *testing.T) {
	// Reset to defaults
	host = "localhost"
	port = 8080

	url := GetServerURL()
	expected := "http://localhost:8080"

	if url != expected {
		t.Errorf("expected %s, got %s", expected, url)
	}
}

func TestGetServerURL_CustomHostPort(t *testing.T) {
	host = "192.168.1.100"
	port = 9000

	url := GetServerURL()
	expected := "http://192.168.1.100:9000"

	if url != expected {
		t.Errorf("expected %s, got %s", expected, url)
	}

	// Reset
	host = "localhost"
	port = 8080
}

func TestIsJSON(t *testing.T) {
	jsonOut = false
	if IsJSON() {
		t.Error("expected false")
	}

	jsonOut = true
	if !IsJSON() {
		t.Error("expected true")
	}

	// Reset
	jsonOut = false
}

func TestIsVerbose(t *testing.T) {
	verbose = false
	if IsVerbose() {
		t.Error("expected false")
	}

	verbose = true
	if !IsVerbose() {
		t.Error("expected true")
	}

	// Reset
	verbose = false
}

func TestGetAuth(t *testing.T) {
	user = ""
	password = ""

	u, p := GetAuth()
	if u != "" || p != "" {
		t.Errorf("expected empty auth, got %s:%s", u, p)
	}

	user = "admin"
	password = "secret"

	u, p = GetAuth()
	if u != "admin" || p != "secret" {
		t.Errorf("expected admin:secret, got %s:%s", u, p)
	}

	// Reset
	user = ""
	password = ""
}

func TestGetConfigFile(t *testing.T) {
	cfgFile = ""
	if GetConfigFile() != "" {
		t.Error("expected empty config file")
	}

	cfgFile = "/path/to/config.yaml"
	if GetConfigFile() != "/path/to/config.yaml" {
		t.Errorf("expected /path/to/config.yaml, got %s", GetConfigFile())
	}

	// Reset
	cfgFile = ""
}

func TestSetVersion(t *testing.T) {
	SetVersion("1.2.3")

	if Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %s", Version)
	}

	// Reset
	Version = "0.1.0"
}

func TestNewClient(t *testing.T) {
	host = "localhost"
	port = 8080

	client := NewClient()

	if client == nil {
		t.Fatal("expected client, got nil")
	}

	if client.BaseURL() != "http://localhost:8080" {
		t.Errorf("expected http://localhost:8080, got %s", client.BaseURL())
	}
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.pid")
	if err := os.WriteFile(valid, []byte("4242\n"), 0644); err != nil {
		t.Fatal(err)
	}
	pid, err := readPID(valid)
	if err != nil || pid != 4242 {
		t.Errorf("expected 4242, got %d (%v)", pid, err)
	}

	garbage := filepath.Join(dir, "garbage.pid")
	if err := os.WriteFile(garbage, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := readPID(garbage); err == nil || !strings.Contains(err.Error(), "invalid PID") {
		t.Errorf("expected invalid PID error, got %v", err)
	}

	if _, err := readPID(filepath.Join(dir, "missing.pid")); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestPIDFilePath_FlagWins(t *testing.T) {
	pidFile = "/tmp/custom.pid"
	defer func() { pidFile = "" }()

	path, err := pidFilePath()
	if err != nil || path != "/tmp/custom.pid" {
		t.Errorf("expected flag path, got %q (%v)", path, err)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil || cfg.Server.Port != 8080 {
		t.Fatalf("expected defaults, got %+v (%v)", cfg, err)
	}

	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for an explicit missing file")
	}
}

func TestProgressLine(t *testing.T) {
	s := orchestrator.Session{
		IsRunning:         true,
		ProgressPercent:   49.6,
		CurrentPhaseLabel: "Testing download speed...",
	}

	got := progressLine(s, 10)
	want := "[####......]  50% Testing download speed..."
	if got != want {
		t.Errorf("progressLine = %q, want %q", got, want)
	}

	s.ProgressPercent = 100
	if got := progressLine(s, 4); !strings.HasPrefix(got, "[####] 100%") {
		t.Errorf("unexpected full bar %q", got)
	}
}

func TestPrintSession(t *testing.T) {
	var buf bytes.Buffer
	printSession(&buf, orchestrator.Session{
		State: orchestrator.StateCompleted,
		Result: &speedtest.Result{
			Download: 85, Upload: 16, Ping: 14,
			Server: &speedtest.ServerInfo{Name: "Local", Location: "Test City", Distance: "12.3 km"},
		},
	})
	out := buf.String()
	for _, want := range []string{"85.0 Mbps", "16.0 Mbps", "14 ms", "Local (Test City), 12.3 km"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	buf.Reset()
	printSession(&buf, orchestrator.Session{State: orchestrator.StateFailed, LastError: "Speed test failed: boom"})
	if !strings.Contains(buf.String(), "Speed test failed: boom") {
		t.Errorf("expected error text, got %q", buf.String())
	}
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, &monitor.SystemState{
		Host:   monitor.HostState{Hostname: "box"},
		CPU:    monitor.CPUState{UsagePercent: 12.5, Physical: 4, Logical: 8},
		Memory: monitor.MemoryState{UsagePercent: 50, UsedBytes: 2 * gib, TotalBytes: 4 * gib},
		Storage: monitor.StorageState{
			"/":     {FreeBytes: gib, TotalBytes: 10 * gib},
			"/data": {FreeBytes: 2 * gib, TotalBytes: 20 * gib},
		},
		Processes: monitor.ProcessState{Count: 120, Running: 3, Threads: 800},
	})
	out := buf.String()
	for _, want := range []string{"Host: box", "Usage: 12.5%", "2.0 / 4.0 GB", "/: 1.0 GB free", "Total: 120 (3 running)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Index(out, "/: ") > strings.Index(out, "/data: ") {
		t.Error("expected storage paths in sorted order")
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, nil)
	if !strings.Contains(buf.String(), "No history") {
		t.Errorf("unexpected empty output %q", buf.String())
	}

	buf.Reset()
	printHistory(&buf, []network.BandwidthPoint{
		{Timestamp: time.Now(), Download: 10, Upload: 2},
		{Timestamp: time.Now(), Download: 85, Upload: 16, IsSpeedTest: true},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasSuffix(lines[2], "speed test") {
		t.Errorf("unexpected history output:\n%s", buf.String())
	}
}

func TestPrintNetwork_NoData(t *testing.T) {
	var buf bytes.Buffer
	printNetwork(&buf, networkReport{})
	if !strings.Contains(buf.String(), "No network data") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestRedact(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.Enabled = true
	cfg.Auth.User = "admin"
	cfg.Auth.Password = "secret"
	cfg.Debug.Auth.Token = "tok"

	out := redact(*cfg)
	if out.Auth.Password != redacted || out.Debug.Auth.Token != redacted {
		t.Errorf("credentials not redacted: %+v %+v", out.Auth, out.Debug.Auth)
	}
	if out.Auth.User != "admin" {
		t.Errorf("user should be kept, got %q", out.Auth.User)
	}
	if cfg.Auth.Password != "secret" {
		t.Error("redact modified the original config")
	}

	if empty := redact(*config.Default()); empty.Auth.Password != "" {
		t.Errorf("empty password should stay empty, got %q", empty.Auth.Password)
	}
}

func TestPrintConfig_YAML(t *testing.T) {
	jsonOut = false
	var buf bytes.Buffer
	if err := printConfig(&buf, *config.Default()); err != nil {
		t.Fatalf("printConfig: %v", err)
	}
	if !strings.Contains(buf.String(), "strategy: poll") {
		t.Errorf("expected orchestrator strategy in output:\n%s", buf.String())
	}
}

func TestFormatTimeLeft(t *testing.T) {
	tests := []struct {
		sec  int64
		want string
	}{
		{-1, "unknown"},
		{0, "0h 00m"},
		{3*3600 + 12*60 + 30, "3h 12m"},
	}
	for _, tt := range tests {
		if got := formatTimeLeft(tt.sec); got != tt.want {
			t.Errorf("formatTimeLeft(%d) = %q, want %q", tt.sec, got, tt.want)
		}
	}
}

func TestPrintBatteryReport(t *testing.T) {
	var buf bytes.Buffer
	printBatteryReport(&buf, batteryReport{
		Battery: &monitor.BatteryState{Percent: 64, Status: "Discharging", TimeLeftSec: 7200, PowerWatts: 9.5, HealthPercent: 91.2, CycleCount: 300},
		Power:   monitor.PowerState{CPUPercent: 20, OnBattery: true},
	})
	out := buf.String()
	for _, want := range []string{"Level: 64% (Discharging)", "Time left: 2h 00m", "Power: 9.5 W", "Health: 91.2% (300 cycles)", "Source: battery"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	buf.Reset()
	printBatteryReport(&buf, batteryReport{})
	if out := buf.String(); !strings.Contains(out, monitor.MessageNoBattery) || !strings.Contains(out, "Source: AC power") {
		t.Errorf("unexpected output without battery:\n%s", out)
	}
}
