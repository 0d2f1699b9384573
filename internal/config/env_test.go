package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"single", "value: ${TEST_VAR}", "value: test_value"},
		{"no vars", "value: plain_text", "value: plain_text"},
		{"unset kept", "value: ${VITALS_UNSET_VAR}", "value: ${VITALS_UNSET_VAR}"},
		{"fallback used", "value: ${VITALS_UNSET_VAR:-fallback}", "value: fallback"},
		{"fallback ignored", "value: ${TEST_VAR:-fallback}", "value: test_value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := substituteEnvVars([]byte(tt.input))
			if string(got) != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSubstituteEnvVarsEmptyWithFallback(t *testing.T) {
	t.Setenv("VITALS_EMPTY", "")

	got := substituteEnvVars([]byte("host: ${VITALS_EMPTY:-localhost}"))
	if string(got) != "host: localhost" {
		t.Errorf("expected fallback for empty value, got %q", got)
	}
}

func TestSubstituteEnvVarsMultiple(t *testing.T) {
	t.Setenv("VAR1", "value1")
	t.Setenv("VAR2", "value2")

	input := []byte("first: ${VAR1}\nsecond: ${VAR2}")
	expected := "first: value1\nsecond: value2"

	if got := substituteEnvVars(input); string(got) != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_HOST", "192.168.1.1")
	os.Unsetenv("VITALS_TEST_PORT")

	content := `
server:
  host: "${TEST_HOST}"
  port: ${VITALS_TEST_PORT:-9999}

logging:
  level: "info"
  format: "json"
`
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Host != "192.168.1.1" {
		t.Errorf("expected host 192.168.1.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}
}
