package config

import (
	"os"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
		{"uses default for zero", "TEST_INT_4", "0", 10, 10},
		{"uses default for negative", "TEST_INT_5", "-3", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestMustGetEnv_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for missing required env var")
		}
	}()

	os.Unsetenv("NONEXISTENT_REQUIRED_VAR")
	mustGetEnv("NONEXISTENT_REQUIRED_VAR")
}

func TestMustGetEnv_ReturnsValue(t *testing.T) {
	os.Setenv("TEST_REQUIRED", "value123")
	defer os.Unsetenv("TEST_REQUIRED")

	result := mustGetEnv("TEST_REQUIRED")
	if result != "value123" {
		t.Errorf("Expected 'value123', got %q", result)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("SESSION_TTL_HOURS", "")
	t.Setenv("DEFAULT_MODEL", "")
	t.Setenv("MAX_UPLOAD_MB", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("ENV", "")

	cfg := Load()

	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("Expected 24h session TTL, got %s", cfg.SessionTTL)
	}
	if cfg.DefaultModel != "gpt-3.5-turbo" {
		t.Errorf("Expected default model gpt-3.5-turbo, got %q", cfg.DefaultModel)
	}
	if cfg.MaxUploadBytes() != 20*1024*1024 {
		t.Errorf("Expected 20MB upload limit, got %d", cfg.MaxUploadBytes())
	}
	if cfg.RedisURL != "" {
		t.Errorf("Expected no Redis URL by default, got %q", cfg.RedisURL)
	}
	if cfg.IsProduction() {
		t.Error("Expected development environment by default")
	}
}
