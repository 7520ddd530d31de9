package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("Expected APIURL %q, got %q", DefaultAPIURL, cfg.APIURL)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Errorf("Expected RequestTimeout 15s, got %v", cfg.RequestTimeout)
	}
	if cfg.AssetConcurrency != 4 {
		t.Errorf("Expected AssetConcurrency 4, got %d", cfg.AssetConcurrency)
	}
	if cfg.Intervals == nil {
		t.Error("Expected Intervals to be initialized")
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Errorf("Expected default PollInterval, got %v", cfg.PollInterval)
	}
}

func TestLoadFillsMissingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	content := `api_url: https://api.example.com
poll_interval: 30s
intervals:
  applicants: 5s
asset_concurrency: 0
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"api_url", cfg.APIURL, "https://api.example.com"},
		{"listen_addr", cfg.ListenAddr, DefaultListenAddr},
		{"asset_concurrency", cfg.AssetConcurrency, DefaultConcurrency},
		{"interval override", cfg.Interval("applicants"), 5 * time.Second},
		{"interval fallback", cfg.Interval("jobs"), 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("api_url: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DASHBOARD_API_URL", "http://backend:9000")
	t.Setenv("DASHBOARD_REQUEST_TIMEOUT", "20")
	t.Setenv("GEMINI_API_KEY", "secret")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.APIURL != "http://backend:9000" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.RequestTimeout != 20*time.Second {
		t.Errorf("RequestTimeout = %v, want 20s", cfg.RequestTimeout)
	}
	if cfg.GeminiAPIKey != "secret" {
		t.Errorf("GeminiAPIKey not read from env")
	}

	t.Setenv("DASHBOARD_REQUEST_TIMEOUT", "soon")
	if err := cfg.ApplyEnv(); err == nil {
		t.Error("Expected error for invalid timeout")
	}
}

func TestSaveOmitsSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "dashboard.yaml")
	cfg := DefaultConfig()
	cfg.GeminiAPIKey = "secret"
	cfg.Intervals["jobs"] = 3 * time.Second

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.GeminiAPIKey != "" {
		t.Error("Secret was persisted to the config file")
	}
	if loaded.Interval("jobs") != 3*time.Second {
		t.Errorf("Interval(jobs) = %v, want 3s", loaded.Interval("jobs"))
	}
}
