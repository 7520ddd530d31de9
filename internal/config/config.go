package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL         = "http://localhost:8080"
	DefaultListenAddr     = "127.0.0.1:8090"
	DefaultPollInterval   = 10 * time.Second
	DefaultRequestTimeout = 15 * time.Second
	DefaultConcurrency    = 4
	DefaultPlaceholderURL = "/static/placeholder.png"
	DefaultGeminiModel    = "gemini-2.5-flash"
)

// Config holds everything the dashboard needs at startup. Secrets come only
// from the environment and are never written back to the YAML file.
type Config struct {
	APIURL         string        `yaml:"api_url"`
	ListenAddr     string        `yaml:"listen_addr"`
	SessionFile    string        `yaml:"session_file"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Polling
	PollInterval time.Duration            `yaml:"poll_interval"`
	Intervals    map[string]time.Duration `yaml:"intervals"`

	// Assets
	AssetConcurrency int    `yaml:"asset_concurrency"`
	PlaceholderURL   string `yaml:"placeholder_url"`

	// Chat
	GeminiModel string `yaml:"gemini_model"`

	DatabaseURL  string `yaml:"-"`
	GeminiAPIKey string `yaml:"-"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		APIURL:           DefaultAPIURL,
		ListenAddr:       DefaultListenAddr,
		SessionFile:      defaultSessionFile(),
		RequestTimeout:   DefaultRequestTimeout,
		PollInterval:     DefaultPollInterval,
		Intervals:        make(map[string]time.Duration),
		AssetConcurrency: DefaultConcurrency,
		PlaceholderURL:   DefaultPlaceholderURL,
		GeminiModel:      DefaultGeminiModel,
	}
}

// Setup loads .env (if present), the YAML file named by DASHBOARD_CONFIG
// (if any) and finally the environment overrides.
func Setup() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := DefaultConfig()
	if path := os.Getenv("DASHBOARD_CONFIG"); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads configuration from the specified file path. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.fillDefaults()
	return cfg, nil
}

// ApplyEnv overrides fields from DASHBOARD_* variables and reads secrets.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("DASHBOARD_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("DASHBOARD_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("DASHBOARD_SESSION_FILE"); v != "" {
		c.SessionFile = v
	}
	if v := os.Getenv("DASHBOARD_REQUEST_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("DASHBOARD_REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}
	c.DatabaseURL = os.Getenv("DATABASE_URL")
	c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	c.fillDefaults()
	return nil
}

// Interval returns the poll interval for a collection.
func (c *Config) Interval(collection string) time.Duration {
	if d, ok := c.Intervals[collection]; ok && d > 0 {
		return d
	}
	return c.PollInterval
}

// Save persists the configuration to the specified file path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) fillDefaults() {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.SessionFile == "" {
		c.SessionFile = defaultSessionFile()
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Intervals == nil {
		c.Intervals = make(map[string]time.Duration)
	}
	if c.AssetConcurrency <= 0 {
		c.AssetConcurrency = DefaultConcurrency
	}
	if c.PlaceholderURL == "" {
		c.PlaceholderURL = DefaultPlaceholderURL
	}
	if c.GeminiModel == "" {
		c.GeminiModel = DefaultGeminiModel
	}
}

// parseDuration accepts Go durations ("20s") and bare seconds ("20").
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "session.json"
	}
	return filepath.Join(dir, "talent-dashboard", "session.json")
}
