package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Backend   BackendConfig   `yaml:"backend" toml:"backend"`
	Sandbox   SandboxConfig   `yaml:"sandbox" toml:"sandbox"`
	Layout    LayoutConfig    `yaml:"layout" toml:"layout"`
	Workspace WorkspaceConfig `yaml:"workspace" toml:"workspace"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string   `envconfig:"PORT" yaml:"port" toml:"port"`
	Host            string   `envconfig:"HOST" yaml:"host" toml:"host"`
	AllowedOrigins  []string `envconfig:"CORS_ORIGINS" yaml:"allowed_origins" toml:"allowed_origins"`
	Gzip            bool     `envconfig:"GZIP_ENABLED" yaml:"gzip" toml:"gzip"`
	ShutdownTimeout Duration `envconfig:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// BackendConfig holds practice backend client configuration.
type BackendConfig struct {
	URL             string   `envconfig:"BACKEND_URL" yaml:"url" toml:"url"`
	Timeout         Duration `envconfig:"BACKEND_TIMEOUT" yaml:"timeout" toml:"timeout"`
	MaxRetries      int      `envconfig:"BACKEND_MAX_RETRIES" yaml:"max_retries" toml:"max_retries"`
	RequestsPerSec  float64  `envconfig:"BACKEND_RPS" yaml:"requests_per_second" toml:"requests_per_second"`
	BreakerFailures uint32   `envconfig:"BACKEND_BREAKER_FAILURES" yaml:"breaker_failures" toml:"breaker_failures"`
	BreakerTimeout  Duration `envconfig:"BACKEND_BREAKER_TIMEOUT" yaml:"breaker_timeout" toml:"breaker_timeout"`
}

// SandboxConfig holds interpreter configuration.
type SandboxConfig struct {
	ExecTimeout    Duration `envconfig:"SANDBOX_EXEC_TIMEOUT" yaml:"exec_timeout" toml:"exec_timeout"`
	LoadTimeout    Duration `envconfig:"SANDBOX_LOAD_TIMEOUT" yaml:"load_timeout" toml:"load_timeout"`
	MaxCallStack   int      `envconfig:"SANDBOX_MAX_CALL_STACK" yaml:"max_call_stack" toml:"max_call_stack"`
	PreludeURL     string   `envconfig:"SANDBOX_PRELUDE_URL" yaml:"prelude_url" toml:"prelude_url"`
	LibraryDir     string   `envconfig:"SANDBOX_LIBRARY_DIR" yaml:"library_dir" toml:"library_dir"`
	LibraryPattern string   `envconfig:"SANDBOX_LIBRARY_PATTERN" yaml:"library_pattern" toml:"library_pattern"`
	Preload        bool     `envconfig:"SANDBOX_PRELOAD" yaml:"preload" toml:"preload"`
}

// LayoutConfig holds pane layout defaults.
type LayoutConfig struct {
	DefaultSizes      []float64 `envconfig:"LAYOUT_DEFAULT_SIZES" yaml:"default_sizes" toml:"default_sizes"`
	TerminalSizes     []float64 `envconfig:"LAYOUT_TERMINAL_SIZES" yaml:"terminal_sizes" toml:"terminal_sizes"`
	MinPanePx         float64   `envconfig:"LAYOUT_MIN_PANE_PX" yaml:"min_pane_px" toml:"min_pane_px"`
	MinTerminalPx     float64   `envconfig:"LAYOUT_MIN_TERMINAL_PX" yaml:"min_terminal_px" toml:"min_terminal_px"`
	ContainerWidthPx  float64   `envconfig:"LAYOUT_CONTAINER_WIDTH" yaml:"container_width_px" toml:"container_width_px"`
	ContainerHeightPx float64   `envconfig:"LAYOUT_CONTAINER_HEIGHT" yaml:"container_height_px" toml:"container_height_px"`
}

// WorkspaceConfig holds workspace lifecycle configuration.
type WorkspaceConfig struct {
	IdleTimeout     Duration `envconfig:"WORKSPACE_IDLE_TIMEOUT" yaml:"idle_timeout" toml:"idle_timeout"`
	JanitorInterval Duration `envconfig:"WORKSPACE_JANITOR_INTERVAL" yaml:"janitor_interval" toml:"janitor_interval"`
	EventBuffer     int      `envconfig:"WORKSPACE_EVENT_BUFFER" yaml:"event_buffer" toml:"event_buffer"`
	RunSamples      int      `envconfig:"WORKSPACE_RUN_SAMPLES" yaml:"run_samples" toml:"run_samples"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" yaml:"development" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" yaml:"enabled" toml:"enabled"`
}

// Duration is a time.Duration written as "30s" in env vars and config files.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Load builds configuration from defaults, then the file named by
// CONFIG_FILE (YAML or TOML by extension), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("unsupported config file type %q", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Backend.URL == "" {
		return fmt.Errorf("backend url is required")
	}
	if n := len(c.Layout.DefaultSizes); n != 0 && n != 3 {
		return fmt.Errorf("layout default sizes need 3 values, got %d", n)
	}
	if n := len(c.Layout.TerminalSizes); n != 0 && n != 2 {
		return fmt.Errorf("layout terminal sizes need 2 values, got %d", n)
	}
	if c.Layout.MinPanePx <= 0 {
		return fmt.Errorf("layout min pane px must be positive")
	}
	if c.Layout.MinTerminalPx <= 0 {
		return fmt.Errorf("layout min terminal px must be positive")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit requests per second must be positive")
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			AllowedOrigins:  []string{"*"},
			Gzip:            true,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Backend: BackendConfig{
			URL:             "http://localhost:8000",
			Timeout:         Duration(30 * time.Second),
			MaxRetries:      3,
			BreakerFailures: 10,
			BreakerTimeout:  Duration(30 * time.Second),
		},
		Sandbox: SandboxConfig{
			ExecTimeout:    Duration(5 * time.Second),
			LoadTimeout:    Duration(30 * time.Second),
			MaxCallStack:   1024,
			LibraryPattern: "**/*.js",
		},
		Layout: LayoutConfig{
			DefaultSizes:      []float64{25, 50, 25},
			TerminalSizes:     []float64{80, 20},
			MinPanePx:         100,
			MinTerminalPx:     50,
			ContainerWidthPx:  1280,
			ContainerHeightPx: 720,
		},
		Workspace: WorkspaceConfig{
			IdleTimeout:     Duration(30 * time.Minute),
			JanitorInterval: Duration(time.Minute),
			EventBuffer:     32,
			RunSamples:      128,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
