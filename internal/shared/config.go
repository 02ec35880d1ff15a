package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables consulted for the Gemini API key, in order.
var apiKeyEnv = []string{"API_KEY", "GEMINI_API_KEY"}

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Capture     CaptureConfig     `toml:"capture"`
	Overlay     OverlayConfig     `toml:"overlay"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
	Movements   []MovementConfig  `toml:"movements"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Gemini GeminiConfig `toml:"gemini"`
}

// GeminiConfig contains the hosted model settings.
type GeminiConfig struct {
	APIKey     string `toml:"api_key"`
	Model      string `toml:"model"`
	BaseURL    string `toml:"base_url"`
	APIVersion string `toml:"api_version"`
	Timeout    string `toml:"timeout"`
}

// CaptureConfig controls the camera source and the analysis cadence.
type CaptureConfig struct {
	Source      string `toml:"source"`
	FFmpeg      string `toml:"ffmpeg"`
	InputFormat string `toml:"input_format"`
	Device      string `toml:"device"`
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
	FPS         int    `toml:"fps"`
	Interval    string `toml:"interval"`
	JPEGQuality int    `toml:"jpeg_quality"`
	OpenTimeout string `toml:"open_timeout"`
	Dir         string `toml:"dir"`
}

// OverlayConfig sets the drawing surface size of the skeleton overlay.
type OverlayConfig struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// MovementConfig replaces an entry of the built-in movement catalog.
type MovementConfig struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Image       string `toml:"image"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks durations and sizes so bad values fail at startup instead of mid-session.
func (c *Config) Validate() error {
	for name, value := range map[string]string{
		"credentials.gemini.timeout": c.Credentials.Gemini.Timeout,
		"capture.interval":           c.Capture.Interval,
		"capture.open_timeout":       c.Capture.OpenTimeout,
	} {
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: %s must be a positive duration, got %q", ErrInvalidConfig, name, value)
		}
	}

	switch c.Capture.Source {
	case "camera", "dir":
	default:
		return fmt.Errorf("%w: capture.source must be camera or dir, got %q", ErrInvalidConfig, c.Capture.Source)
	}

	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		return fmt.Errorf("%w: capture.jpeg_quality must be within 1..100", ErrInvalidConfig)
	}
	if c.Overlay.Width <= 0 || c.Overlay.Height <= 0 {
		return fmt.Errorf("%w: overlay size must be positive", ErrInvalidConfig)
	}

	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// APIKey resolves the Gemini API key from the environment, falling back to the config file.
//
// A missing key is a fatal configuration error for every command that talks to the model.
func (c *Config) APIKey() (string, error) {
	for _, name := range apiKeyEnv {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, nil
		}
	}
	if v := strings.TrimSpace(c.Credentials.Gemini.APIKey); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: set the API_KEY environment variable", ErrMissingCredentials)
}

// TimeoutDuration is the per-request deadline for a model call.
func (g GeminiConfig) TimeoutDuration() time.Duration {
	return mustDuration(g.Timeout, 30*time.Second)
}

// IntervalDuration is the period of the analysis ticker.
func (c CaptureConfig) IntervalDuration() time.Duration {
	return mustDuration(c.Interval, 2500*time.Millisecond)
}

// OpenTimeoutDuration bounds how long camera acquisition may take.
func (c CaptureConfig) OpenTimeoutDuration() time.Duration {
	return mustDuration(c.OpenTimeout, 10*time.Second)
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func mustDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
