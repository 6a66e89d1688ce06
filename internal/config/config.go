// Package config loads the storefront client configuration.
//
// Configuration comes from a YAML file (missing file means defaults), then
// environment overrides, then validation against the embedded CUE schema.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvAPIURL   = "STOREFRONT_API_URL"
	EnvDB       = "STOREFRONT_DB"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"
)

// Fallbacks for unparseable durations.
const (
	defaultTimeout         = 10 * time.Second
	defaultFeedbackDisplay = 5 * time.Second
)

// Config holds all storefront client configuration.
type Config struct {
	API      APIConfig      `yaml:"api" json:"api"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Feedback FeedbackConfig `yaml:"feedback" json:"feedback"`
	Checkout CheckoutConfig `yaml:"checkout" json:"checkout"`
	Engine   EngineConfig   `yaml:"engine" json:"engine"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// APIConfig locates the backend.
type APIConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	Timeout string `yaml:"timeout" json:"timeout"`
}

// StorageConfig configures the Local Store.
type StorageConfig struct {
	Path    string `yaml:"path" json:"path"`
	CartKey string `yaml:"cart_key" json:"cart_key"`
}

// FeedbackConfig controls how long sign-in feedback stays visible.
type FeedbackConfig struct {
	DisplayDuration string `yaml:"display_duration" json:"display_duration"`
}

// CheckoutConfig configures order submission.
type CheckoutConfig struct {
	Currency   string `yaml:"currency" json:"currency"`
	AllowGuest bool   `yaml:"allow_guest" json:"allow_guest"`
}

// EngineConfig bounds the event loop.
type EngineConfig struct {
	MaxSteps int `yaml:"max_steps" json:"max_steps"`
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // text, json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: "10s",
		},
		Storage: StorageConfig{
			Path:    "storefront.db",
			CartKey: "target_cart_v1",
		},
		Feedback: FeedbackConfig{
			DisplayDuration: "5s",
		},
		Checkout: CheckoutConfig{
			Currency: "USD",
		},
		Engine: EngineConfig{
			MaxSteps: 10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		slog.Debug("config file not found, using defaults", "path", path)
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if url := os.Getenv(EnvAPIURL); url != "" {
		c.API.BaseURL = url
	}
	if path := os.Getenv(EnvDB); path != "" {
		c.Storage.Path = path
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
}

// Validate checks the configuration against the embedded schema.
func (c *Config) Validate() error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return validateSchema(data)
}

// GetTimeout returns the API timeout.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return defaultTimeout
	}
	return d
}

// GetFeedbackDuration returns how long feedback messages are shown.
func (c *Config) GetFeedbackDuration() time.Duration {
	d, err := time.ParseDuration(c.Feedback.DisplayDuration)
	if err != nil {
		return defaultFeedbackDisplay
	}
	return d
}

// GetLogLevel returns the slog level; unknown names mean info.
func (c *Config) GetLogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
