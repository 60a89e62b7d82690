// Package config loads, defaults and validates the meetsense TOML
// configuration and watches it for detection rule changes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Poll cadence bounds
const (
	DefaultPollInterval   = 2 * time.Second
	DefaultCollectTimeout = 1500 * time.Millisecond
	MinPollInterval       = 100 * time.Millisecond
	MaxPollInterval       = 60 * time.Second
)

// Config mirrors the TOML sections
type Config struct {
	Detection DetectionConfig `toml:"detection" json:"detection"`
	Logging   LoggingConfig   `toml:"logging"   json:"logging"`
	Server    ServerConfig    `toml:"server"    json:"server"`
}

type LoggingConfig struct {
	DebugLogPath string `toml:"debug_log_path" json:"debug_log_path"`
}

type ServerConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Bind    string `toml:"bind"    json:"bind"`
}

// ConfigurationError reports a setting that cannot be used. It is surfaced
// once at startup and never from the poll loop.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Default returns the configuration used for anything the file omits
func Default() Config {
	return Config{
		Detection: DetectionConfig{
			PollIntervalMs:   int(DefaultPollInterval / time.Millisecond),
			CollectTimeoutMs: int(DefaultCollectTimeout / time.Millisecond),
		},
		Logging: LoggingConfig{
			DebugLogPath: filepath.Join(cacheDir(), "debug.ndjson"),
		},
		Server: ServerConfig{
			Enabled: true,
			Bind:    "127.0.0.1:8765",
		},
	}
}

// DefaultPath is where meetingd looks for its config when none is given
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "meetsense", "config.toml")
}

func cacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".cache")
	}
	return filepath.Join(dir, "meetsense")
}

// Load reads the TOML file at path over Default and validates the result.
// A missing file wraps os.ErrNotExist.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(b)
}

// Parse decodes TOML data over Default and validates the result
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Detection.Validate(); err != nil {
		return err
	}
	if c.Server.Enabled && c.Server.Bind == "" {
		return &ConfigurationError{Field: "server.bind", Reason: "must not be empty when the server is enabled"}
	}
	return nil
}
