// Package config loads the client configuration from a yaml file, falling
// back to sensible defaults when the file is absent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API origin, e.g. "https://api.bizdir.example".
	BaseURL string `yaml:"base_url"`

	// Timeout bounds every single HTTP request.
	Timeout time.Duration `yaml:"timeout"`

	// StateDir is where persisted blobs live. Empty disables persistence.
	StateDir string `yaml:"state_dir"`

	// Log configures the structured logger.
	Log LogConfig `yaml:"log"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the standard configuration.
func Default() *Config {
	stateDir := ""
	if home, err := os.UserHomeDir(); err == nil {
		stateDir = filepath.Join(home, ".bizdir")
	}
	return &Config{
		BaseURL:  "http://localhost:5000/api",
		Timeout:  30 * time.Second,
		StateDir: stateDir,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the configuration at path, overlaying it on the defaults.
// A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("config %s: base_url cannot be empty", path)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = Default().Timeout
	}
	return cfg, nil
}
