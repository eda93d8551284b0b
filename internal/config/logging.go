package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

const (
	EnvLogLevel  = "CONCORD_LOG_LEVEL"
	EnvLogFormat = "CONCORD_LOG_FORMAT"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// LoggingConfig selects the slog handler and minimum level.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *LoggingConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *LoggingConfig) Merge(overlay *LoggingConfig) {
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
}

func (c *LoggingConfig) loadDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
}

func (c *LoggingConfig) loadEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Format = v
	}
	c.Level = strings.ToLower(c.Level)
	c.Format = strings.ToLower(c.Format)
}

func (c *LoggingConfig) validate() error {
	if !slices.Contains(logLevels, c.Level) {
		return fmt.Errorf("invalid level %q", c.Level)
	}
	if !slices.Contains(logFormats, c.Format) {
		return fmt.Errorf("invalid format %q", c.Format)
	}
	return nil
}
