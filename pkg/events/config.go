package events

import (
	"fmt"
	"os"
	"regexp"
)

var streamNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Config holds NATS JetStream connection parameters. An empty URL disables
// publishing.
type Config struct {
	URL           string `toml:"url"`
	Stream        string `toml:"stream"`
	SubjectPrefix string `toml:"subject_prefix"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	URL           string
	Stream        string
	SubjectPrefix string
}

// Enabled reports whether a NATS server is configured.
func (c *Config) Enabled() bool {
	return c.URL != ""
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.Stream != "" {
		c.Stream = overlay.Stream
	}
	if overlay.SubjectPrefix != "" {
		c.SubjectPrefix = overlay.SubjectPrefix
	}
}

func (c *Config) loadDefaults() {
	if c.Stream == "" {
		c.Stream = "CONCORD"
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "concord"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.URL != "" {
		if v := os.Getenv(env.URL); v != "" {
			c.URL = v
		}
	}
	if env.Stream != "" {
		if v := os.Getenv(env.Stream); v != "" {
			c.Stream = v
		}
	}
	if env.SubjectPrefix != "" {
		if v := os.Getenv(env.SubjectPrefix); v != "" {
			c.SubjectPrefix = v
		}
	}
}

func (c *Config) validate() error {
	if !streamNamePattern.MatchString(c.Stream) {
		return fmt.Errorf("invalid stream name %q", c.Stream)
	}
	return nil
}
