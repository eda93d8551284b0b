package telemetry

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds tracing and metrics settings. An empty OTLPEndpoint keeps
// spans in-process.
type Config struct {
	ServiceName  string  `toml:"service_name"`
	OTLPEndpoint string  `toml:"otlp_endpoint"`
	Insecure     bool    `toml:"insecure"`
	SampleRatio  float64 `toml:"sample_ratio"`
	MetricsPath  string  `toml:"metrics_path"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ServiceName  string
	OTLPEndpoint string
	Insecure     string
	SampleRatio  string
	MetricsPath  string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Insecure always applies.
func (c *Config) Merge(overlay *Config) {
	if overlay.ServiceName != "" {
		c.ServiceName = overlay.ServiceName
	}
	if overlay.OTLPEndpoint != "" {
		c.OTLPEndpoint = overlay.OTLPEndpoint
	}
	if overlay.Insecure {
		c.Insecure = true
	}
	if overlay.SampleRatio != 0 {
		c.SampleRatio = overlay.SampleRatio
	}
	if overlay.MetricsPath != "" {
		c.MetricsPath = overlay.MetricsPath
	}
}

func (c *Config) loadDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "concord"
	}
	if c.SampleRatio == 0 {
		c.SampleRatio = 1
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.ServiceName != "" {
		if v := os.Getenv(env.ServiceName); v != "" {
			c.ServiceName = v
		}
	}
	if env.OTLPEndpoint != "" {
		if v := os.Getenv(env.OTLPEndpoint); v != "" {
			c.OTLPEndpoint = v
		}
	}
	if env.Insecure != "" {
		if v := os.Getenv(env.Insecure); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Insecure = b
			}
		}
	}
	if env.SampleRatio != "" {
		if v := os.Getenv(env.SampleRatio); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.SampleRatio = f
			}
		}
	}
	if env.MetricsPath != "" {
		if v := os.Getenv(env.MetricsPath); v != "" {
			c.MetricsPath = v
		}
	}
}

func (c *Config) validate() error {
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("sample_ratio %v outside [0, 1]", c.SampleRatio)
	}
	if !strings.HasPrefix(c.MetricsPath, "/") {
		return fmt.Errorf("metrics_path must start with /")
	}
	return nil
}
