package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost            = "CONCORD_SERVER_HOST"
	EnvServerPort            = "CONCORD_SERVER_PORT"
	EnvServerReadTimeout     = "CONCORD_SERVER_READ_TIMEOUT"
	EnvServerWriteTimeout    = "CONCORD_SERVER_WRITE_TIMEOUT"
	EnvServerShutdownTimeout = "CONCORD_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig sizes the HTTP listener. WriteTimeout bounds a synchronous
// classify request, so it must cover two evaluation rounds and an
// arbitration call.
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *ServerConfig) ReadTimeoutDuration() time.Duration     { return duration(c.ReadTimeout) }
func (c *ServerConfig) WriteTimeoutDuration() time.Duration    { return duration(c.WriteTimeout) }
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration { return duration(c.ShutdownTimeout) }

// Finalize fills defaults, applies CONCORD_SERVER_* and validates.
func (c *ServerConfig) Finalize() error {
	defaults := ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     "1m",
		WriteTimeout:    "15m",
		ShutdownTimeout: "30s",
	}
	defaults.Merge(c)

	env := ServerConfig{
		Host:            os.Getenv(EnvServerHost),
		ReadTimeout:     os.Getenv(EnvServerReadTimeout),
		WriteTimeout:    os.Getenv(EnvServerWriteTimeout),
		ShutdownTimeout: os.Getenv(EnvServerShutdownTimeout),
	}
	env.Port, _ = strconv.Atoi(os.Getenv(EnvServerPort))
	defaults.Merge(&env)
	*c = defaults

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for name, v := range map[string]string{
		"read_timeout":     c.ReadTimeout,
		"write_timeout":    c.WriteTimeout,
		"shutdown_timeout": c.ShutdownTimeout,
	} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return fmt.Errorf("invalid %s %q", name, v)
		}
	}
	return nil
}

// Merge copies the non-zero fields of overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	for dst, v := range map[*string]string{
		&c.Host:            overlay.Host,
		&c.ReadTimeout:     overlay.ReadTimeout,
		&c.WriteTimeout:    overlay.WriteTimeout,
		&c.ShutdownTimeout: overlay.ShutdownTimeout,
	} {
		if v != "" {
			*dst = v
		}
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
