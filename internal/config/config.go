package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/concord/pkg/database"
	"github.com/JaimeStill/concord/pkg/events"
	"github.com/JaimeStill/concord/pkg/storage"
	"github.com/JaimeStill/concord/pkg/telemetry"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvConcordEnv             = "CONCORD_ENV"
	EnvConcordShutdownTimeout = "CONCORD_SHUTDOWN_TIMEOUT"
	EnvConcordVersion         = "CONCORD_VERSION"
)

// DatabaseEnv maps the database section to its CONCORD_DB_* variables.
var DatabaseEnv = &database.Env{
	Host:            "CONCORD_DB_HOST",
	Port:            "CONCORD_DB_PORT",
	Name:            "CONCORD_DB_NAME",
	User:            "CONCORD_DB_USER",
	Password:        "CONCORD_DB_PASSWORD",
	SSLMode:         "CONCORD_DB_SSL_MODE",
	MaxOpenConns:    "CONCORD_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "CONCORD_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "CONCORD_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "CONCORD_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "CONCORD_STORAGE_CONTAINER_NAME",
	ConnectionString: "CONCORD_STORAGE_CONNECTION_STRING",
	ServiceURL:       "CONCORD_STORAGE_SERVICE_URL",
}

var eventsEnv = &events.Env{
	URL:           "CONCORD_EVENTS_URL",
	Stream:        "CONCORD_EVENTS_STREAM",
	SubjectPrefix: "CONCORD_EVENTS_SUBJECT_PREFIX",
}

var telemetryEnv = &telemetry.Env{
	ServiceName:  "CONCORD_TELEMETRY_SERVICE_NAME",
	OTLPEndpoint: "CONCORD_TELEMETRY_OTLP_ENDPOINT",
	Insecure:     "CONCORD_TELEMETRY_INSECURE",
	SampleRatio:  "CONCORD_TELEMETRY_SAMPLE_RATIO",
	MetricsPath:  "CONCORD_TELEMETRY_METRICS_PATH",
}

// Config is the root configuration for the Concord service.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Database        database.Config  `toml:"database"`
	Storage         storage.Config   `toml:"storage"`
	API             APIConfig        `toml:"api"`
	Events          events.Config    `toml:"events"`
	Telemetry       telemetry.Config `toml:"telemetry"`
	Logging         LoggingConfig    `toml:"logging"`
	Consensus       ConsensusConfig  `toml:"consensus"`
	Agents          AgentsConfig     `toml:"agents"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the CONCORD_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvConcordEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// LoadLocal reads the same files as Load but finalizes only the sections a
// local classification run needs: logging, consensus, and agents. The
// service sections keep their file values without validation. When offline
// is set every agent role uses the built-in heuristic and no provider
// credentials are required.
func LoadLocal(offline bool) (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if offline {
		cfg.Agents.SetOffline()
	}

	if err := cfg.finalizeLocal(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

func read() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Events.Merge(&overlay.Events)
	c.Telemetry.Merge(&overlay.Telemetry)
	c.Logging.Merge(&overlay.Logging)
	c.Consensus.Merge(&overlay.Consensus)
	c.Agents.Merge(&overlay.Agents)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(DatabaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Events.Finalize(eventsEnv); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	if err := c.Telemetry.Finalize(telemetryEnv); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return c.finalizeWorkflow()
}

func (c *Config) finalizeLocal() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	return c.finalizeWorkflow()
}

func (c *Config) finalizeWorkflow() error {
	if err := c.Logging.Finalize(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Consensus.Finalize(); err != nil {
		return fmt.Errorf("consensus: %w", err)
	}
	if err := c.Agents.Finalize(); err != nil {
		return fmt.Errorf("agents: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvConcordShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvConcordVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvConcordEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
