package database

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config describes the PostgreSQL pool holding documents, prompts and
// classification decisions. Durations are Go duration strings.
type Config struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Name            string `toml:"name"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	SSLMode         string `toml:"ssl_mode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime string `toml:"conn_max_lifetime"`
	ConnTimeout     string `toml:"conn_timeout"`
}

// Env names the variables (CONCORD_DB_*) that override each Config field.
type Env struct {
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    string
	MaxIdleConns    string
	ConnMaxLifetime string
	ConnTimeout     string
}

// ConnMaxLifetimeDuration parses ConnMaxLifetime. Zero when unparsable.
func (c *Config) ConnMaxLifetimeDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnMaxLifetime)
	return d
}

// ConnTimeoutDuration parses ConnTimeout. Zero when unparsable.
func (c *Config) ConnTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnTimeout)
	return d
}

// Dsn returns the keyword/value form pgx accepts.
func (c *Config) Dsn() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Name, c.User, c.Password, c.SSLMode,
	)
}

// URL returns the connection string in postgres:// URL form, as expected
// by the migration driver.
func (c *Config) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Finalize fills defaults, applies env overrides and validates.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge copies every non-zero field of overlay onto c.
func (c *Config) Merge(overlay *Config) {
	setString(&c.Host, overlay.Host)
	setString(&c.Name, overlay.Name)
	setString(&c.User, overlay.User)
	setString(&c.Password, overlay.Password)
	setString(&c.SSLMode, overlay.SSLMode)
	setString(&c.ConnMaxLifetime, overlay.ConnMaxLifetime)
	setString(&c.ConnTimeout, overlay.ConnTimeout)
	setInt(&c.Port, overlay.Port)
	setInt(&c.MaxOpenConns, overlay.MaxOpenConns)
	setInt(&c.MaxIdleConns, overlay.MaxIdleConns)
}

func (c *Config) loadDefaults() {
	d := Config{
		Host:            "localhost",
		Port:            5432,
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: "15m",
		ConnTimeout:     "5s",
	}
	d.Merge(c)
	*c = d
}

func (c *Config) loadEnv(env *Env) {
	overlay := Config{
		Host:            getenv(env.Host),
		Name:            getenv(env.Name),
		User:            getenv(env.User),
		Password:        getenv(env.Password),
		SSLMode:         getenv(env.SSLMode),
		ConnMaxLifetime: getenv(env.ConnMaxLifetime),
		ConnTimeout:     getenv(env.ConnTimeout),
	}
	overlay.Port, _ = strconv.Atoi(getenv(env.Port))
	overlay.MaxOpenConns, _ = strconv.Atoi(getenv(env.MaxOpenConns))
	overlay.MaxIdleConns, _ = strconv.Atoi(getenv(env.MaxIdleConns))
	c.Merge(&overlay)
}

func (c *Config) validate() error {
	switch {
	case c.Name == "":
		return errors.New("database name required")
	case c.User == "":
		return errors.New("database user required")
	}
	if _, err := time.ParseDuration(c.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid conn_max_lifetime: %w", err)
	}
	if _, err := time.ParseDuration(c.ConnTimeout); err != nil {
		return fmt.Errorf("invalid conn_timeout: %w", err)
	}
	return nil
}

func getenv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
