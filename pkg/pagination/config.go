// Package pagination carries page requests and results for the document,
// prompt and classification listings.
package pagination

import (
	"errors"
	"os"
	"strconv"
)

// Config bounds page sizes. Both values must be positive and the default
// may not exceed the max.
type Config struct {
	DefaultPageSize int `toml:"default_page_size"`
	MaxPageSize     int `toml:"max_page_size"`
}

// ConfigEnv names the CONCORD_PAGINATION_* overrides.
type ConfigEnv struct {
	DefaultPageSize string
	MaxPageSize     string
}

// Finalize defaults to 20 per page and 100 max, applies env overrides and
// validates. Unparsable env values are ignored.
func (c *Config) Finalize(env *ConfigEnv) error {
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 20
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 100
	}
	if env != nil {
		c.Merge(&Config{
			DefaultPageSize: envInt(env.DefaultPageSize),
			MaxPageSize:     envInt(env.MaxPageSize),
		})
	}

	switch {
	case c.DefaultPageSize < 1 || c.MaxPageSize < 1:
		return errors.New("page sizes must be positive")
	case c.DefaultPageSize > c.MaxPageSize:
		return errors.New("default_page_size cannot exceed max_page_size")
	}
	return nil
}

// Merge copies the non-zero sizes of overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.DefaultPageSize != 0 {
		c.DefaultPageSize = overlay.DefaultPageSize
	}
	if overlay.MaxPageSize != 0 {
		c.MaxPageSize = overlay.MaxPageSize
	}
}

func envInt(name string) int {
	if name == "" {
		return 0
	}
	n, _ := strconv.Atoi(os.Getenv(name))
	return n
}
