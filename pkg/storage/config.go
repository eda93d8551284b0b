package storage

import (
	"errors"
	"fmt"
	"os"
	"regexp"
)

// Azure container names: 3-63 chars of lowercase letters, digits and
// single hyphens, starting and ending alphanumeric.
var containerName = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9]|-[a-z0-9]){2,62}$`)

// Config selects the blob container for document originals. Set either
// ConnectionString (Azurite, shared keys) or ServiceURL, which signs in
// with the default Azure credential chain.
type Config struct {
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
	ServiceURL       string `toml:"service_url"`
}

// Env names the CONCORD_STORAGE_* overrides.
type Env struct {
	ContainerName    string
	ConnectionString string
	ServiceURL       string
}

// Finalize defaults the container to "documents", applies env overrides
// and validates.
func (c *Config) Finalize(env *Env) error {
	if c.ContainerName == "" {
		c.ContainerName = "documents"
	}
	if env != nil {
		c.Merge(&Config{
			ContainerName:    lookup(env.ContainerName),
			ConnectionString: lookup(env.ConnectionString),
			ServiceURL:       lookup(env.ServiceURL),
		})
	}

	if len(c.ContainerName) > 63 || !containerName.MatchString(c.ContainerName) {
		return fmt.Errorf("invalid container_name %q", c.ContainerName)
	}
	if c.ConnectionString == "" && c.ServiceURL == "" {
		return errors.New("connection_string or service_url required")
	}
	return nil
}

// Merge copies the non-empty fields of overlay.
func (c *Config) Merge(overlay *Config) {
	for dst, v := range map[*string]string{
		&c.ContainerName:    overlay.ContainerName,
		&c.ConnectionString: overlay.ConnectionString,
		&c.ServiceURL:       overlay.ServiceURL,
	} {
		if v != "" {
			*dst = v
		}
	}
}

func lookup(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
