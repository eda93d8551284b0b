package middleware

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// CORSConfig holds CORS policy settings.
type CORSConfig struct {
	Enabled          bool     `toml:"enabled"`
	Origins          []string `toml:"origins"`
	AllowedMethods   []string `toml:"allowed_methods"`
	AllowedHeaders   []string `toml:"allowed_headers"`
	AllowCredentials bool     `toml:"allow_credentials"`
	MaxAge           int      `toml:"max_age"`
}

// CORSEnv maps CORS config fields to environment variable names for override injection.
type CORSEnv struct {
	Enabled          string
	Origins          string
	AllowedMethods   string
	AllowedHeaders   string
	AllowCredentials string
	MaxAge           string
}

// Finalize fills unset methods, headers and max age, then applies env
// overrides. List variables are comma separated.
func (c *CORSConfig) Finalize(env *CORSEnv) error {
	if len(c.AllowedMethods) == 0 {
		c.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(c.AllowedHeaders) == 0 {
		c.AllowedHeaders = []string{"Content-Type", "Authorization"}
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 3600
	}
	if env == nil {
		return nil
	}

	envBool(env.Enabled, &c.Enabled)
	envBool(env.AllowCredentials, &c.AllowCredentials)
	envList(env.Origins, &c.Origins)
	envList(env.AllowedMethods, &c.AllowedMethods)
	envList(env.AllowedHeaders, &c.AllowedHeaders)
	if v := lookup(env.MaxAge); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAge = n
		}
	}
	return nil
}

// Merge applies overlay. The booleans always apply because a file layer
// must be able to turn CORS off. Lists apply when set.
func (c *CORSConfig) Merge(overlay *CORSConfig) {
	c.Enabled = overlay.Enabled
	c.AllowCredentials = overlay.AllowCredentials

	for _, pair := range [][2]*[]string{
		{&c.Origins, &overlay.Origins},
		{&c.AllowedMethods, &overlay.AllowedMethods},
		{&c.AllowedHeaders, &overlay.AllowedHeaders},
	} {
		if *pair[1] != nil {
			*pair[0] = *pair[1]
		}
	}
	if overlay.MaxAge > 0 {
		c.MaxAge = overlay.MaxAge
	}
}

func lookup(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

func envBool(name string, dst *bool) {
	if b, err := strconv.ParseBool(lookup(name)); err == nil {
		*dst = b
	}
}

func envList(name string, dst *[]string) {
	v := lookup(name)
	if v == "" {
		return
	}
	var out []string
	for item := range strings.SplitSeq(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

// AuthConfig holds OIDC bearer token verification settings. An empty
// issuer disables authentication.
type AuthConfig struct {
	Issuer      string   `toml:"issuer"`
	ClientID    string   `toml:"client_id"`
	PublicPaths []string `toml:"public_paths"`
}

// AuthEnv maps auth config fields to environment variable names for override injection.
type AuthEnv struct {
	Issuer   string
	ClientID string
}

// Enabled reports whether an issuer is configured.
func (c *AuthConfig) Enabled() bool {
	return c.Issuer != ""
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AuthConfig) Finalize(env *AuthEnv) error {
	if env != nil {
		if v := lookup(env.Issuer); v != "" {
			c.Issuer = v
		}
		if v := lookup(env.ClientID); v != "" {
			c.ClientID = v
		}
	}
	if c.PublicPaths == nil {
		c.PublicPaths = []string{"/healthz", "/readyz", "/metrics"}
	}
	if c.Enabled() && c.ClientID == "" {
		return errors.New("client_id required when issuer is set")
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *AuthConfig) Merge(overlay *AuthConfig) {
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
	if overlay.PublicPaths != nil {
		c.PublicPaths = overlay.PublicPaths
	}
}
