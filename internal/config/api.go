package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/JaimeStill/concord/pkg/formatting"
	"github.com/JaimeStill/concord/pkg/middleware"
	"github.com/JaimeStill/concord/pkg/pagination"
)

const (
	EnvAPIBasePath      = "CONCORD_API_BASE_PATH"
	EnvAPIMaxUploadSize = "CONCORD_API_MAX_UPLOAD_SIZE"
)

const defaultUploadSize = 50 * 1024 * 1024

// APIConfig shapes the HTTP surface mounted under BasePath.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Auth          middleware.AuthConfig `toml:"auth"`
	Pagination    pagination.Config     `toml:"pagination"`
}

// MaxUploadSizeBytes is the per-file upload limit. Unparseable sizes count
// as 50MB.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	if size, err := formatting.ParseBytes(c.MaxUploadSize); err == nil {
		return size
	}
	return defaultUploadSize
}

// Finalize fills defaults, applies CONCORD_API_* and finalizes the nested
// CORS, auth and pagination sections against their own variables.
func (c *APIConfig) Finalize() error {
	settings := APIConfig{BasePath: "/api", MaxUploadSize: "50MB"}
	settings.mergeScalars(c)
	settings.mergeScalars(&APIConfig{
		BasePath:      os.Getenv(EnvAPIBasePath),
		MaxUploadSize: os.Getenv(EnvAPIMaxUploadSize),
	})
	c.BasePath, c.MaxUploadSize = settings.BasePath, settings.MaxUploadSize

	if !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("base_path %q must start with /", c.BasePath)
	}

	cors := &middleware.CORSEnv{
		Enabled:          "CONCORD_CORS_ENABLED",
		Origins:          "CONCORD_CORS_ORIGINS",
		AllowedMethods:   "CONCORD_CORS_ALLOWED_METHODS",
		AllowedHeaders:   "CONCORD_CORS_ALLOWED_HEADERS",
		AllowCredentials: "CONCORD_CORS_ALLOW_CREDENTIALS",
		MaxAge:           "CONCORD_CORS_MAX_AGE",
	}
	if err := c.CORS.Finalize(cors); err != nil {
		return fmt.Errorf("cors: %w", err)
	}

	auth := &middleware.AuthEnv{Issuer: "CONCORD_AUTH_ISSUER", ClientID: "CONCORD_AUTH_CLIENT_ID"}
	if err := c.Auth.Finalize(auth); err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	page := &pagination.ConfigEnv{
		DefaultPageSize: "CONCORD_PAGINATION_DEFAULT_PAGE_SIZE",
		MaxPageSize:     "CONCORD_PAGINATION_MAX_PAGE_SIZE",
	}
	if err := c.Pagination.Finalize(page); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge copies the non-zero fields of overlay, nested sections included.
func (c *APIConfig) Merge(overlay *APIConfig) {
	c.mergeScalars(overlay)
	c.CORS.Merge(&overlay.CORS)
	c.Auth.Merge(&overlay.Auth)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) mergeScalars(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
}
