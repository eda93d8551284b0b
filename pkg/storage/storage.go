// Package storage keeps uploaded originals in an Azure Blob Storage
// container (Azurite in development).
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/JaimeStill/concord/pkg/lifecycle"
)

// System stores document originals by key. Keys are slash separated
// ("documents/<id>/<filename>") and may not climb out with "..".
type System interface {
	// Start creates the container at startup if it is missing.
	Start(lc *lifecycle.Coordinator) error
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	// Download opens the blob at key. The caller closes the reader.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// Ping fetches the container properties.
	Ping(ctx context.Context) error
}

type azure struct {
	client    *azblob.Client
	container string
	logger    *slog.Logger
}

// New builds the client without contacting the service. A connection
// string wins over ServiceURL with the default Azure credential chain.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	var (
		client *azblob.Client
		err    error
	)
	if cfg.ConnectionString != "" {
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	} else {
		var cred *azidentity.DefaultAzureCredential
		if cred, err = azidentity.NewDefaultAzureCredential(nil); err == nil {
			client, err = azblob.NewClient(cfg.ServiceURL, cred, nil)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("storage client for container %s: %w", cfg.ContainerName, err)
	}

	return &azure{
		client:    client,
		container: cfg.ContainerName,
		logger:    logger.With("system", "storage", "container", cfg.ContainerName),
	}, nil
}

func (a *azure) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() {
		_, err := a.client.CreateContainer(lc.Context(), a.container, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			a.logger.Error("create container", "error", err)
			return
		}
		a.logger.Info("container ready")
	})
	return nil
}

func (a *azure) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, err := a.client.UploadStream(ctx, a.container, key, r, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	return wrap("upload", key, err)
}

func (a *azure) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	resp, err := a.client.DownloadStream(ctx, a.container, key, nil)
	if err != nil {
		return nil, wrap("download", key, err)
	}
	return resp.Body, nil
}

func (a *azure) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, err := a.client.DeleteBlob(ctx, a.container, key, nil)
	return wrap("delete", key, err)
}

func (a *azure) Ping(ctx context.Context) error {
	_, err := a.client.ServiceClient().NewContainerClient(a.container).GetProperties(ctx, nil)
	if err != nil {
		return fmt.Errorf("container %s: %w", a.container, err)
	}
	return nil
}

// ValidateKey rejects empty keys and keys with a ".." segment or a
// leading slash.
func ValidateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func wrap(op, key string, err error) error {
	switch {
	case err == nil:
		return nil
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return fmt.Errorf("%s %s: %w", op, key, ErrNotFound)
	default:
		return fmt.Errorf("%s blob %s: %w", op, key, err)
	}
}
