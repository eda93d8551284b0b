package storage_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/concord/pkg/storage"
)

var storageEnv = &storage.Env{
	ContainerName:    "CONCORD_STORAGE_CONTAINER_NAME",
	ConnectionString: "CONCORD_STORAGE_CONNECTION_STRING",
	ServiceURL:       "CONCORD_STORAGE_SERVICE_URL",
}

func TestFinalize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		env     map[string]string
		want    storage.Config
		wantErr string
	}{
		{
			name: "default container",
			cfg:  storage.Config{ConnectionString: azurite},
			want: storage.Config{ContainerName: "documents", ConnectionString: azurite},
		},
		{
			name: "env over file",
			cfg:  storage.Config{ContainerName: "documents", ConnectionString: azurite},
			env: map[string]string{
				"CONCORD_STORAGE_CONTAINER_NAME": "review-originals",
				"CONCORD_STORAGE_SERVICE_URL":    "https://concordstore.blob.core.windows.net/",
			},
			want: storage.Config{
				ContainerName:    "review-originals",
				ConnectionString: azurite,
				ServiceURL:       "https://concordstore.blob.core.windows.net/",
			},
		},
		{
			name: "service url alone",
			cfg:  storage.Config{ServiceURL: "https://concordstore.blob.core.windows.net/"},
			want: storage.Config{ContainerName: "documents", ServiceURL: "https://concordstore.blob.core.windows.net/"},
		},
		{
			name:    "no endpoint",
			cfg:     storage.Config{ContainerName: "documents"},
			wantErr: "connection_string or service_url required",
		},
		{
			name:    "uppercase container",
			cfg:     storage.Config{ContainerName: "Documents", ConnectionString: azurite},
			wantErr: "invalid container_name",
		},
		{
			name:    "double hyphen",
			cfg:     storage.Config{ContainerName: "review--originals", ConnectionString: azurite},
			wantErr: "invalid container_name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg := tt.cfg
			err := cfg.Finalize(storageEnv)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Finalize error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Finalize error: %v", err)
			}
			if diff := cmp.Diff(tt.want, cfg); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := storage.Config{ContainerName: "documents", ConnectionString: azurite}
	base.Merge(&storage.Config{ServiceURL: "https://concordstore.blob.core.windows.net/"})

	want := storage.Config{
		ContainerName:    "documents",
		ConnectionString: azurite,
		ServiceURL:       "https://concordstore.blob.core.windows.net/",
	}
	if diff := cmp.Diff(want, base); diff != "" {
		t.Errorf("merge mismatch (-want +got):\n%s", diff)
	}
}
