package infrastructure_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/JaimeStill/concord/internal/config"
	"github.com/JaimeStill/concord/internal/infrastructure"
	"github.com/JaimeStill/concord/pkg/database"
	"github.com/JaimeStill/concord/pkg/events"
	"github.com/JaimeStill/concord/pkg/storage"
	"github.com/JaimeStill/concord/pkg/telemetry"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=concordstore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/concordstore;"

func validConfig() *config.Config {
	return &config.Config{
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "concord",
			User:            "concord",
			Password:        "concord",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage: storage.Config{
			ContainerName:    "documents",
			ConnectionString: azuriteConnString,
		},
		Telemetry: telemetry.Config{
			ServiceName: "concord",
			SampleRatio: 1,
			MetricsPath: "/metrics",
		},
		Events:  events.Config{},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
		Version: "0.1.0",
	}
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(context.Background(), validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if infra.Lifecycle == nil {
		t.Error("Lifecycle is nil")
	}
	if infra.Logger == nil {
		t.Error("Logger is nil")
	}
	if infra.Database == nil {
		t.Error("Database is nil")
	}
	if infra.Storage == nil {
		t.Error("Storage is nil")
	}
	if infra.Events == nil {
		t.Error("Events is nil")
	}
	if infra.Telemetry == nil {
		t.Error("Telemetry is nil")
	}
	if infra.Metrics == nil {
		t.Error("Metrics is nil")
	}
}

func TestNewDisabledEventsPublishNothing(t *testing.T) {
	infra, err := infrastructure.New(context.Background(), validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := infra.Events.Publish(context.Background(), "decisions.created", map[string]string{"id": "1"}); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
}

func TestNewDatabaseConnection(t *testing.T) {
	infra, err := infrastructure.New(context.Background(), validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	conn := infra.Database.Connection()
	if conn == nil {
		t.Fatal("Database.Connection() returned nil")
	}
	conn.Close()
}

func TestNewInvalidStorageConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.ConnectionString = "not-a-connection-string"

	_, err := infrastructure.New(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error for invalid storage connection string")
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.LoggingConfig
		logDebug bool
		want     string
	}{
		{"text info drops debug", config.LoggingConfig{Level: "info", Format: "text"}, true, ""},
		{"text info", config.LoggingConfig{Level: "info", Format: "text"}, false, "msg=hello"},
		{"json", config.LoggingConfig{Level: "info", Format: "json"}, false, `"msg":"hello"`},
		{"debug level", config.LoggingConfig{Level: "debug", Format: "text"}, true, "level=DEBUG"},
		{"warning alias drops info", config.LoggingConfig{Level: "warning", Format: "text"}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := infrastructure.NewLogger(&tt.cfg, &buf)

			if tt.logDebug {
				logger.Debug("hello")
			} else {
				logger.Info("hello")
			}

			got := buf.String()
			if tt.want == "" {
				if got != "" {
					t.Errorf("output = %q, want empty", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("output = %q, want substring %q", got, tt.want)
			}
		})
	}
}
