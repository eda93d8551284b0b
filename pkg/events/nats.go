package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStream publishes events to a NATS JetStream stream.
type JetStream struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	prefix string
	logger *slog.Logger
}

// Connect dials the configured server and ensures the stream exists with a
// subject filter covering the prefix.
func Connect(ctx context.Context, cfg *Config, logger *slog.Logger) (*JetStream, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("concord"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{Subject(cfg.SubjectPrefix, ">")},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	logger = logger.With("system", "events")
	logger.Info("nats connected", "url", cfg.URL, "stream", cfg.Stream)

	return &JetStream{
		nc:     nc,
		js:     js,
		prefix: cfg.SubjectPrefix,
		logger: logger,
	}, nil
}

// Publish wraps data in an Event and publishes it to prefix.eventType.
func (p *JetStream) Publish(ctx context.Context, eventType string, data any) error {
	evt, err := NewEvent(eventType, data)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	subject := Subject(p.prefix, eventType)
	ack, err := p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, subject, err)
	}

	p.logger.DebugContext(ctx, "event published", "subject", subject, "seq", ack.Sequence)
	return nil
}

// Close drains pending publishes and closes the connection.
func (p *JetStream) Close() error {
	return p.nc.Drain()
}
