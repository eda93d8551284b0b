// Package events publishes domain events. The JetStream publisher persists
// events in a stream; the noop publisher discards them when no server is
// configured.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrPublishFailed is returned when an event cannot be delivered.
var ErrPublishFailed = errors.New("event publish failed")

// Event is the envelope written to the stream.
type Event struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Publisher delivers events to subscribers.
type Publisher interface {
	// Publish sends data as an event of the given type. The subject is
	// derived from the publisher's prefix and the event type.
	Publish(ctx context.Context, eventType string, data any) error
	Close() error
}

// NewEvent marshals data into an Event envelope stamped with the current time.
func NewEvent(eventType string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("%w: marshal %s: %w", ErrPublishFailed, eventType, err)
	}
	return Event{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}, nil
}

// Subject joins a prefix and an event type into a NATS subject.
func Subject(prefix, eventType string) string {
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}

type noop struct{}

// Noop returns a Publisher that discards every event.
func Noop() Publisher {
	return noop{}
}

func (noop) Publish(context.Context, string, any) error { return nil }

func (noop) Close() error { return nil }
