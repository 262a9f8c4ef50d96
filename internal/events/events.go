// Package events publishes change events to a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/notekeeper/apiserver/config"
	"github.com/notekeeper/apiserver/types"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Bus encodes events as JSON and moves them over a backend channel.
type Bus struct {
	backend Backend
	channel string
}

// New constructs a Bus publishing to channel on backend.
func New(backend Backend, channel string) *Bus {
	return &Bus{backend: backend, channel: channel}
}

// attrKind carries the event kind alongside the encoded body.
const attrKind = "kind"

// Open selects the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.EventsConfig) (*Bus, error) {
	var backend Backend
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		backend = Noop{}
	case "rabbitmq":
		client, err := NewRabbitMQClient(cfg.RabbitMQ, cfg.Channel)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		backend = client
	case "pubsub":
		client, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
	return New(backend, cfg.Channel), nil
}

// Publish sends event to the bus channel.
func (b *Bus) Publish(ctx context.Context, event types.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	attrs := map[string]string{attrKind: string(event.Kind)}
	if _, err := b.backend.Publish(ctx, b.channel, data, attrs); err != nil {
		return fmt.Errorf("publish %s: %w", event.Kind, err)
	}
	return nil
}

// Subscribe decodes every message on the bus channel and hands it to fn
// until ctx is done. Undecodable messages are rejected.
func (b *Bus) Subscribe(ctx context.Context, fn func(ctx context.Context, event types.Event) error) error {
	return b.backend.Subscribe(ctx, b.channel, func(ctx context.Context, msg Message) error {
		var event types.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return fmt.Errorf("decode message %s: %w", msg.ID, err)
		}
		return fn(ctx, event)
	})
}

// Close closes the underlying backend.
func (b *Bus) Close() error {
	return b.backend.Close()
}

// Noop discards everything it is given.
type Noop struct{}

func (Noop) Publish(context.Context, string, []byte, map[string]string) (string, error) {
	return "", nil
}

// Subscribe blocks until ctx is done; nothing is ever delivered.
func (Noop) Subscribe(ctx context.Context, _ string, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (Noop) Close() error { return nil }
