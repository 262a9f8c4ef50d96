package events

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/notekeeper/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

const appID = "notekeeper"

// RabbitMQClient publishes change events to a queue on the default exchange.
// The change queue is declared once when the client connects; other channels
// are declared on first use.
type RabbitMQClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     config.RabbitMQConfig

	// mu guards declared and serializes publishes on channel.
	mu       sync.Mutex
	declared map[string]struct{}
}

// NewRabbitMQClient connects and declares queue.
func NewRabbitMQClient(cfg config.RabbitMQConfig, queue string) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	client := &RabbitMQClient{
		conn:     conn,
		channel:  ch,
		cfg:      cfg,
		declared: make(map[string]struct{}),
	}
	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("set prefetch: %w", err)
		}
	}
	if strings.TrimSpace(queue) != "" {
		if err := client.ensureQueue(queue); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	return client, nil
}

// Publish sends a persistent JSON message to the named queue.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureQueueLocked(channel); err != nil {
		return "", err
	}

	msg := newPublishing(data, attrs, time.Now())
	if err := r.channel.PublishWithContext(ctx, "", channel, false, false, msg); err != nil {
		return "", fmt.Errorf("publish to %s: %w", channel, err)
	}
	return msg.MessageId, nil
}

// Subscribe consumes the named queue until ctx is done. Deliveries the
// handler rejects are dropped, not requeued.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}
	if err := r.ensureQueue(channel); err != nil {
		return err
	}

	consumerTag := appID + "-" + newMessageID()
	r.mu.Lock()
	deliveries, err := r.channel.Consume(channel, consumerTag, false, false, false, false, nil)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("consume %s: %w", channel, err)
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			if err := handler(ctx, messageFromDelivery(delivery)); err != nil {
				_ = delivery.Nack(false, false)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQClient) ensureQueue(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureQueueLocked(name)
}

func (r *RabbitMQClient) ensureQueueLocked(name string) error {
	if _, ok := r.declared[name]; ok {
		return nil
	}
	_, err := r.channel.QueueDeclare(name, r.cfg.QueueDurable, r.cfg.QueueAutoDelete, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	r.declared[name] = struct{}{}
	return nil
}

// newPublishing builds the AMQP message for an event. The event kind doubles
// as the AMQP type so consumers can route without decoding the body.
func newPublishing(data []byte, attrs map[string]string, now time.Time) amqp.Publishing {
	headers := amqp.Table{}
	for key, value := range attrs {
		headers[key] = value
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    newMessageID(),
		Timestamp:    now.UTC(),
		Type:         attrs[attrKind],
		AppId:        appID,
		Headers:      headers,
		Body:         data,
	}
}

func messageFromDelivery(d amqp.Delivery) Message {
	attrs := headersToAttributes(d.Headers)
	if _, ok := attrs[attrKind]; !ok && d.Type != "" {
		if attrs == nil {
			attrs = map[string]string{}
		}
		attrs[attrKind] = d.Type
	}
	return Message{ID: d.MessageId, Data: d.Body, Attributes: attrs}
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}

func newMessageID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(buf[:])
}
