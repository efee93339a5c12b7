// Package events publishes partner lifecycle events to a RabbitMQ topic
// exchange.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
)

const (
	Exchange                = "partner_events"
	RoutingKeyStatusChanged = "partner.status_changed"
)

// Publisher implements ports.EventPublisher over one AMQP channel.
type Publisher struct {
	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	if u.Path == "" {
		clean += "/"
	}
	return clean, nil
}

// NewPublisher dials RabbitMQ and declares the durable topic exchange.
func NewPublisher(amqpURL string) (*Publisher, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.Dial(cleanURL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := channel.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", Exchange, err)
	}

	return &Publisher{conn: conn, channel: channel}, nil
}

func statusChangedMessage(event domain.StatusChangedEvent) (amqp091.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp091.Publishing{}, err
	}
	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    ts,
		Type:         RoutingKeyStatusChanged,
		Body:         body,
	}, nil
}

func (p *Publisher) PublishStatusChanged(ctx context.Context, event domain.StatusChangedEvent) error {
	msg, err := statusChangedMessage(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.PublishWithContext(ctx, Exchange, RoutingKeyStatusChanged, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", RoutingKeyStatusChanged, err)
	}
	return nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// NoopPublisher is used when RABBITMQ_URL is not set.
type NoopPublisher struct{}

func (NoopPublisher) PublishStatusChanged(context.Context, domain.StatusChangedEvent) error {
	return nil
}
