// Package rabbitmq publishes polgen events to a RabbitMQ topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"polgen/internal/config"
	"polgen/internal/domain"
	"polgen/internal/events"
	"polgen/internal/port"
)

const publishTimeout = 3 * time.Second

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends events as persistent JSON messages.
type Publisher struct {
	ch       Channel
	conn     *amqp.Connection
	exchange string
	now      func() time.Time
}

// Dial connects to the broker in cfg and declares the exchange.
func Dial(cfg *config.EventsConfig) (port.EventPublisher, error) {
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq.Dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq.Dial: open channel: %w", err)
	}
	p, err := NewPublisher(ch, cfg.Exchange)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher declares a durable topic exchange on ch.
func NewPublisher(ch Channel, exchange string) (*Publisher, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("rabbitmq.NewPublisher: declare %s: %w", exchange, err)
	}
	return &Publisher{ch: ch, exchange: exchange, now: time.Now}, nil
}

func (p *Publisher) PublishPOLCreated(ctx context.Context, runID string, result *domain.SubmissionResult) error {
	ev := events.NewPOLCreated(runID, result, p.now())
	return p.publish(ctx, events.POLCreatedRoutingKey, ev.EventID, ev)
}

func (p *Publisher) PublishBatchCompleted(ctx context.Context, report *domain.BatchReport) error {
	ev := events.NewBatchCompleted(report, p.now())
	return p.publish(ctx, events.BatchCompletedRoutingKey, ev.EventID, ev)
}

func (p *Publisher) publish(ctx context.Context, routingKey, messageID string, ev any) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("rabbitmq.Publisher.publish: marshal %s: %w", routingKey, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(pubCtx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    p.now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq.Publisher.publish %s: %w", routingKey, err)
	}
	return nil
}

// Close closes the channel and, when the publisher dialed it, the connection.
func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
