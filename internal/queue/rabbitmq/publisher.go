// Package rabbitmq publishes domain events to a durable RabbitMQ queue.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dtroode/dreamluck-server/internal/config"
	"github.com/dtroode/dreamluck-server/internal/logger"
	"github.com/dtroode/dreamluck-server/internal/model"
)

const publishTimeout = 5 * time.Second

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

var _ model.EventPublisher = (*Publisher)(nil)

// Publisher keeps one channel open and reopens it after a failed publish.
type Publisher struct {
	queue  string
	open   func() (channel, error)
	close  func() error
	logger *logger.Logger

	mu sync.Mutex
	ch channel
}

// NewPublisher dials the broker and declares the events queue.
func NewPublisher(cfg config.RabbitMQ, log *logger.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	open := func() (channel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("failed to open channel: %w", err)
		}
		if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("failed to declare queue: %w", err)
		}
		return ch, nil
	}

	p := newPublisher(cfg.Queue, open, conn.Close, log)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.channelLocked(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

func newPublisher(queue string, open func() (channel, error), closeConn func() error, log *logger.Logger) *Publisher {
	return &Publisher{
		queue:  queue,
		open:   open,
		close:  closeConn,
		logger: log,
	}
}

// Publish sends event as a persistent JSON message on the default exchange.
func (p *Publisher) Publish(ctx context.Context, event model.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		_ = ch.Close()
		p.ch = nil
		p.logger.Warn("event publish failed, channel will be reopened", "type", event.Type, "error", err)
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *Publisher) channelLocked() (channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}
	ch, err := p.open()
	if err != nil {
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
		p.ch = nil
	}
	if p.close != nil {
		errs = append(errs, p.close())
	}
	return errors.Join(errs...)
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

var _ model.EventPublisher = Noop{}

func (Noop) Publish(context.Context, model.Event) error { return nil }

func (Noop) Close() error { return nil }
