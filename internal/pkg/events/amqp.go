package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ManuelReschke/edupay/internal/pkg/config"
	"github.com/ManuelReschke/edupay/internal/pkg/payments"
	"github.com/gofiber/fiber/v2/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes payment events as JSON to a topic exchange. The
// event type is the routing key.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     io.Closer
	ch       channel
	exchange string
}

// NewAMQPPublisher dials cfg.URL and declares the durable topic exchange.
func NewAMQPPublisher(cfg config.AMQPConfig) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	log.Infof("[Events] RabbitMQ publisher connected (exchange=%s)", cfg.Exchange)
	return newAMQPPublisher(conn, ch, cfg.Exchange), nil
}

func newAMQPPublisher(conn io.Closer, ch channel, exchange string) *AMQPPublisher {
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event payments.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	log.Debugf("[Events] Published %s (%d bytes)", event.Type, len(body))
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			log.Warnf("[Events] Error closing channel: %v", err)
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NewPublisher returns an AMQP publisher when AMQP_URL is set and a
// payments.NopPublisher otherwise. The returned close func is never nil.
func NewPublisher(cfg config.AMQPConfig) (payments.Publisher, func() error, error) {
	if cfg.URL == "" {
		return payments.NopPublisher{}, func() error { return nil }, nil
	}
	p, err := NewAMQPPublisher(cfg)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}
