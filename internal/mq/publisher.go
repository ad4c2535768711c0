// Package mq publishes domain events to a RabbitMQ topic exchange.
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"bluecollar-backend/internal/logger"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Publisher struct {
	conn     *amqp.Connection
	exchange string

	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
	ch *amqp.Channel
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// PublishJSON sends v as a persistent JSON message routed by key.
func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	msg, err := newMessage(v, time.Now())
	if err != nil {
		return err
	}

	logger.ExternalServiceCall("rabbitmq", "publish", "exchange", p.exchange, "routing_key", key)
	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg)
	p.mu.Unlock()
	logger.ExternalServiceResult("rabbitmq", "publish", err, "routing_key", key)
	return err
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func newMessage(v any, at time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    at.UTC(),
		Body:         body,
	}, nil
}
