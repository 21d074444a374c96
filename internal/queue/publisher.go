package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends order events to RabbitMQ. Each publish dials, declares
// the queue and closes again; order volume is low enough that holding a
// channel open is not worth the reconnect handling.
type Publisher struct {
	url string
}

// NewPublisher returns nil when url is empty; a nil Publisher drops
// events silently.
func NewPublisher(url string) *Publisher {
	if url == "" {
		return nil
	}
	return &Publisher{url: url}
}

// Publish marshals ev and publishes it as a persistent message to the
// order.events queue via the default exchange.
func (p *Publisher) Publish(ctx context.Context, ev OrderEvent) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(OrderEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	err = ch.PublishWithContext(ctx, "", OrderEventsQueue, false, false, amqp.Publishing{
		MessageId:    uuid.NewString(),
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// PublishAsync publishes on a new goroutine with its own timeout and
// logs the outcome. Request handling never waits for the broker.
func (p *Publisher) PublishAsync(ev OrderEvent) {
	if p == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.Publish(ctx, ev); err != nil {
			slog.Warn("order event publish failed", "type", ev.Type, "order", ev.OrderNumber, "error", err)
		}
	}()
}
