package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer reads the order.events queue and appends a one-line audit
// record per event to a log file.
type Consumer struct {
	url     string
	logPath string
}

func NewConsumer(url, logPath string) *Consumer {
	if logPath == "" {
		logPath = filepath.Join("logs", "orders.log")
	}
	return &Consumer{url: url, logPath: logPath}
}

const (
	minRedial = time.Second
	maxRedial = 30 * time.Second
	prefetch  = 50
)

// Run consumes until ctx is cancelled. Failed dials back off
// exponentially up to maxRedial; a dropped connection is redialled
// after minRedial.
func (c *Consumer) Run(ctx context.Context) error {
	wait := minRedial
	for {
		conn, err := amqp.Dial(c.url)
		if err == nil {
			wait = minRedial
			err = c.consume(ctx, conn)
			_ = conn.Close()
		} else {
			wait = min(wait*2, maxRedial)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("order consumer: disconnected", "error", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	if _, err := ch.QueueDeclare(OrderEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", OrderEventsQueue, err)
	}
	deliveries, err := ch.ConsumeWithContext(ctx, OrderEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", OrderEventsQueue, err)
	}

	for d := range deliveries {
		if err := c.handle(d.Body); err != nil {
			// Dropped, not requeued: a malformed event would loop forever.
			slog.Error("order consumer: bad delivery", "error", err, "message_id", d.MessageId)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("delivery channel closed")
}

func (c *Consumer) handle(body []byte) error {
	var ev OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	return writeAuditLine(f, ev)
}

func writeAuditLine(w io.Writer, ev OrderEvent) error {
	status := ev.Status
	if ev.PreviousStatus != "" {
		status = ev.PreviousStatus + "->" + ev.Status
	}
	user := "guest"
	if ev.UserID != nil {
		user = fmt.Sprint(*ev.UserID)
	}
	line := fmt.Sprintf("[%s] %s | order=%s | id=%d | user=%s | status=%s | payment=%s | total=%s %s | items=%d",
		ev.OccurredAt.Format(time.RFC3339), ev.Type, ev.OrderNumber, ev.OrderID, user, status,
		ev.PaymentType, ev.TotalPrice.StringFixed(2), ev.Currency, ev.ItemCount)
	if ev.TrackingNumber != "" {
		line += " | tracking=" + ev.TrackingNumber
	}
	_, err := io.WriteString(w, line+"\n")
	return err
}
