package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-orders/internal/model"
)

func TestNewOrderEvent(t *testing.T) {
	uid := uint64(5)
	tr := "ABC123"
	o := &model.Order{
		ID: 10, OrderNumber: "ORD-20240101-ABCDEF", UserID: &uid, Status: model.StatusShipped,
		PaymentType: model.PaymentCOD, TotalPrice: decimal.RequireFromString("183.97"), Currency: "USD",
		TrackingNumber: &tr,
		Items:          []model.OrderItem{{Quantity: 2}, {Quantity: 1}},
	}
	ev := NewOrderEvent(EventOrderStatusChanged, o, model.StatusProcessing)
	assert.Equal(t, 3, ev.ItemCount)
	assert.Equal(t, "processing", ev.PreviousStatus)
	assert.Equal(t, "ABC123", ev.TrackingNumber)
	assert.WithinDuration(t, time.Now(), ev.OccurredAt, 5*time.Second)
}

func TestWriteAuditLine(t *testing.T) {
	ev := OrderEvent{
		Type: EventOrderStatusChanged, OrderID: 1, OrderNumber: "ORD-20240101-ABCDEF",
		Status: "shipped", PreviousStatus: "processing", PaymentType: "cod",
		TotalPrice: decimal.RequireFromString("183.97"), Currency: "USD", ItemCount: 3,
		TrackingNumber: "ABC123", OccurredAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	var sb strings.Builder
	require.NoError(t, writeAuditLine(&sb, ev))
	assert.Equal(t,
		"[2024-01-01T12:00:00Z] order.status_changed | order=ORD-20240101-ABCDEF | id=1 | user=guest | status=processing->shipped | payment=cod | total=183.97 USD | items=3 | tracking=ABC123\n",
		sb.String())
}

func TestConsumerHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "orders.log")
	c := NewConsumer("amqp://unused", path)

	body, err := json.Marshal(OrderEvent{Type: EventOrderCreated, OrderNumber: "ORD-1", Status: "pending", TotalPrice: decimal.NewFromInt(10)})
	require.NoError(t, err)
	require.NoError(t, c.handle(body))
	require.NoError(t, c.handle(body))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "order.created"))

	assert.Error(t, c.handle([]byte("{not json")))
}

func TestNilPublisher(t *testing.T) {
	p := NewPublisher("")
	assert.Nil(t, p)
	assert.NoError(t, p.Publish(context.Background(), OrderEvent{}))
	p.PublishAsync(OrderEvent{})
}
