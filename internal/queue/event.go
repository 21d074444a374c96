// Package queue defines the order events exchanged over RabbitMQ together
// with the publisher used by the order service and the audit consumer.
package queue

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/storefront-orders/internal/model"
)

// OrderEventsQueue is the durable queue order events are routed to.
const OrderEventsQueue = "order.events"

// Event types.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent carries enough of an order for downstream consumers to log,
// notify or build analytics without querying the primary database.
type OrderEvent struct {
	Type           string          `json:"type"`
	OrderID        uint64          `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	UserID         *uint64         `json:"user_id,omitempty"`
	Status         string          `json:"status"`
	PreviousStatus string          `json:"previous_status,omitempty"`
	PaymentType    string          `json:"payment_type"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Currency       string          `json:"currency"`
	ItemCount      int             `json:"item_count"`
	TrackingNumber string          `json:"tracking_number,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// NewOrderEvent builds an event of type typ from o. prev is the status
// before a change and empty for creations.
func NewOrderEvent(typ string, o *model.Order, prev model.OrderStatus) OrderEvent {
	ev := OrderEvent{
		Type:           typ,
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		Status:         string(o.Status),
		PreviousStatus: string(prev),
		PaymentType:    string(o.PaymentType),
		TotalPrice:     o.TotalPrice,
		Currency:       o.Currency,
		OccurredAt:     time.Now().UTC(),
	}
	for _, it := range o.Items {
		ev.ItemCount += it.Quantity
	}
	if o.TrackingNumber != nil {
		ev.TrackingNumber = *o.TrackingNumber
	}
	return ev
}
