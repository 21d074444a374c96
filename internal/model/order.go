package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusPendingPayment OrderStatus = "pending_payment"
	StatusProcessing     OrderStatus = "processing"
	StatusPaid           OrderStatus = "paid"
	StatusShipped        OrderStatus = "shipped"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// transitions lists, for every status, the statuses it may move to.
// delivered and cancelled are terminal.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPendingPayment: {StatusPaid, StatusCancelled},
	StatusPending:        {StatusProcessing, StatusCancelled},
	StatusPaid:           {StatusProcessing, StatusShipped, StatusCancelled},
	StatusProcessing:     {StatusShipped, StatusCancelled},
	StatusShipped:        {StatusDelivered},
	StatusDelivered:      nil,
	StatusCancelled:      nil,
}

// Valid reports whether s is one of the fixed status values.
func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether an order in s may move to next.
// Staying in the same status is always allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return s.Valid()
	}
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// PaymentType is how the customer settles the order.
type PaymentType string

const (
	PaymentCOD          PaymentType = "cod"
	PaymentBankTransfer PaymentType = "bank_transfer"
	PaymentCard         PaymentType = "card"
)

// Valid reports whether p is a supported payment type.
func (p PaymentType) Valid() bool {
	switch p {
	case PaymentCOD, PaymentBankTransfer, PaymentCard:
		return true
	}
	return false
}

// InitialStatus is pending_payment for card payments awaiting
// gateway confirmation, pending for everything settled on delivery.
func (p PaymentType) InitialStatus() OrderStatus {
	if p == PaymentCard {
		return StatusPendingPayment
	}
	return StatusPending
}

// Order is a customer order. UserID is nil for guest checkout; the
// customer fields are denormalized so guest orders stay addressable.
type Order struct {
	ID              uint64          `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	UserID          *uint64         `json:"customerId,omitempty"`
	CustomerName    string          `json:"customerName"`
	CustomerEmail   string          `json:"customerEmail"`
	CustomerPhone   string          `json:"customerPhone,omitempty"`
	ShippingAddress string          `json:"shippingAddress"`
	PaymentType     PaymentType     `json:"paymentType"`
	DeliveryType    string          `json:"deliveryType"`
	DeliveryFee     decimal.Decimal `json:"deliveryFee"`
	Status          OrderStatus     `json:"status"`
	TrackingNumber  *string         `json:"trackingNumber,omitempty"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	Currency        string          `json:"currency"`
	DeliveryDate    *time.Time      `json:"deliveryDate,omitempty"`
	SendEmail       bool            `json:"sendEmail"`
	PaymentRef      *string         `json:"paymentRef,omitempty"`
	Items           []OrderItem     `json:"products"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// OrderItem is a line item. Price is the unit price snapshot taken
// when the order was placed.
type OrderItem struct {
	ID          uint64          `json:"itemId"`
	OrderID     uint64          `json:"orderId"`
	ProductID   uint64          `json:"id"`
	ProductName string          `json:"name,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Size        string          `json:"size,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Subtotal is price × quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemsTotal sums the line item subtotals.
func (o Order) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}

// OrderFilter narrows the admin order listing.
type OrderFilter struct {
	Status OrderStatus
	Page   int
	Limit  int
}
