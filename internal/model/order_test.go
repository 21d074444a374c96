package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusPendingPayment, StatusPaid, true},
		{StatusPendingPayment, StatusCancelled, true},
		{StatusPendingPayment, StatusShipped, false},
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusPaid, false},
		{StatusProcessing, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusShipped, StatusShipped, true},
		{OrderStatus("lost"), OrderStatus("lost"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusShipped.Terminal())
	assert.False(t, OrderStatus("unknown").Terminal())
}

func TestPaymentType_InitialStatus(t *testing.T) {
	assert.Equal(t, StatusPendingPayment, PaymentCard.InitialStatus())
	assert.Equal(t, StatusPending, PaymentCOD.InitialStatus())
	assert.Equal(t, StatusPending, PaymentBankTransfer.InitialStatus())
	assert.False(t, PaymentType("crypto").Valid())
}

func TestOrder_ItemsTotal(t *testing.T) {
	o := Order{Items: []OrderItem{
		{Quantity: 2, Price: decimal.RequireFromString("45.99")},
		{Quantity: 1, Price: decimal.RequireFromString("89.99")},
	}}
	assert.True(t, o.ItemsTotal().Equal(decimal.RequireFromString("181.97")))
}
