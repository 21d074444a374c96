package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-orders/internal/model"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []Mail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, m Mail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

func sampleOrder() *model.Order {
	tracking := "ABC123"
	return &model.Order{
		OrderNumber:     "ORD-20240101-A1B2C3",
		CustomerName:    "Aye Aye",
		CustomerEmail:   "aye@example.com",
		ShippingAddress: "No. 1, Yangon",
		PaymentType:     model.PaymentCOD,
		DeliveryType:    "YANGON",
		DeliveryFee:     decimal.RequireFromString("2"),
		Status:          model.StatusShipped,
		TrackingNumber:  &tracking,
		TotalPrice:      decimal.RequireFromString("183.97"),
		Currency:        "USD",
		Items: []model.OrderItem{
			{ProductName: "Silk <Dress>", Quantity: 2, Price: decimal.RequireFromString("45.99"), Size: "M"},
		},
	}
}

func TestDispatcher_StatusUpdate(t *testing.T) {
	fm := &fakeMailer{}
	d := NewDispatcher(fm, "admin@example.com", "Shop")
	o := sampleOrder()

	d.Dispatch(KindStatusUpdate, Message{To: o.CustomerEmail, Order: o})
	d.Wait()

	require.Len(t, fm.sent, 1)
	m := fm.sent[0]
	assert.Equal(t, "aye@example.com", m.To)
	assert.Equal(t, "Order ORD-20240101-A1B2C3: shipped", m.Subject)
	assert.Contains(t, m.HTML, "ABC123")
	assert.NotContains(t, m.HTML, "0x")
}

func TestDispatcher_AdminKindsGoToAdmin(t *testing.T) {
	fm := &fakeMailer{}
	d := NewDispatcher(fm, "admin@example.com", "Shop")

	d.Dispatch(KindAdminNewOrder, Message{To: "customer@example.com", Order: sampleOrder()})
	d.Dispatch(KindAdminNewUser, Message{Name: "Mya", Email: "mya@example.com"})
	d.Wait()

	require.Len(t, fm.sent, 2)
	for _, m := range fm.sent {
		assert.Equal(t, "admin@example.com", m.To)
	}
}

func TestDispatcher_SkipsWithoutRecipient(t *testing.T) {
	fm := &fakeMailer{}
	d := NewDispatcher(fm, "", "Shop")

	d.Dispatch(KindAdminNewUser, Message{Name: "x"})
	d.Dispatch(KindWelcome, Message{})
	d.Wait()
	assert.Empty(t, fm.sent)
}

func TestDispatcher_FailureIsSwallowed(t *testing.T) {
	fm := &fakeMailer{err: errors.New("smtp down")}
	d := NewDispatcher(fm, "", "Shop")

	assert.NotPanics(t, func() {
		d.Dispatch(KindWelcome, Message{To: "a@example.com", Name: "A"})
		d.Wait()
	})
	assert.Empty(t, fm.sent)
}

func TestRender_EscapesAndValidates(t *testing.T) {
	m, err := render(KindOrderConfirmation, Message{To: "a@example.com", Name: "A", Order: sampleOrder(), Store: "Shop"})
	require.NoError(t, err)
	assert.Contains(t, m.HTML, "Silk &lt;Dress&gt;")
	assert.Contains(t, m.HTML, "183.97")
	assert.Equal(t, "Order ORD-20240101-A1B2C3 confirmed", m.Subject)

	_, err = render(KindStatusUpdate, Message{To: "a@example.com"})
	assert.Error(t, err)

	_, err = render(Kind("sms"), Message{To: "a@example.com"})
	assert.Error(t, err)
}

func TestRender_PasswordResetAndCustom(t *testing.T) {
	m, err := render(KindPasswordReset, Message{Name: "A", Link: "https://shop.test/reset?token=abc"})
	require.NoError(t, err)
	assert.Contains(t, m.HTML, "https://shop.test/reset?token=abc")

	m, err = render(KindCustom, Message{Subject: "Sale", Body: "50% off"})
	require.NoError(t, err)
	assert.Equal(t, "Sale", m.Subject)
	assert.Equal(t, "50% off", m.Text)
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, LogMailer{}.Send(context.Background(), Mail{To: "a@example.com"}))
}
