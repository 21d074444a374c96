package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/storefront-orders/internal/config"
	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/repository"
)

// Gateway event names.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
)

// PaymentSession is what the client needs to open the hosted widget.
type PaymentSession struct {
	OrderID      uint64          `json:"orderId"`
	OrderNumber  string          `json:"orderNumber"`
	Reference    string          `json:"reference"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	BaseAmount   decimal.Decimal `json:"baseAmount"`
	BaseCurrency string          `json:"baseCurrency"`
	Rate         decimal.Decimal `json:"rate"`
	RateFallback bool            `json:"rateFallback"`
	PublicKey    string          `json:"publicKey"`
}

// WebhookEvent is the body the gateway posts to the webhook.
type WebhookEvent struct {
	Event         string `json:"event"`
	Reference     string `json:"reference"`
	TransactionID string `json:"transactionId"`
	OrderID       uint64 `json:"orderId"`
}

// WebhookResult reports what a webhook did.
type WebhookResult struct {
	OrderID uint64 `json:"orderId"`
	Status  string `json:"status"`
	Outcome string `json:"outcome"` // paid, duplicate, failed_recorded, ignored
}

// PaymentService bridges orders and the card gateway. The browser only
// ever starts or abandons an attempt; an order becomes paid solely
// through a signed gateway webhook.
type PaymentService struct {
	orders    OrderStore
	lifecycle *OrderService
	rates     RateSource
	cfg       config.PaymentConfig
	newRef    func(orderNumber string) string
}

func NewPaymentService(orders OrderStore, lifecycle *OrderService, rates RateSource, cfg config.PaymentConfig) *PaymentService {
	return &PaymentService{orders: orders, lifecycle: lifecycle, rates: rates, cfg: cfg, newRef: paymentReference}
}

// paymentReference is unique per attempt: PAY-<order number>-<8 hex>.
func paymentReference(orderNumber string) string {
	return "PAY-" + orderNumber + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// StartPayment begins (or restarts) a card payment for an order that is
// still awaiting payment. Retrying reuses the same order and issues a
// new attempt reference; references of earlier attempts stay valid for
// webhooks.
func (s *PaymentService) StartPayment(ctx context.Context, orderID uint64, c Caller) (*PaymentSession, error) {
	o, err := s.lifecycle.GetOrder(ctx, orderID, c)
	if err != nil {
		return nil, err
	}
	if o.Status != model.StatusPendingPayment {
		return nil, fmt.Errorf("%w: status is %s", ErrNotPayable, o.Status)
	}

	ref := s.newRef(o.OrderNumber)
	switch err := s.orders.SetPaymentRef(ctx, o.ID, ref); {
	case errors.Is(err, repository.ErrConflict):
		return nil, ErrNotPayable
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrOrderNotFound
	case err != nil:
		return nil, fmt.Errorf("store payment reference: %w", err)
	}

	q := s.rates.Rate(ctx)
	sess := &PaymentSession{
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		Reference:    ref,
		Amount:       q.Convert(o.TotalPrice, 0),
		Currency:     q.Target,
		BaseAmount:   o.TotalPrice,
		BaseCurrency: o.Currency,
		Rate:         q.Rate,
		RateFallback: q.Fallback,
		PublicKey:    s.cfg.PublicKey,
	}
	slog.Info("payment attempt started", "order", o.OrderNumber, "reference", ref, "amount", sess.Amount.String(), "currency", sess.Currency)
	return sess, nil
}

// CancelPayment records that the customer closed the widget. The order
// stays in pending_payment so it can be paid later.
func (s *PaymentService) CancelPayment(ctx context.Context, orderID uint64, c Caller) (*model.Order, error) {
	o, err := s.lifecycle.GetOrder(ctx, orderID, c)
	if err != nil {
		return nil, err
	}
	if o.Status != model.StatusPendingPayment {
		return nil, fmt.Errorf("%w: status is %s", ErrNotPayable, o.Status)
	}
	slog.Info("payment attempt cancelled", "order", o.OrderNumber)
	return o, nil
}

// Sign returns the hex HMAC-SHA256 of body under secret, the value the
// gateway sends in the signature header.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *PaymentService) verify(body []byte, signature string) bool {
	if s.cfg.WebhookSecret == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(Sign(s.cfg.WebhookSecret, body))
	return hmac.Equal(got, want)
}

// HandleWebhook verifies and applies a gateway callback. Only a verified
// payment.succeeded moves an order to paid, with the gateway
// transaction id as tracking number. Repeated deliveries are no-ops.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if !s.verify(body, signature) {
		return nil, ErrInvalidSignature
	}
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, invalid("malformed webhook body")
	}
	if ev.Reference == "" {
		return nil, invalid("reference is required")
	}

	o, err := s.orders.GetByPaymentRef(ctx, ev.Reference)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order by reference: %w", err)
	}
	if ev.OrderID != 0 && ev.OrderID != o.ID {
		return nil, invalid("orderId does not match reference")
	}
	res := &WebhookResult{OrderID: o.ID, Status: string(o.Status)}

	switch ev.Event {
	case EventPaymentSucceeded:
		if ev.TransactionID == "" {
			return nil, invalid("transactionId is required")
		}
		return s.markPaid(ctx, o, ev, res)
	case EventPaymentFailed:
		slog.Warn("payment failed", "order", o.OrderNumber, "reference", ev.Reference, "transaction", ev.TransactionID)
		res.Outcome = "failed_recorded"
		return res, nil
	default:
		slog.Info("webhook event ignored", "event", ev.Event, "order", o.OrderNumber)
		res.Outcome = "ignored"
		return res, nil
	}
}

func (s *PaymentService) markPaid(ctx context.Context, o *model.Order, ev WebhookEvent, res *WebhookResult) (*WebhookResult, error) {
	if o.Status != model.StatusPendingPayment {
		if o.Status == model.StatusCancelled {
			slog.Error("payment succeeded for cancelled order, refund required",
				"order", o.OrderNumber, "transaction", ev.TransactionID)
			res.Outcome = "ignored"
			return res, nil
		}
		res.Outcome = "duplicate"
		return res, nil
	}

	tx := ev.TransactionID
	updated, err := s.lifecycle.UpdateStatus(ctx, o.ID, UpdateStatusInput{Status: model.StatusPaid, TrackingNumber: &tx})
	if errors.Is(err, ErrConflict) {
		// a concurrent delivery of the same event won the race
		current, lerr := s.lifecycle.load(ctx, o.ID)
		if lerr == nil && current.Status != model.StatusPendingPayment && current.Status != model.StatusCancelled {
			res.Status, res.Outcome = string(current.Status), "duplicate"
			return res, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	slog.Info("payment confirmed", "order", updated.OrderNumber, "transaction", tx)
	res.Status, res.Outcome = string(updated.Status), "paid"
	return res, nil
}
