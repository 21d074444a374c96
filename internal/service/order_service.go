package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/notify"
	"github.com/iliyamo/storefront-orders/internal/queue"
	"github.com/iliyamo/storefront-orders/internal/repository"
)

// LineInput is one requested product.
type LineInput struct {
	ProductID uint64 `json:"id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
}

// CreateOrderInput is the checkout request. UserID is set by the
// handler from the verified token, never from the body. TotalPrice is
// what the client believes the total is; it is compared and logged but
// the stored total is always computed here.
type CreateOrderInput struct {
	UserID          *uint64           `json:"-"`
	CustomerName    string            `json:"customerName"`
	CustomerEmail   string            `json:"customerEmail"`
	CustomerPhone   string            `json:"customerPhone"`
	ShippingAddress string            `json:"shippingAddress"`
	PaymentType     model.PaymentType `json:"paymentType"`
	DeliveryType    string            `json:"deliveryType"`
	DeliveryDate    string            `json:"deliveryDate"`
	SendEmail       *bool             `json:"sendEmail"`
	Currency        string            `json:"currency"`
	TotalPrice      *decimal.Decimal  `json:"totalPrice"`
	Products        []LineInput       `json:"products"`

	deliveryAt *time.Time
}

// UpdateStatusInput moves an order to Status, optionally recording a
// tracking number.
type UpdateStatusInput struct {
	Status         model.OrderStatus `json:"status"`
	TrackingNumber *string           `json:"trackingNumber"`
}

const maxLineQuantity = 1000

// deliveryDateLayouts are tried in order when parsing deliveryDate.
var deliveryDateLayouts = []string{time.DateOnly, time.RFC3339}

func parseDeliveryDate(s string) (*time.Time, error) {
	for _, layout := range deliveryDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, invalid("deliveryDate must be YYYY-MM-DD or RFC 3339")
}

// OrderService owns the order lifecycle. Every status change, whether
// it comes from an admin, a customer cancellation or the payment
// webhook, goes through UpdateStatus.
type OrderService struct {
	orders    OrderStore
	products  ProductStore
	notifier  Notifier
	events    EventPublisher
	fees      map[string]decimal.Decimal
	currency  string
	newNumber func(time.Time) (string, error)
	now       func() time.Time
}

func NewOrderService(orders OrderStore, products ProductStore, n Notifier, events EventPublisher,
	fees map[string]decimal.Decimal, baseCurrency string) *OrderService {
	return &OrderService{
		orders:    orders,
		products:  products,
		notifier:  n,
		events:    events,
		fees:      fees,
		currency:  baseCurrency,
		newNumber: NewOrderNumber,
		now:       time.Now,
	}
}

// NewOrderNumber returns ORD-YYYYMMDD-XXXXXX with six random upper-case
// hex digits.
func NewOrderNumber(t time.Time) (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%s-%s", t.UTC().Format("20060102"), strings.ToUpper(hex.EncodeToString(b))), nil
}

// DeliveryFee looks up the fee for a delivery type.
func (s *OrderService) DeliveryFee(deliveryType string) (decimal.Decimal, bool) {
	fee, ok := s.fees[strings.ToUpper(strings.TrimSpace(deliveryType))]
	return fee, ok
}

func (s *OrderService) validate(in *CreateOrderInput) error {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.ToLower(strings.TrimSpace(in.CustomerEmail))
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.ShippingAddress = strings.TrimSpace(in.ShippingAddress)
	in.DeliveryType = strings.ToUpper(strings.TrimSpace(in.DeliveryType))
	in.PaymentType = model.PaymentType(strings.ToLower(strings.TrimSpace(string(in.PaymentType))))

	switch {
	case in.CustomerName == "":
		return invalid("customerName is required")
	case in.CustomerEmail == "":
		return invalid("customerEmail is required")
	case in.ShippingAddress == "":
		return invalid("shippingAddress is required")
	case !in.PaymentType.Valid():
		return invalid("paymentType must be one of cod, bank_transfer, card")
	case len(in.Products) == 0:
		return invalid("at least one product is required")
	}
	if err := checkLengths(
		model.Field{Name: "customerName", Value: in.CustomerName, Max: model.MaxNameLen},
		model.Field{Name: "customerEmail", Value: in.CustomerEmail, Max: model.MaxEmailLen},
		model.Field{Name: "customerPhone", Value: in.CustomerPhone, Max: model.MaxPhoneLen},
		model.Field{Name: "shippingAddress", Value: in.ShippingAddress, Max: model.MaxShippingLen},
	); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(in.CustomerEmail); err != nil {
		return invalid("customerEmail is not a valid address")
	}
	if d := strings.TrimSpace(in.DeliveryDate); d != "" {
		at, err := parseDeliveryDate(d)
		if err != nil {
			return err
		}
		in.deliveryAt = at
	}
	if _, ok := s.DeliveryFee(in.DeliveryType); !ok {
		return invalid("unknown deliveryType %q", in.DeliveryType)
	}
	for i, p := range in.Products {
		if p.ProductID == 0 {
			return invalid("products[%d].id is required", i)
		}
		if p.Quantity < 1 || p.Quantity > maxLineQuantity {
			return invalid("products[%d].quantity must be between 1 and %d", i, maxLineQuantity)
		}
		if err := checkLengths(model.Field{
			Name: fmt.Sprintf("products[%d].size", i), Value: strings.TrimSpace(p.Size), Max: model.MaxSizeLen,
		}); err != nil {
			return err
		}
	}
	return nil
}

// CreateOrder validates the request, snapshots current product prices
// into the line items, computes the total and persists order and items
// atomically. Card orders start in pending_payment, the rest in pending.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(in.Products))
	seen := make(map[uint64]bool, len(in.Products))
	for _, p := range in.Products {
		if !seen[p.ProductID] {
			seen[p.ProductID] = true
			ids = append(ids, p.ProductID)
		}
	}
	catalog, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	items := make([]model.OrderItem, 0, len(in.Products))
	for _, p := range in.Products {
		prod, ok := catalog[p.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, p.ProductID)
		}
		items = append(items, model.OrderItem{
			ProductID:   prod.ID,
			ProductName: prod.Name,
			Quantity:    p.Quantity,
			Price:       prod.Price,
			Size:        strings.TrimSpace(p.Size),
		})
	}

	fee, _ := s.DeliveryFee(in.DeliveryType)
	o := &model.Order{
		UserID:          in.UserID,
		CustomerName:    in.CustomerName,
		CustomerEmail:   in.CustomerEmail,
		CustomerPhone:   in.CustomerPhone,
		ShippingAddress: in.ShippingAddress,
		PaymentType:     in.PaymentType,
		DeliveryType:    in.DeliveryType,
		DeliveryFee:     fee,
		Status:          in.PaymentType.InitialStatus(),
		Currency:        s.currency,
		DeliveryDate:    in.deliveryAt,
		SendEmail:       in.SendEmail == nil || *in.SendEmail,
		Items:           items,
	}
	o.TotalPrice = o.ItemsTotal().Add(fee)

	if in.TotalPrice != nil && !in.TotalPrice.Equal(o.TotalPrice) {
		slog.Warn("client total differs from computed total",
			"declared", in.TotalPrice.String(), "computed", o.TotalPrice.String(), "email", o.CustomerEmail)
	}
	if in.Currency != "" && !strings.EqualFold(in.Currency, s.currency) {
		slog.Debug("ignoring requested currency", "requested", in.Currency, "base", s.currency)
	}

	if err := s.insert(ctx, o); err != nil {
		return nil, err
	}

	if o.SendEmail {
		s.notifier.Dispatch(notify.KindOrderConfirmation, notify.Message{To: o.CustomerEmail, Name: o.CustomerName, Order: o})
	}
	s.notifier.Dispatch(notify.KindAdminNewOrder, notify.Message{Order: o})
	s.events.PublishAsync(queue.NewOrderEvent(queue.EventOrderCreated, o, ""))

	slog.Info("order created", "order", o.OrderNumber, "id", o.ID, "status", o.Status, "total", o.TotalPrice.String())
	return o, nil
}

// insert assigns an order number and stores o, regenerating the number
// on the rare collision.
func (s *OrderService) insert(ctx context.Context, o *model.Order) error {
	items := o.Items
	for attempt := 0; attempt < 3; attempt++ {
		num, err := s.newNumber(s.now())
		if err != nil {
			return fmt.Errorf("order number: %w", err)
		}
		o.OrderNumber = num
		o.Items = items
		err = s.orders.Create(ctx, o)
		if errors.Is(err, repository.ErrOrderNumberTaken) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	}
	return errors.New("create order: could not allocate an order number")
}

func (s *OrderService) load(ctx context.Context, id uint64) (*model.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	return o, nil
}

// authorize lets admins see everything, users their own orders and
// guests their guest orders by checkout email.
func authorize(o *model.Order, c Caller) error {
	switch {
	case c.Admin:
		return nil
	case o.UserID != nil:
		if c.UserID == *o.UserID {
			return nil
		}
	case c.Email != "" && strings.EqualFold(strings.TrimSpace(c.Email), o.CustomerEmail):
		return nil
	}
	return ErrForbidden
}

// GetOrder returns an order visible to the caller.
func (s *OrderService) GetOrder(ctx context.Context, id uint64, c Caller) (*model.Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(o, c); err != nil {
		return nil, err
	}
	return o, nil
}

// ListMyOrders returns all orders of a signed-in user, newest first.
func (s *OrderService) ListMyOrders(ctx context.Context, userID uint64) ([]model.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListOrders is the admin listing with an optional status filter.
func (s *OrderService) ListOrders(ctx context.Context, status string, page, limit int) (Page[model.Order], error) {
	page, limit = pageParams(page, limit)
	f := model.OrderFilter{Status: model.OrderStatus(strings.TrimSpace(status)), Page: page, Limit: limit}
	if f.Status != "" && !f.Status.Valid() {
		return Page[model.Order]{}, invalid("unknown status %q", status)
	}
	items, total, err := s.orders.List(ctx, f)
	if err != nil {
		return Page[model.Order]{}, fmt.Errorf("list orders: %w", err)
	}
	return Page[model.Order]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// UpdateStatus applies a status change checked against the transition
// table. Setting the status an order already has only updates the
// tracking number and sends nothing. A real change sends exactly one
// status notification when the order has a customer email.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint64, in UpdateStatusInput) (*model.Order, error) {
	to := model.OrderStatus(strings.ToLower(strings.TrimSpace(string(in.Status))))
	if !to.Valid() {
		return nil, invalid("unknown status %q", in.Status)
	}
	var tracking *string
	if in.TrackingNumber != nil {
		if t := strings.TrimSpace(*in.TrackingNumber); t != "" {
			tracking = &t
		}
	}
	if tracking != nil {
		if err := checkLengths(model.Field{Name: "trackingNumber", Value: *tracking, Max: model.MaxTrackingLen}); err != nil {
			return nil, err
		}
	}

	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	from := o.Status

	if from == to {
		if tracking != nil && (o.TrackingNumber == nil || *o.TrackingNumber != *tracking) {
			if err := s.orders.SetTracking(ctx, id, *tracking); err != nil {
				return nil, err
			}
			o.TrackingNumber = tracking
		}
		return o, nil
	}
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	switch err := s.orders.UpdateStatus(ctx, id, from, to, tracking); {
	case errors.Is(err, repository.ErrConflict):
		return nil, ErrConflict
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrOrderNotFound
	case err != nil:
		return nil, fmt.Errorf("update order %d: %w", id, err)
	}

	o.Status = to
	if tracking != nil {
		o.TrackingNumber = tracking
	}
	slog.Info("order status changed", "order", o.OrderNumber, "from", from, "to", to)

	if o.CustomerEmail != "" {
		s.notifier.Dispatch(notify.KindStatusUpdate, notify.Message{To: o.CustomerEmail, Name: o.CustomerName, Order: o})
	}
	s.events.PublishAsync(queue.NewOrderEvent(queue.EventOrderStatusChanged, o, from))
	return o, nil
}

// CancelOrder is the customer-side cancellation. It is only possible
// before fulfilment starts and goes through UpdateStatus like every
// other change.
func (s *OrderService) CancelOrder(ctx context.Context, id uint64, c Caller) (*model.Order, error) {
	o, err := s.GetOrder(ctx, id, c)
	if err != nil {
		return nil, err
	}
	if !c.Admin && o.Status != model.StatusPending && o.Status != model.StatusPendingPayment {
		return nil, fmt.Errorf("%w: %s orders can no longer be cancelled", ErrInvalidTransition, o.Status)
	}
	return s.UpdateStatus(ctx, id, UpdateStatusInput{Status: model.StatusCancelled})
}
