package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-orders/internal/middleware"
	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/service"
)

// Orders is implemented by *service.OrderService.
type Orders interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, id uint64, c service.Caller) (*model.Order, error)
	ListMyOrders(ctx context.Context, userID uint64) ([]model.Order, error)
	ListOrders(ctx context.Context, status string, page, limit int) (service.Page[model.Order], error)
	UpdateStatus(ctx context.Context, id uint64, in service.UpdateStatusInput) (*model.Order, error)
	CancelOrder(ctx context.Context, id uint64, c service.Caller) (*model.Order, error)
}

// Payments is implemented by *service.PaymentService.
type Payments interface {
	StartPayment(ctx context.Context, orderID uint64, c service.Caller) (*service.PaymentSession, error)
	CancelPayment(ctx context.Context, orderID uint64, c service.Caller) (*model.Order, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) (*service.WebhookResult, error)
}

// SignatureHeader carries the gateway's HMAC of the webhook body.
const SignatureHeader = "X-Signature"

const maxWebhookBody = 1 << 20

// OrderHandler serves checkout, order history and the payment bridge.
type OrderHandler struct {
	orders   Orders
	payments Payments
}

func NewOrderHandler(o Orders, p Payments) *OrderHandler {
	return &OrderHandler{orders: o, payments: p}
}

// Create places an order. The customer id comes from the bearer token
// when one is present; guests check out anonymously.
func (h *OrderHandler) Create(c echo.Context) error {
	var in service.CreateOrderInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	in.UserID = nil
	if uid, ok := middleware.UserID(c); ok {
		in.UserID = &uid
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.orders.CreateOrder(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

// ListMine returns the signed-in user's orders.
func (h *OrderHandler) ListMine(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	orders, err := h.orders.ListMyOrders(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": orders, "total": len(orders)})
}

func (h *OrderHandler) Get(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.orders.GetOrder(ctx, id, callerOf(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// Cancel is the one status change a customer can make.
func (h *OrderHandler) Cancel(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.orders.CancelOrder(ctx, id, callerOf(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// StartPayment opens (or reopens) a card payment attempt.
func (h *OrderHandler) StartPayment(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sess, err := h.payments.StartPayment(ctx, id, callerOf(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *OrderHandler) CancelPayment(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.payments.CancelPayment(ctx, id, callerOf(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// Webhook receives gateway callbacks. The raw body is verified before
// it is decoded.
func (h *OrderHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return badRequest(c, "unreadable body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.payments.HandleWebhook(ctx, body, c.Request().Header.Get(SignatureHeader))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ----- admin -----

// AdminList lists every order, optionally filtered by ?status=.
func (h *OrderHandler) AdminList(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.orders.ListOrders(ctx, c.QueryParam("status"), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *OrderHandler) AdminGet(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.orders.GetOrder(ctx, id, service.Caller{Admin: true})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// AdminUpdateStatus applies {"status": "...", "trackingNumber": "..."}.
func (h *OrderHandler) AdminUpdateStatus(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var in service.UpdateStatusInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.orders.UpdateStatus(ctx, id, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, o)
}
