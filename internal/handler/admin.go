package handler

import (
	"context"
	"net/http"
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-orders/internal/notify"
	"github.com/iliyamo/storefront-orders/internal/repository"
	"github.com/iliyamo/storefront-orders/internal/service"
)

// Stats is implemented by *repository.StatsRepo.
type Stats interface {
	Dashboard(ctx context.Context) (*repository.DashboardStats, error)
}

// AdminHandler serves the admin endpoints that are not tied to one
// resource: custom email and the dashboard.
type AdminHandler struct {
	notifier service.Notifier
	stats    Stats
}

func NewAdminHandler(n service.Notifier, s Stats) *AdminHandler {
	return &AdminHandler{notifier: n, stats: s}
}

type emailReq struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Name    string `json:"name"`
}

// SendEmail queues a custom email and answers 202 without waiting for
// delivery.
func (h *AdminHandler) SendEmail(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	to := strings.TrimSpace(req.To)
	if to == "" || strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Body) == "" {
		return badRequest(c, "to, subject and body are required")
	}
	if _, err := mail.ParseAddress(to); err != nil {
		return badRequest(c, "to is not a valid address")
	}
	h.notifier.Dispatch(notify.KindCustom, notify.Message{
		To:      to,
		Name:    strings.TrimSpace(req.Name),
		Subject: strings.TrimSpace(req.Subject),
		Body:    req.Body,
	})
	return c.JSON(http.StatusAccepted, echo.Map{"message": "email queued"})
}

func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.stats.Dashboard(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}
