package handler

import (
	"context"
	"net/http"
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-orders/internal/middleware"
	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/service"
)

// ServiceRequests is implemented by *repository.ServiceRequestRepo.
type ServiceRequests interface {
	Create(ctx context.Context, sr *model.ServiceRequest) error
	GetByID(ctx context.Context, id uint64) (*model.ServiceRequest, error)
	List(ctx context.Context, status string, page, limit int) ([]model.ServiceRequest, int, error)
	UpdateStatus(ctx context.Context, id uint64, status string) error
}

type ServiceRequestHandler struct {
	requests ServiceRequests
}

func NewServiceRequestHandler(r ServiceRequests) *ServiceRequestHandler {
	return &ServiceRequestHandler{requests: r}
}

type serviceRequestReq struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	RequestType string `json:"requestType"`
	Message     string `json:"message"`
}

// Create records an inquiry. Signed-in users get it linked to their
// account.
func (h *ServiceRequestHandler) Create(c echo.Context) error {
	var req serviceRequestReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	sr := &model.ServiceRequest{
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:       strings.TrimSpace(req.Phone),
		RequestType: strings.TrimSpace(req.RequestType),
		Message:     strings.TrimSpace(req.Message),
		Status:      model.ServiceRequestPending,
	}
	if sr.Name == "" || sr.Email == "" || sr.Message == "" {
		return badRequest(c, "name, email and message are required")
	}
	if sr.RequestType == "" {
		sr.RequestType = "general"
	}
	if msg := tooLong(
		model.Field{Name: "name", Value: sr.Name, Max: model.MaxNameLen},
		model.Field{Name: "email", Value: sr.Email, Max: model.MaxEmailLen},
		model.Field{Name: "phone", Value: sr.Phone, Max: model.MaxPhoneLen},
		model.Field{Name: "requestType", Value: sr.RequestType, Max: model.MaxRequestTypeLen},
	); msg != "" {
		return badRequest(c, msg)
	}
	if _, err := mail.ParseAddress(sr.Email); err != nil {
		return badRequest(c, "email is not a valid address")
	}
	if uid, ok := middleware.UserID(c); ok {
		sr.UserID = &uid
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.requests.Create(ctx, sr); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, sr)
}

// AdminList supports ?status=&page=&limit=.
func (h *ServiceRequestHandler) AdminList(c echo.Context) error {
	status := strings.TrimSpace(c.QueryParam("status"))
	if status != "" && !model.ValidServiceRequestStatus(status) {
		return badRequest(c, "unknown status")
	}
	page, limit := queryInt(c, "page"), queryInt(c, "limit")
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, total, err := h.requests.List(ctx, status, page, limit)
	if err != nil {
		return fail(c, err)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}
	return c.JSON(http.StatusOK, service.Page[model.ServiceRequest]{Items: items, Total: total, Page: page, Limit: limit})
}

func (h *ServiceRequestHandler) AdminUpdateStatus(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if !model.ValidServiceRequestStatus(status) {
		return badRequest(c, "unknown status")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.requests.GetByID(ctx, id); err != nil {
		return fail(c, err)
	}
	if err := h.requests.UpdateStatus(ctx, id, status); err != nil {
		return fail(c, err)
	}
	sr, err := h.requests.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sr)
}
