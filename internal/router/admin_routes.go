package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-orders/internal/handler"
	"github.com/iliyamo/storefront-orders/internal/middleware"
	"github.com/iliyamo/storefront-orders/internal/model"
)

// AdminHandlers groups the handlers mounted under /v1/admin.
type AdminHandlers struct {
	Products        *handler.ProductHandler
	Orders          *handler.OrderHandler
	ServiceRequests *handler.ServiceRequestHandler
	Currency        *handler.CurrencyHandler
	Admin           *handler.AdminHandler
}

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.
// All routes require a valid JWT carrying the ADMIN role.
func RegisterAdmin(e *echo.Echo, h AdminHandlers, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Products ----
	g.GET("/products", h.Products.List)
	g.POST("/products", h.Products.Create)
	g.PUT("/products/:id", h.Products.Update)
	g.PATCH("/products/:id", h.Products.Update)
	g.DELETE("/products/:id", h.Products.Delete)

	// ---- Orders ----
	g.GET("/orders", h.Orders.AdminList)
	g.GET("/orders/:id", h.Orders.AdminGet)
	g.PUT("/orders/:id/status", h.Orders.AdminUpdateStatus)
	g.PATCH("/orders/:id/status", h.Orders.AdminUpdateStatus)

	// ---- Service requests ----
	g.GET("/service-requests", h.ServiceRequests.AdminList)
	g.PATCH("/service-requests/:id/status", h.ServiceRequests.AdminUpdateStatus)

	// ---- Misc ----
	g.POST("/email", h.Admin.SendEmail)
	g.GET("/stats", h.Admin.Dashboard)
	g.POST("/currency/refresh", h.Currency.Refresh)
	g.DELETE("/currency/rate", h.Currency.Invalidate)
}
