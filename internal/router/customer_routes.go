package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-orders/internal/handler"
	"github.com/iliyamo/storefront-orders/internal/middleware"
)

// RegisterCustomer registers checkout, order history, the payment
// bridge and service requests. Checkout and single-order routes accept
// guests (an invalid token is still rejected); the order history needs
// a token. The gateway webhook is authenticated by its signature only.
func RegisterCustomer(e *echo.Echo, o *handler.OrderHandler, sr *handler.ServiceRequestHandler, jwtSecret string) {
	optional := middleware.OptionalJWT(jwtSecret)
	auth := middleware.JWTAuth(jwtSecret)

	e.POST("/v1/orders", o.Create, optional)
	e.GET("/v1/orders", o.ListMine, auth)
	e.GET("/v1/orders/:id", o.Get, optional)
	e.POST("/v1/orders/:id/cancel", o.Cancel, optional)

	e.POST("/v1/orders/:id/payment", o.StartPayment, optional)
	e.POST("/v1/orders/:id/payment/cancel", o.CancelPayment, optional)
	e.POST("/v1/payments/webhook", o.Webhook)

	e.POST("/v1/service-requests", sr.Create, optional)
}
