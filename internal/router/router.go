// Package router registers the HTTP routes and the middleware that
// guards each group.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-orders/internal/handler"
	"github.com/iliyamo/storefront-orders/internal/middleware"
)

// RegisterRoutes registers routes that do not belong to any API
// version. At the moment it only exposes the health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the account routes. The unauthenticated ones
// live under /v1/auth behind the stricter auth rate limiter; profile
// routes live under /v1 and require a token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)

	auth := middleware.JWTAuth(jwtSecret)
	e.GET("/v1/me", a.Me, auth)
	e.PUT("/v1/me", a.UpdateMe, auth)
	e.POST("/v1/logout-all", a.LogoutAll, auth)
}

// RegisterPublic registers the catalogue and exchange-rate routes. The
// catalogue reads are served through the response cache.
func RegisterPublic(e *echo.Echo, p *handler.ProductHandler, cur *handler.CurrencyHandler, cache *middleware.ResponseCache) {
	cached := cache.Middleware()
	e.GET("/v1/products", p.List, cached)
	e.GET("/v1/products/count", p.Count, cached)
	e.GET("/v1/products/:id", p.Get, cached)
	e.GET("/v1/currency/rate", cur.Rate)
}
