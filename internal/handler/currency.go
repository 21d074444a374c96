package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-orders/internal/currency"
)

// Rates is implemented by *currency.Cache.
type Rates interface {
	Rate(ctx context.Context) currency.Quote
	Refresh(ctx context.Context) error
	Invalidate(ctx context.Context)
}

type CurrencyHandler struct {
	rates Rates
}

func NewCurrencyHandler(r Rates) *CurrencyHandler { return &CurrencyHandler{rates: r} }

// Rate returns the current quote. It never fails; a fallback quote is
// marked with "fallback": true.
func (h *CurrencyHandler) Rate(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	return c.JSON(http.StatusOK, h.rates.Rate(ctx))
}

// Refresh forces a fetch from the upstream source.
func (h *CurrencyHandler) Refresh(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.rates.Refresh(ctx); err != nil {
		slog.Warn("exchange rate refresh failed", "error", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "rate source unavailable"})
	}
	return c.JSON(http.StatusOK, h.rates.Rate(ctx))
}

// Invalidate drops the cached rate so the next read refetches.
func (h *CurrencyHandler) Invalidate(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	h.rates.Invalidate(ctx)
	return c.NoContent(http.StatusNoContent)
}
