package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/service"
)

// Catalog is implemented by *repository.ProductRepo.
type Catalog interface {
	List(ctx context.Context, f model.ProductFilter) ([]model.Product, int, error)
	Count(ctx context.Context, f model.ProductFilter) (int, error)
	GetByID(ctx context.Context, id uint64) (*model.Product, error)
	Create(ctx context.Context, p *model.Product) error
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id uint64) error
}

// Purger drops cached catalogue responses after a write.
// *middleware.ResponseCache implements it.
type Purger interface {
	Purge(ctx context.Context) error
}

// ProductHandler serves the public catalogue and the admin product
// editor.
type ProductHandler struct {
	catalog Catalog
	cache   Purger
}

func NewProductHandler(c Catalog, cache Purger) *ProductHandler {
	return &ProductHandler{catalog: c, cache: cache}
}

func productFilter(c echo.Context) model.ProductFilter {
	return model.ProductFilter{
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Category: strings.TrimSpace(c.QueryParam("category")),
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
	}
}

// List supports ?search=&category=&page=&limit=.
func (h *ProductHandler) List(c echo.Context) error {
	f := productFilter(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, total, err := h.catalog.List(ctx, f)
	if err != nil {
		return fail(c, err)
	}
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}
	return c.JSON(http.StatusOK, service.Page[model.Product]{Items: items, Total: total, Page: page, Limit: limit})
}

func (h *ProductHandler) Count(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.catalog.Count(ctx, productFilter(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.catalog.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// productReq is the admin create/update body. Price may arrive as a
// JSON number or a numeric string.
type productReq struct {
	Name        string           `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	Category    string           `json:"category"`
	ImageURL    string           `json:"imageUrl"`
	ImageURL2   string           `json:"imageUrl2"`
	Description string           `json:"description"`
}

func (r productReq) product() (*model.Product, string) {
	name := strings.TrimSpace(r.Name)
	if name == "" || r.Price == nil {
		return nil, "name and price are required"
	}
	if !r.Price.IsPositive() {
		return nil, "price must be greater than zero"
	}
	p := &model.Product{
		Name:        name,
		Price:       r.Price.Round(2),
		Category:    strings.TrimSpace(r.Category),
		ImageURL:    strings.TrimSpace(r.ImageURL),
		ImageURL2:   strings.TrimSpace(r.ImageURL2),
		Description: strings.TrimSpace(r.Description),
	}
	if msg := tooLong(
		model.Field{Name: "name", Value: p.Name, Max: model.MaxNameLen},
		model.Field{Name: "category", Value: p.Category, Max: model.MaxCategoryLen},
		model.Field{Name: "imageUrl", Value: p.ImageURL, Max: model.MaxImageURLLen},
		model.Field{Name: "imageUrl2", Value: p.ImageURL2, Max: model.MaxImageURLLen},
	); msg != "" {
		return nil, msg
	}
	return p, ""
}

func (h *ProductHandler) purge(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Purge(ctx); err != nil {
		slog.Warn("catalogue cache purge failed; entries expire with their TTL", "error", err)
	}
}

func (h *ProductHandler) Create(c echo.Context) error {
	var req productReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body: price must be a number")
	}
	p, msg := req.product()
	if p == nil {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.catalog.Create(ctx, p); err != nil {
		return fail(c, err)
	}
	h.purge(ctx)
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) Update(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req productReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body: price must be a number")
	}
	p, msg := req.product()
	if p == nil {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	current, err := h.catalog.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	p.ID, p.CreatedAt = current.ID, current.CreatedAt
	if err := h.catalog.Update(ctx, p); err != nil {
		return fail(c, err)
	}
	h.purge(ctx)
	return c.JSON(http.StatusOK, p)
}

// Delete answers 409 when the product appears on an order.
func (h *ProductHandler) Delete(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.catalog.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	h.purge(ctx)
	return c.NoContent(http.StatusNoContent)
}
