package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-orders/internal/mocks"
	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/repository"
)

type countingPurger struct{ n int }

func (p *countingPurger) Purge(context.Context) error { p.n++; return nil }

func newProductFixture() (*echo.Echo, *mocks.MockProductStore, *countingPurger) {
	store, purger := new(mocks.MockProductStore), &countingPurger{}
	h := NewProductHandler(store, purger)
	e := echo.New()
	e.GET("/v1/products", h.List)
	e.GET("/v1/products/count", h.Count)
	e.GET("/v1/products/:id", h.Get)
	e.POST("/admin/products", h.Create)
	e.PUT("/admin/products/:id", h.Update)
	e.DELETE("/admin/products/:id", h.Delete)
	return e, store, purger
}

func TestProductHandler_List(t *testing.T) {
	e, store, _ := newProductFixture()
	f := model.ProductFilter{Search: "silk", Category: "dresses", Page: 0, Limit: 500}
	store.On("List", mock.Anything, f).Return([]model.Product{{ID: 1, Name: "Silk Dress"}}, 1, nil)
	store.On("Count", mock.Anything, model.ProductFilter{Category: "dresses"}).Return(4, nil)

	rec := call(e, http.MethodGet, "/v1/products?search=silk&category=dresses&limit=500", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["total"])
	assert.EqualValues(t, 100, body["limit"])
	assert.EqualValues(t, 1, body["page"])

	rec = call(e, http.MethodGet, "/v1/products/count?category=dresses", "", "")
	assert.EqualValues(t, 4, decode(t, rec)["count"])
}

func TestProductHandler_Get(t *testing.T) {
	e, store, _ := newProductFixture()
	store.On("GetByID", mock.Anything, uint64(1)).Return(&model.Product{ID: 1, Name: "Silk Dress", Price: decimal.RequireFromString("45.99")}, nil)
	store.On("GetByID", mock.Anything, uint64(2)).Return(nil, repository.ErrNotFound)

	rec := call(e, http.MethodGet, "/v1/products/1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 45.99, decode(t, rec)["price"])
	assert.Equal(t, http.StatusNotFound, call(e, http.MethodGet, "/v1/products/2", "", "").Code)
}

func TestProductHandler_Create_Price(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"number", `{"name":"Scarf","price":12.5}`, http.StatusCreated},
		{"numeric string", `{"name":"Scarf","price":"12.50"}`, http.StatusCreated},
		{"zero", `{"name":"Scarf","price":0}`, http.StatusBadRequest},
		{"negative", `{"name":"Scarf","price":"-3"}`, http.StatusBadRequest},
		{"not a number", `{"name":"Scarf","price":"cheap"}`, http.StatusBadRequest},
		{"missing price", `{"name":"Scarf"}`, http.StatusBadRequest},
		{"missing name", `{"name":"  ","price":3}`, http.StatusBadRequest},
		{"name too long", `{"name":"` + strings.Repeat("n", 256) + `","price":3}`, http.StatusBadRequest},
		{"category too long", `{"name":"Scarf","price":3,"category":"` + strings.Repeat("c", 101) + `"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, store, purger := newProductFixture()
			store.On("Create", mock.Anything, mock.MatchedBy(func(p *model.Product) bool {
				return p.Name == "Scarf" && p.Price.Equal(decimal.RequireFromString("12.5"))
			})).Return(nil).Run(func(args mock.Arguments) { args.Get(1).(*model.Product).ID = 3 })

			rec := call(e, http.MethodPost, "/admin/products", tt.body, "")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want == http.StatusCreated {
				assert.Equal(t, 1, purger.n)
				assert.EqualValues(t, 12.5, decode(t, rec)["price"])
			} else {
				store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				assert.Zero(t, purger.n)
			}
		})
	}
}

func TestProductHandler_Update(t *testing.T) {
	e, store, purger := newProductFixture()
	store.On("GetByID", mock.Anything, uint64(1)).Return(&model.Product{ID: 1, Name: "Old"}, nil)
	store.On("GetByID", mock.Anything, uint64(9)).Return(nil, repository.ErrNotFound)
	store.On("Update", mock.Anything, mock.MatchedBy(func(p *model.Product) bool {
		return p.ID == 1 && p.Name == "New" && p.Category == "tops"
	})).Return(nil).Once()

	rec := call(e, http.MethodPut, "/admin/products/1", `{"name":"New","price":"20","category":"tops"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, purger.n)

	rec = call(e, http.MethodPut, "/admin/products/9", `{"name":"New","price":"20"}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	store.AssertExpectations(t)
}

func TestProductHandler_Delete(t *testing.T) {
	e, store, purger := newProductFixture()
	store.On("Delete", mock.Anything, uint64(1)).Return(nil)
	store.On("Delete", mock.Anything, uint64(2)).Return(repository.ErrConflict)

	assert.Equal(t, http.StatusNoContent, call(e, http.MethodDelete, "/admin/products/1", "", "").Code)
	assert.Equal(t, http.StatusConflict, call(e, http.MethodDelete, "/admin/products/2", "", "").Code)
	assert.Equal(t, 1, purger.n)
}
