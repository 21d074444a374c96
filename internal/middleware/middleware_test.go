package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-orders/internal/config"
	"github.com/iliyamo/storefront-orders/internal/utils"
)

const secret = "test-secret"

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func token(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func whoami(c echo.Context) error {
	id, ok := UserID(c)
	if !ok {
		return c.String(http.StatusOK, "guest")
	}
	return c.String(http.StatusOK, strconv.FormatUint(id, 10)+":"+Role(c))
}

func do(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))

	rec := do(e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/me", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/me", token(t, 7, "CUSTOMER"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7:CUSTOMER", rec.Body.String())
}

func TestOptionalJWT(t *testing.T) {
	e := echo.New()
	e.GET("/checkout", whoami, OptionalJWT(secret))

	rec := do(e, http.MethodGet, "/checkout", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "guest", rec.Body.String())

	rec = do(e, http.MethodGet, "/checkout", token(t, 3, "CUSTOMER"))
	assert.Equal(t, "3:CUSTOMER", rec.Body.String())

	rec = do(e, http.MethodGet, "/checkout", "Bearer expired.or.bad")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", whoami, JWTAuth(secret), RequireRole("ADMIN"))

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/admin", "").Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/admin", token(t, 2, "CUSTOMER")).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/admin", token(t, 1, "ADMIN")).Code)
}

func TestTokenBucket(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 2 * time.Hour, KeyStrategy: "ip_route", Prefix: "rl-test",
	}
	e := echo.New()
	e.POST("/v1/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))

	for i := 0; i < 2; i++ {
		rec := do(e, http.MethodPost, "/v1/auth/login", "")
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := do(e, http.MethodPost, "/v1/auth/login", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestTokenBucket_FailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour, Prefix: "rl"}
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))

	mr.Close()
	assert.Equal(t, http.StatusNoContent, do(e, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusNoContent, do(e, http.MethodGet, "/", "").Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/products")
	c.Set(ctxUserID, uint64(9))

	assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}, c))
	assert.Equal(t, "rl:user:9:route:GET /v1/products", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}, c))
}

func TestResponseCache(t *testing.T) {
	_, rdb := newRedis(t)
	rc := NewResponseCache(config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "cache:test", MaxBodyBytes: 1 << 20,
	}, rdb)

	calls := 0
	e := echo.New()
	e.GET("/v1/products", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, rc.Middleware())

	first := do(e, http.MethodGet, "/v1/products?page=1", "")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := do(e, http.MethodGet, "/v1/products?page=1", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Contains(t, second.Header().Get(echo.HeaderContentType), "application/json")
	assert.Equal(t, 1, calls)

	other := do(e, http.MethodGet, "/v1/products?page=2", "")
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))

	require.NoError(t, rc.Purge(context.Background()))
	after := do(e, http.MethodGet, "/v1/products?page=1", "")
	assert.Equal(t, "MISS", after.Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)
}

func TestResponseCache_SkipsErrors(t *testing.T) {
	_, rdb := newRedis(t)
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, Prefix: "cache:test"}, rdb)
	e := echo.New()
	e.GET("/v1/products/:id", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}, rc.Middleware())

	do(e, http.MethodGet, "/v1/products/1", "")
	rec := do(e, http.MethodGet, "/v1/products/1", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
}

func TestResponseCache_Disabled(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Enabled: true}, nil)
	assert.NoError(t, rc.Purge(context.Background()))
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, rc.Middleware())
	rec := do(e, http.MethodGet, "/", "")
	assert.Empty(t, rec.Header().Get("X-Cache"))
}
