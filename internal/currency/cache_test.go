package currency

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu    sync.Mutex
	rate  decimal.Decimal
	err   error
	calls int
}

func (s *stubFetcher) Fetch(context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.rate, s.err
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration)   { c.t = c.t.Add(d) }

var fallback = decimal.NewFromInt(2100)

func TestCache_ReusesUntilTTL(t *testing.T) {
	f := &stubFetcher{rate: decimal.RequireFromString("2105.5")}
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCache(f, "USD", "MMK", time.Hour, fallback, WithClock(clk.now))
	ctx := context.Background()

	q := c.Rate(ctx)
	assert.True(t, q.Rate.Equal(decimal.RequireFromString("2105.5")))
	assert.False(t, q.Fallback)
	c.Rate(ctx)
	assert.Equal(t, 1, f.calls)

	clk.advance(59 * time.Minute)
	c.Rate(ctx)
	assert.Equal(t, 1, f.calls)

	clk.advance(2 * time.Minute)
	f.rate = decimal.NewFromInt(2200)
	q = c.Rate(ctx)
	assert.Equal(t, 2, f.calls)
	assert.True(t, q.Rate.Equal(decimal.NewFromInt(2200)))
}

func TestCache_FallbackIsNotFresh(t *testing.T) {
	f := &stubFetcher{err: errors.New("source down")}
	clk := &clock{t: time.Now()}
	c := NewCache(f, "USD", "MMK", time.Hour, fallback, WithClock(clk.now), WithBackoff(time.Minute))
	ctx := context.Background()

	q := c.Rate(ctx)
	assert.True(t, q.Fallback)
	assert.True(t, q.Rate.Equal(fallback))

	c.Rate(ctx)
	assert.Equal(t, 1, f.calls, "within back-off the source is not asked again")

	clk.advance(2 * time.Minute)
	f.err, f.rate = nil, decimal.NewFromInt(2150)
	q = c.Rate(ctx)
	assert.False(t, q.Fallback)
	assert.Equal(t, 2, f.calls)
}

func TestCache_RefreshAndInvalidate(t *testing.T) {
	f := &stubFetcher{rate: decimal.NewFromInt(2000)}
	c := NewCache(f, "USD", "MMK", time.Hour, fallback)
	ctx := context.Background()

	c.Rate(ctx)
	f.rate = decimal.NewFromInt(2010)
	require.NoError(t, c.Refresh(ctx))
	assert.True(t, c.Rate(ctx).Rate.Equal(decimal.NewFromInt(2010)))
	assert.Equal(t, 2, f.calls)

	f.err = errors.New("boom")
	assert.Error(t, c.Refresh(ctx))
	assert.True(t, c.Rate(ctx).Rate.Equal(decimal.NewFromInt(2010)), "failed refresh keeps the old quote")

	f.err = nil
	c.Invalidate(ctx)
	c.Rate(ctx)
	assert.Equal(t, 4, f.calls)
}

func TestCache_DefaultTTL(t *testing.T) {
	c := NewCache(&stubFetcher{}, "USD", "MMK", 0, fallback)
	assert.Equal(t, time.Hour, c.TTL())
}

func TestQuote_Convert(t *testing.T) {
	q := Quote{Rate: decimal.NewFromInt(2100)}
	got := q.Convert(decimal.RequireFromString("183.97"), 0)
	assert.Equal(t, "386337", got.String())
}

func TestCache_SharedStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	store := NewRedisStore(rdb, "fx:rate")
	ctx := context.Background()

	first := &stubFetcher{rate: decimal.NewFromInt(2120)}
	NewCache(first, "USD", "MMK", time.Hour, fallback, WithStore(store)).Rate(ctx)
	assert.True(t, mr.Exists("fx:rate"))

	second := &stubFetcher{rate: decimal.NewFromInt(9999)}
	q := NewCache(second, "USD", "MMK", time.Hour, fallback, WithStore(store)).Rate(ctx)
	assert.True(t, q.Rate.Equal(decimal.NewFromInt(2120)))
	assert.Equal(t, 0, second.calls)

	c := NewCache(second, "USD", "MMK", time.Hour, fallback, WithStore(store))
	c.Invalidate(ctx)
	assert.False(t, mr.Exists("fx:rate"))
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"success","rates":{"USD":1,"MMK":2098.75}}`))
	}))
	defer srv.Close()

	rate, err := NewHTTPFetcher(srv.URL, "MMK").Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("2098.75")))

	_, err = NewHTTPFetcher(srv.URL, "EUR").Fetch(context.Background())
	assert.Error(t, err)
}

func TestHTTPFetcher_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.URL, "MMK").Fetch(context.Background())
	assert.Error(t, err)
}
