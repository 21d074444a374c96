// Package currency converts order totals from the catalogue's base
// currency into the currency charged by the card gateway.
//
// Cache is created once in main and injected wherever a rate is needed.
// A rate is fetched lazily on first use and reused until its TTL runs
// out. When the source cannot be reached the configured fallback rate is
// served instead; it is marked as such and is never treated as fresh, so
// the source is tried again once a short back-off has passed.
package currency

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a rate from Base to Target.
type Quote struct {
	Base      string          `json:"base"`
	Target    string          `json:"target"`
	Rate      decimal.Decimal `json:"rate"`
	FetchedAt time.Time       `json:"fetchedAt"`
	Fallback  bool            `json:"fallback"`
}

// Convert multiplies amount by the rate and rounds to places decimals.
func (q Quote) Convert(amount decimal.Decimal, places int32) decimal.Decimal {
	return amount.Mul(q.Rate).Round(places)
}

// Fetcher retrieves the current rate from an upstream source.
type Fetcher interface {
	Fetch(ctx context.Context) (decimal.Decimal, error)
}

// Store shares the last good quote between instances.
type Store interface {
	Load(ctx context.Context) (Quote, bool, error)
	Save(ctx context.Context, q Quote, ttl time.Duration) error
	Delete(ctx context.Context) error
}

// Cache holds the current quote. It is safe for concurrent use.
type Cache struct {
	fetcher  Fetcher
	store    Store
	base     string
	target   string
	ttl      time.Duration
	fallback decimal.Decimal
	backoff  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	quote   Quote
	expires time.Time
}

// Option customises a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// WithStore adds a shared backing store.
func WithStore(s Store) Option { return func(c *Cache) { c.store = s } }

// WithBackoff sets how long a fallback quote is served before the source
// is asked again. The default is one minute.
func WithBackoff(d time.Duration) Option { return func(c *Cache) { c.backoff = d } }

// NewCache builds a cache for base->target. ttl <= 0 means one hour.
func NewCache(f Fetcher, base, target string, ttl time.Duration, fallback decimal.Decimal, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := &Cache{
		fetcher:  f,
		base:     base,
		target:   target,
		ttl:      ttl,
		fallback: fallback,
		backoff:  time.Minute,
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TTL reports how long a fetched rate stays fresh.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Rate returns a fresh cached quote, or fetches one. It never fails: if
// the source is down the fallback quote is returned.
func (c *Cache) Rate(ctx context.Context) Quote {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.quote.Rate.IsZero() && now.Before(c.expires) {
		return c.quote
	}
	if q, ok := c.loadShared(ctx); ok {
		c.quote, c.expires = q, q.FetchedAt.Add(c.ttl)
		if now.Before(c.expires) {
			return q
		}
	}
	if err := c.refreshLocked(ctx); err != nil {
		slog.Warn("exchange rate fetch failed, using fallback",
			"base", c.base, "target", c.target, "fallback", c.fallback.String(), "error", err)
		c.quote = Quote{Base: c.base, Target: c.target, Rate: c.fallback, FetchedAt: now, Fallback: true}
		c.expires = now.Add(c.backoff)
	}
	return c.quote
}

// Refresh fetches a new rate regardless of the cached one. On failure
// the cached quote is left untouched and the error is returned.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

// Invalidate drops the cached quote so the next Rate call fetches.
func (c *Cache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.quote, c.expires = Quote{}, time.Time{}
	c.mu.Unlock()
	if c.store != nil {
		if err := c.store.Delete(ctx); err != nil {
			slog.Warn("exchange rate store delete failed", "error", err)
		}
	}
}

func (c *Cache) refreshLocked(ctx context.Context) error {
	rate, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}
	now := c.now()
	c.quote = Quote{Base: c.base, Target: c.target, Rate: rate, FetchedAt: now}
	c.expires = now.Add(c.ttl)
	if c.store != nil {
		if err := c.store.Save(ctx, c.quote, c.ttl); err != nil {
			slog.Warn("exchange rate store save failed", "error", err)
		}
	}
	return nil
}

func (c *Cache) loadShared(ctx context.Context) (Quote, bool) {
	if c.store == nil {
		return Quote{}, false
	}
	q, ok, err := c.store.Load(ctx)
	if err != nil {
		slog.Warn("exchange rate store load failed", "error", err)
		return Quote{}, false
	}
	if !ok || q.Fallback || !q.Rate.IsPositive() {
		return Quote{}, false
	}
	return q, true
}
