package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/storefront-orders/internal/config"
)

// takeScript refills the bucket stored at KEYS[1] for the whole
// intervals elapsed since its last refill, then tries to take one
// token. ARGV: now_ms, capacity, refill, interval_ms, ttl_s.
// Returns {allowed, remaining, wait_ms}.
var takeScript = redis.NewScript(`
local now, cap, refill, step, ttl =
	tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local b = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens, ts = tonumber(b[1]), tonumber(b[2])
if not tokens or not ts then
	tokens, ts = cap, now
end
local n = math.floor(math.max(0, now - ts) / step)
if n > 0 then
	tokens = math.min(cap, tokens + n * refill)
	ts = ts + n * step
end
local ok, wait = 0, 0
if tokens > 0 then
	ok, tokens = 1, tokens - 1
else
	wait = math.max(0, step - (now - ts))
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', ts)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, tokens, wait}
`)

type tokenBucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
}

type verdict struct {
	allowed   bool
	remaining int64
	wait      time.Duration
}

func (b tokenBucket) take(ctx context.Context, key string, now time.Time) (verdict, error) {
	out, err := takeScript.Run(ctx, b.rdb, []string{key},
		now.UnixMilli(), b.cfg.Capacity, b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(), int64(b.cfg.TTL.Seconds()),
	).Int64Slice()
	if err != nil {
		return verdict{}, err
	}
	if len(out) != 3 {
		return verdict{}, fmt.Errorf("token bucket: unexpected reply %v", out)
	}
	return verdict{
		allowed:   out[0] == 1,
		remaining: out[1],
		wait:      time.Duration(out[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket limits requests with a token bucket kept in Redis.
// Requests pass through untouched when the limiter is disabled, Redis
// is not configured, or the script call fails.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	bucket := tokenBucket{cfg: cfg, rdb: rdb}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			v, err := bucket.take(c.Request().Context(), key, time.Now())
			if err != nil {
				slog.Warn("rate limiter unavailable", "key", key, "error", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if v.allowed {
				return next(c)
			}

			retry := int((v.wait + time.Second - 1) / time.Second)
			h.Set("Retry-After", strconv.Itoa(retry))
			if cfg.Debug {
				slog.Info("rate limited", "key", key, "wait", v.wait)
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": retry,
			})
		}
	}
}

// buildRateKey joins the prefix with the identity segments named by the
// key strategy, e.g. "ip_route" gives prefix:ip:<ip>:route:<method path>.
// Unknown strategies use ip, user and route.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	segment := func(name string) (string, bool) {
		switch name {
		case "ip":
			if ip := c.RealIP(); ip != "" {
				return ip, true
			}
			return "unknown", true
		case "user":
			return userKey(c), true
		case "route":
			return c.Request().Method + " " + c.Path(), true
		}
		return "", false
	}

	parts := []string{cfg.Prefix}
	for _, name := range strings.Split(strings.ToLower(cfg.KeyStrategy), "_") {
		v, ok := segment(name)
		if !ok {
			return buildRateKey(config.RateLimitConfig{Prefix: cfg.Prefix, KeyStrategy: "ip_user_route"}, c)
		}
		parts = append(parts, name, v)
	}
	return strings.Join(parts, ":")
}
