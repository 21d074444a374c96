package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/storefront-orders/internal/config"
)

// ResponseCache stores successful catalogue responses in Redis and can
// drop them all when the catalogue changes. A nil client disables it.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	return &ResponseCache{cfg: cfg, rdb: rdb}
}

func (rc *ResponseCache) enabled() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

// captureWriter tees the response body into buf, up to limit bytes.
type captureWriter struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.truncated {
		if cw.limit > 0 && int64(cw.buf.Len()+len(b)) > cw.limit {
			cw.truncated = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

func (rc *ResponseCache) key(c echo.Context) string {
	r := c.Request()
	var tail string
	switch strings.ToLower(rc.cfg.KeyStrategy) {
	case "route":
		tail = "route:" + c.Path()
	case "method_route":
		tail = "method:" + r.Method + ":route:" + c.Path()
	default: // route_query; the path is used with params substituted
		tail = "route:" + r.URL.Path + ":q:" + r.URL.RawQuery
	}
	sum := sha256.Sum256([]byte(tail))
	return fmt.Sprintf("%s:%x", rc.cfg.Prefix, sum[:12])
}

// cachedResponse is the value stored under a cache key.
type cachedResponse struct {
	Status int         `json:"s"`
	Header http.Header `json:"h"`
	Body   []byte      `json:"b"`
}

func (cr cachedResponse) writeTo(c echo.Context) error {
	h := c.Response().Header()
	for k, vals := range cr.Header {
		if k == echo.HeaderContentLength {
			continue
		}
		h[k] = append(h[k], vals...)
	}
	h.Set("X-Cache", "HIT")
	c.Response().WriteHeader(cr.Status)
	_, err := c.Response().Write(cr.Body)
	return err
}

func (rc *ResponseCache) load(ctx context.Context, key string) (cachedResponse, bool) {
	var cr cachedResponse
	raw, err := rc.rdb.Get(ctx, key).Bytes()
	if err != nil || json.Unmarshal(raw, &cr) != nil || cr.Status == 0 {
		return cr, false
	}
	return cr, true
}

// Middleware serves cached 200 responses for the configured methods and
// records fresh ones. Responses carry X-Cache: HIT or MISS.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	if !rc.enabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rc.cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := rc.key(c)

			if cr, ok := rc.load(ctx, key); ok {
				return cr.writeTo(c)
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(rc.cfg.MaxBodyBytes)}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil || cw.status != http.StatusOK || cw.truncated {
				return err
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			raw, err := json.Marshal(cachedResponse{Status: cw.status, Header: hdr, Body: cw.buf.Bytes()})
			if err != nil {
				return nil
			}
			if err := rc.rdb.SetEx(context.WithoutCancel(ctx), key, raw, rc.cfg.TTL).Err(); err != nil {
				slog.Warn("response cache write failed", "key", key, "error", err)
			}
			return nil
		}
	}
}

// Purge deletes every cached response under the configured prefix.
func (rc *ResponseCache) Purge(ctx context.Context) error {
	if !rc.enabled() {
		return nil
	}
	const batchSize = 200
	var keys []string
	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		err := rc.rdb.Unlink(ctx, keys...).Err()
		keys = keys[:0]
		return err
	}
	iter := rc.rdb.Scan(ctx, 0, rc.cfg.Prefix+":*", batchSize).Iterator()
	for iter.Next(ctx) {
		if keys = append(keys, iter.Val()); len(keys) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return flush()
}
