package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/calyxcontainers/scar-service/internal/config"
)

// cachedResponse is the redis payload for one cached GET response.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// bodyCapture tees the response body so it can be stored after the
// handler has written it. Capture stops past the configured limit;
// oversized responses are served but not cached.
type bodyCapture struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
}

func (w *bodyCapture) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	if w.buf.Len() < w.limit {
		n := w.limit - w.buf.Len()
		if n > len(b) {
			n = len(b)
		}
		w.buf.Write(b[:n])
	}
	return w.ResponseWriter.Write(b)
}

// cacheKey scopes entries by route, query and the caller's identity so
// a supplier's vendor-scoped payload is never served to anyone else.
func cacheKey(prefix string, c echo.Context) string {
	role, _ := c.Get(ctxRole).(string)
	vendor, _ := c.Get(ctxVendorID).(string)
	tail := c.Path() + "?" + c.Request().URL.RawQuery + "|" + role + "|" + vendor
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%x", prefix, sum)
}

// CacheGET serves recent responses of read-only endpoints from redis.
// Only successful GET responses are stored, for cfg.TTL.
func CacheGET(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			key := cacheKey(cfg.Prefix, c)
			ctx := c.Request().Context()

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var cached cachedResponse
				if json.Unmarshal(raw, &cached) == nil {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(cached.Status, cached.ContentType, cached.Body)
				}
			}

			cw := &bodyCapture{ResponseWriter: c.Response().Writer, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			if err := next(c); err != nil {
				return err
			}

			status := cw.status
			if status == 0 {
				status = c.Response().Status
			}
			if status != http.StatusOK || cw.buf.Len() >= cfg.MaxBodyBytes {
				return nil
			}
			payload, err := json.Marshal(cachedResponse{
				Status:      status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        cw.buf.Bytes(),
			})
			if err == nil {
				// Best effort; a failed SET only costs a cache miss.
				_ = rdb.Set(ctx, key, payload, cfg.TTL).Err()
			}
			return nil
		}
	}
}

// InvalidateCache drops every key under the prefix. Handlers call it
// after workflow transitions so stats do not serve stale counts for a
// full TTL.
func InvalidateCache(ctx context.Context, cfg config.CacheConfig, rdb *redis.Client) {
	if rdb == nil {
		return
	}
	keys, err := rdb.Keys(ctx, cfg.Prefix+":*").Result()
	if err != nil || len(keys) == 0 {
		return
	}
	// Best effort; stale entries age out on TTL anyway.
	_ = rdb.Del(ctx, keys...).Err()
}
