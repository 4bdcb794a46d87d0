package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter counts hits per key within a fixed window. The first hit of a
// window starts it.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter shares the window across instances.
type RedisCounter struct {
	Client *redis.Client
	Prefix string
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	full := c.Prefix + key
	pipe := c.Client.TxPipeline()
	incr := pipe.Incr(ctx, full)
	pipe.ExpireNX(ctx, full, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

type bucket struct {
	count int64
	until time.Time
}

// MemoryCounter is the single-instance fallback when Redis is not configured.
type MemoryCounter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{buckets: make(map[string]*bucket)}
}

func (c *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	b, ok := c.buckets[key]
	if !ok || now.After(b.until) {
		b = &bucket{until: now.Add(window)}
		c.buckets[key] = b
	}
	b.count++
	return b.count, nil
}

// RateLimit rejects with 429 once a client IP exceeds limit requests per
// window. Counter errors fail open so a Redis outage does not take the API
// down with it.
func RateLimit(counter Counter, limit int, per time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIPForRateLimit(r)
			n, err := counter.Incr(r.Context(), ip, per)
			if err == nil && n > int64(limit) {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIPForRateLimit(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if ip == "" {
				continue
			}
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	} else if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}

	return r.RemoteAddr
}
