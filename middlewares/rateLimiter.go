package middlewares

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"urst/metrics"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration
}

// Limiter decides whether the request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Name() string
}

// NewLimiter returns the limiter for strategy, allowing limit requests per
// minute. "off" returns nil.
func NewLimiter(strategy string, client *redis.Client, limit int) (Limiter, error) {
	switch strategy {
	case "off", "":
		return nil, nil
	case "fixed":
		return &FixedWindow{client: client, max: limit, window: time.Minute}, nil
	case "sliding":
		return &SlidingWindow{client: client, max: limit, window: time.Minute}, nil
	case "token":
		return &TokenBucket{client: client, capacity: limit, refillPerMs: float64(limit) / 60000}, nil
	case "leaky":
		return &LeakyBucket{client: client, capacity: limit, leakPerMs: float64(limit) / 60000}, nil
	}
	return nil, fmt.Errorf("unknown rate limit strategy %q", strategy)
}

// FixedWindow counts requests per key in one-minute buckets.
type FixedWindow struct {
	client *redis.Client
	max    int
	window time.Duration
}

func (f *FixedWindow) Name() string { return "fixed" }

func (f *FixedWindow) Allow(ctx context.Context, key string) (Decision, error) {
	key = "rate:fixed:" + key
	count, err := f.client.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, err
	}
	// If this is the first request, start the window.
	if count == 1 {
		f.client.Expire(ctx, key, f.window)
	}

	reset := f.window
	if ttl, err := f.client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		reset = ttl
	}
	return Decision{
		Allowed:   count <= int64(f.max),
		Limit:     f.max,
		Remaining: max(0, f.max-int(count)),
		Reset:     reset,
	}, nil
}

// RateLimitMiddleware rejects requests over the limiter's budget with 429.
// The key is the client IP and route path. Redis errors let the request pass.
func RateLimitMiddleware(limiter Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := getIPAddress(r) + ":" + r.URL.Path
			d, err := limiter.Allow(r.Context(), key)
			if err != nil {
				// In case of error, let the request pass.
				logger.Warn("rate limiter unavailable", "strategy", limiter.Name(), "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(d.Reset.Round(time.Second).Seconds())))
			if !d.Allowed {
				metrics.RateLimited.WithLabelValues(limiter.Name()).Inc()
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
