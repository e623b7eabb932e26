package security

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles the scan endpoints with a Redis fixed window
// keyed by client IP. Scanners misfire (card held against the reader,
// firmware retry loops), so the window is sized for bursts of taps.
type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  limit,
		window: window,
	}
}

// Allow consumes one slot from the caller's window. The first hit in a
// window sets the expiry; Redis errors fail open.
func (r *RateLimiter) Allow(ctx context.Context, key string) bool {
	if r == nil || r.redis == nil || r.limit <= 0 {
		return true
	}

	windowKey := fmt.Sprintf("ratelimit:scan:%s", key)
	count, err := r.redis.Incr(ctx, windowKey).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		r.redis.Expire(ctx, windowKey, r.window)
	}
	return count <= int64(r.limit)
}

// ScanRateLimit is the PocketBase middleware form of Allow.
func (r *RateLimiter) ScanRateLimit() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if !r.Allow(e.Request.Context(), e.RealIP()) {
			return e.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}
		return e.Next()
	}
}
