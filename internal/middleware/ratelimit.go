package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/devfolio/backend/internal/errors"
	"github.com/devfolio/backend/internal/logger"
)

// RateLimiter counts requests per client in fixed windows backed by redis, so
// limits hold across instances.
type RateLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
	log    *logger.Logger
}

// NewRateLimiter creates a limiter allowing limit requests per window under
// the given key prefix.
func NewRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration, log *logger.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
		log:    log.WithComponent("ratelimit"),
	}
}

// Allow reports whether the client identified by key may proceed. The limiter
// fails open: if redis is unreachable the request is allowed rather than the
// API going down with it.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.log.Warn(ctx, "rate limit check failed, allowing request", map[string]interface{}{
			"error": err.Error(),
		})
		return true
	}

	return count.Val() <= rl.limit
}

// Middleware rejects clients over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(r.Context(), clientIP(r)) {
			apperrors.WriteError(w, apperrors.GetRequestID(r.Context()), apperrors.RateLimited())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
