package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Limiter counts hits in fixed windows. cache.Client implements it.
type Limiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy names a throttled surface and its per-window budget.
type RateLimitPolicy struct {
	Name   string
	Limit  int64
	Window time.Duration
}

func (p RateLimitPolicy) enabled() bool {
	return p.Limit > 0 && p.Window > 0
}

// RateLimit throttles callers per authenticated user, falling back to the
// client IP. When the limiter errors the request is let through.
func RateLimit(policy RateLimitPolicy, limiter Limiter, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || !policy.enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			scope := rateLimitScope(policy.Name, r)

			allowed, count, err := limiter.FixedWindowAllow(ctx, scope, policy.Limit, policy.Window)
			if err != nil {
				logger.Warn().Err(err).Str("scope", scope).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				logger.Info().
					Str("scope", scope).
					Int64("attempts", count).
					Int64("limit", policy.Limit).
					Str("request_id", RequestIDFromContext(ctx)).
					Msg("rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
				writeError(w, r, http.StatusTooManyRequests, model.ErrCodeRateLimited, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitScope(name string, r *http.Request) string {
	if actor, ok := ActorFromContext(r.Context()); ok {
		return fmt.Sprintf("%s:user:%d", name, actor.UserID)
	}
	return fmt.Sprintf("%s:ip:%s", name, clientIP(r))
}

// clientIP keys on the connection's peer address. Forwarding headers are
// client controlled and would let a caller pick a fresh window per request.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
