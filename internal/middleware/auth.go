package middleware

import (
	"context"
	"net/http"
	"strings"

	"storefront/internal/model"
	"storefront/internal/session"

	"github.com/rs/zerolog"
)

// Authenticate verifies the bearer token and stores the actor in the request
// context. Requests without a valid token are rejected with 401.
func Authenticate(verifier session.Verifier, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing credentials")
				return
			}

			token := raw
			if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
				token = strings.TrimSpace(token[7:])
			}

			actor, err := verifier.Verify(token)
			if err != nil {
				logger.Warn().
					Err(err).
					Str("path", r.URL.Path).
					Str("request_id", RequestIDFromContext(r.Context())).
					Msg("rejected bearer token")
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), *actor)))
		})
	}
}

// RequireRole rejects authenticated callers without role with 403.
func RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing credentials")
				return
			}
			if actor.Role != role {
				writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, "role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithActor injects the authenticated actor into the context.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the actor stored by Authenticate.
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(ctxActor).(model.Actor)
	return actor, ok
}
