package middleware

import (
	"context"
	"net/http"
	"strings"

	"price-monitor/internal/auth"
	"price-monitor/internal/utils"
)

const claimsKey ctxKey = 2

// Auth requires a valid bearer token and stores its claims in the context.
func Auth(tokens *auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				utils.WriteError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := tokens.Verify(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				utils.WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose role ranks below required. It must run
// after Auth.
func RequireRole(required auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := Claims(r.Context())
			if !ok {
				utils.WriteError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !auth.HasPermission(claims.Role, required) {
				utils.WriteError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func Claims(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

// WithClaims is used by tests and internal callers that authenticate
// outside of Auth.
func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}
