package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/go-wa-onboarding/internal/infrastructure/jwt"
)

type contextKey string

const claimsKey contextKey = "claims"

// TenantHeader names the tenant when the service runs without JWT verification.
const TenantHeader = "X-Tenant-ID"

// Auth returns middleware that validates the Bearer JWT and injects claims into context.
func Auth(provider *jwtinfra.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := provider.Verify(tokenStr)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DevTenant trusts the X-Tenant-ID header. It stands in for Auth in local
// development when no JWT keys are configured.
func DevTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := strings.TrimSpace(r.Header.Get(TenantHeader))
		if tenantID == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing "+TenantHeader+" header")
			return
		}
		claims := &jwtinfra.Claims{UserID: "dev", TenantID: tenantID, Role: "owner"}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.Claims)
	return c, ok
}

// TenantFromContext returns the tenant the caller acts for.
func TenantFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok || c.TenantID == "" {
		return "", false
	}
	return c.TenantID, true
}

// WithClaims returns ctx carrying claims. Used by tests and in-process callers.
func WithClaims(ctx context.Context, claims *jwtinfra.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}
