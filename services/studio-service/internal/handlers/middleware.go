package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/a-mestre/hilvan/libs/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// RequireAuth verifies the Bearer access token and stores its claims in the
// request context. Everything under /api/v1 except the auth endpoints runs
// behind it.
func RequireAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			claims, err := auth.ParseAndVerifyHS256(token, secret)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// ClaimsFrom returns the verified claims stored by RequireAuth.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// ownerID pulls the owner scope out of the request, failing the request when
// the middleware did not run.
func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok || claims.OwnerID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return claims.OwnerID, true
}
