package middleware

import (
	"net/http"
	"strings"

	"turnengine/internal/auth"
	"turnengine/internal/httputil"
)

// AuthMiddleware validates the Authorization: Bearer <jwt> header against the
// given verifier and injects the resulting user ID into the request context.
// A missing or invalid token is rejected with 401 before the handler runs.
func AuthMiddleware(verifier auth.JWTVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			r = httputil.WithUserID(r, claims.GetUserID())
			next.ServeHTTP(w, r)
		})
	}
}

// TestAuthMiddleware injects a fixed test user ID without verifying a token.
// Only wired in dev/test environments, ahead of Supabase JWKS being configured.
func TestAuthMiddleware(testUserID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = httputil.WithUserID(r, testUserID)
			next.ServeHTTP(w, r)
		})
	}
}
