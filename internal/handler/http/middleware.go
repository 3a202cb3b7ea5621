package http

import (
	"context"
	"net/http"
	"strings"

	"flashsale/internal/platform/logger"
	"flashsale/internal/service/auth"
)

type ctxKey int

const claimsCtxKey ctxKey = iota

// recoverMiddleware catches panics in handlers, grounded on the teacher's
// recoverMiddleware, generalized to log through the request-scoped logger
// instead of the standard log package.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.FromContext(r.Context()).Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic recovered")
				respondWithError(w, http.StatusInternalServerError, ErrInternalServer)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware verifies the bearer token and stashes the resulting claims
// in the request context for handlers to read via claimsFromContext.
func authMiddleware(authSvc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				respondWithError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")

			claims, err := authSvc.Verify(r.Context(), token)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsCtxKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok || auth.RequireAdmin(claims) != nil {
			respondWithError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func claimsFromContext(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(claimsCtxKey).(auth.Claims)
	return claims, ok
}
