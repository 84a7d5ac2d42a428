package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"frt-gateway/utils"
)

// Auth validates the bearer token issued by the external identity
// provider and stores the caller's user id in the request context. The
// secret is injected once at construction.
func Auth(jwtSecret string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			userID, err := utils.UserIDFromToken(parts[1], jwtSecret)
			if err != nil {
				log.Warn("invalid token", zap.Error(err))
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), utils.UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
