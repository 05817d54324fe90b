package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"collage-sync/internal/apperr"
	"collage-sync/internal/services"
)

type contextKey string

const clientKey contextKey = "client"

// AuthMiddleware resolves the bearer token to the caller's Client
func AuthMiddleware(manager *services.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				respondError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			client, err := manager.ClientForToken(r.Context(), token)
			if apperr.Is(err, apperr.Unauthorized) {
				respondError(w, "Invalid token", http.StatusUnauthorized)
				return
			}
			if err != nil {
				respondError(w, "Failed to authenticate", http.StatusBadGateway)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClient(r.Context(), client)))
		})
	}
}

// AdminOnly requires the X-Admin-Token header to equal token. An empty
// token hides the routes entirely.
func AdminOnly(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				http.NotFound(w, r)
				return
			}
			given := r.Header.Get("X-Admin-Token")
			if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
				respondError(w, "Invalid admin token", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetClient returns the Client resolved by AuthMiddleware
func GetClient(ctx context.Context) *services.Client {
	client, _ := ctx.Value(clientKey).(*services.Client)
	return client
}

// WithClient stores client in ctx
func WithClient(ctx context.Context, client *services.Client) context.Context {
	return context.WithValue(ctx, clientKey, client)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
