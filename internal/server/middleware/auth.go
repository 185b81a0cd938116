package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// Identifier resolves a bearer credential to a user id.
type Identifier interface {
	Identify(ctx context.Context, credential string) (int64, error)
}

type userIDKey struct{}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserID returns the authenticated user id stored in ctx.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey{}).(int64)
	return id, ok
}

// Auth returns middleware that requires a valid bearer token on every
// request except those whose path is listed in public. The resolved user id
// is stored in the request context. Identifier failures that are not
// domain.ErrUnauthorized are reported as 503 rather than a bad credential.
func Auth(id Identifier, public ...string) func(http.Handler) http.Handler {
	open := make(map[string]bool, len(public))
	for _, p := range public {
		open[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if open[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				writeUnauthorized(w, "missing authentication token")
				return
			}

			userID, err := id.Identify(r.Context(), token)
			if errors.Is(err, domain.ErrUnauthorized) {
				writeUnauthorized(w, "could not validate credentials")
				return
			}
			if err != nil {
				slog.ErrorContext(r.Context(), "auth: identify failed", "error", err, "path", r.URL.Path)
				writeUnavailable(w, "authentication backend unavailable")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// extractToken looks for a token in the Authorization header (Bearer scheme).
// Browsers cannot set headers on websocket handshakes, so upgrade requests
// may pass it as the token query parameter instead.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return strings.TrimSpace(r.URL.Query().Get("token"))
	}

	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}

// writeUnavailable sends a 503 response with a JSON error body.
func writeUnavailable(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
