// Package middleware provides HTTP middleware for the Courtside API:
// request logging and API-key authentication that resolves each caller to
// an effective permission level.
package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/courtside/courtside/internal/config"
	"github.com/courtside/courtside/pkg/permissions"
)

type contextKey string

const permissionKey contextKey = "permission_level"

// Auth resolves the caller's effective permission level from its API key.
//
// Keys arrive via Authorization: Bearer <key> or X-API-Key. With no keys
// configured, auth is disabled and every caller gets the default level.
// With keys configured, a missing or unknown key is rejected.
type Auth struct {
	keys         map[string]permissions.Level
	defaultLevel permissions.Level
}

// NewAuth builds the auth middleware from static configuration.
func NewAuth(cfg config.AuthConfig) *Auth {
	return &Auth{
		keys:         cfg.KeyLevels,
		defaultLevel: cfg.DefaultLevel,
	}
}

// Enabled reports whether key auth is active.
func (a *Auth) Enabled() bool { return len(a.keys) > 0 }

// Middleware enforces key auth and stashes the resolved permission level in
// the request context.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r.WithContext(withLevel(r.Context(), a.defaultLevel)))
			return
		}

		key := extractKey(r)
		if key == "" {
			respondUnauthorized(w, "API key required. Set Authorization: Bearer <key> or X-API-Key header.")
			return
		}

		level, ok := a.resolve(key)
		if !ok {
			respondUnauthorized(w, "Invalid API key.")
			return
		}

		next.ServeHTTP(w, r.WithContext(withLevel(r.Context(), level)))
	})
}

// resolve looks the key up with constant-time comparison.
func (a *Auth) resolve(candidate string) (permissions.Level, bool) {
	for key, level := range a.keys {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(key)) == 1 {
			return level, true
		}
	}
	return 0, false
}

func withLevel(ctx context.Context, level permissions.Level) context.Context {
	return context.WithValue(ctx, permissionKey, level)
}

// PermissionLevel returns the caller's effective permission level, falling
// back to ReadOnly if the middleware never ran.
func PermissionLevel(ctx context.Context) permissions.Level {
	if level, ok := ctx.Value(permissionKey).(permissions.Level); ok {
		return level
	}
	return permissions.ReadOnly
}

func extractKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}

func isPublicPath(path string) bool {
	switch path {
	case "/health", "/version", "/metrics":
		return true
	}
	return false
}

func respondUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="courtside"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": msg,
	})
}
