package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/courtside/courtside/internal/api/middleware"
	"github.com/courtside/courtside/internal/config"
	"github.com/courtside/courtside/pkg/permissions"
)

func levelEcho() (http.Handler, *permissions.Level) {
	var seen permissions.Level
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.PermissionLevel(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return h, &seen
}

func TestAuthDisabledUsesDefaultLevel(t *testing.T) {
	auth := middleware.NewAuth(config.AuthConfig{DefaultLevel: permissions.ReadExecute})
	if auth.Enabled() {
		t.Fatal("auth should be disabled with no keys")
	}

	inner, seen := levelEcho()
	handler := auth.Middleware(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if *seen != permissions.ReadExecute {
		t.Errorf("level = %v, want ReadExecute", *seen)
	}
}

func TestAuthRejectsMissingKey(t *testing.T) {
	auth := middleware.NewAuth(config.AuthConfig{
		KeyLevels:    map[string]permissions.Level{"secret": permissions.Admin},
		DefaultLevel: permissions.ReadExecute,
	})

	inner, _ := levelEcho()
	handler := auth.Middleware(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthResolvesKeyToLevel(t *testing.T) {
	auth := middleware.NewAuth(config.AuthConfig{
		KeyLevels: map[string]permissions.Level{
			"admin-key":  permissions.Admin,
			"viewer-key": permissions.ReadOnly,
		},
		DefaultLevel: permissions.ReadExecute,
	})

	cases := []struct {
		header string
		value  string
		want   permissions.Level
	}{
		{"Authorization", "Bearer admin-key", permissions.Admin},
		{"X-API-Key", "viewer-key", permissions.ReadOnly},
	}
	for _, tc := range cases {
		inner, seen := levelEcho()
		handler := auth.Middleware(inner)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil)
		req.Header.Set(tc.header, tc.value)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", tc.value, rec.Code)
		}
		if *seen != tc.want {
			t.Errorf("%s: level = %v, want %v", tc.value, *seen, tc.want)
		}
	}
}

func TestAuthRejectsUnknownKey(t *testing.T) {
	auth := middleware.NewAuth(config.AuthConfig{
		KeyLevels: map[string]permissions.Level{"secret": permissions.Admin},
	})

	inner, _ := levelEcho()
	handler := auth.Middleware(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthAllowsPublicPaths(t *testing.T) {
	auth := middleware.NewAuth(config.AuthConfig{
		KeyLevels:    map[string]permissions.Level{"secret": permissions.Admin},
		DefaultLevel: permissions.ReadOnly,
	})

	inner, _ := levelEcho()
	handler := auth.Middleware(inner)

	for _, path := range []string{"/health", "/version", "/metrics"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
		}
	}
}
