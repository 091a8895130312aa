package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware(okHandler)

	tests := []struct {
		name       string
		path       string
		cookie     bool
		header     string
		wantStatus int
	}{
		{"login page is public", "/login", false, "", http.StatusTeapot},
		{"camera socket is public", "/camera", false, "", http.StatusTeapot},
		{"static assets are public", "/static/app.js", false, "", http.StatusTeapot},
		{"api without cookie", "/api/status", false, "", http.StatusUnauthorized},
		{"ajax without cookie", "/overlays", false, "XMLHttpRequest", http.StatusUnauthorized},
		{"page without cookie redirects", "/", false, "", http.StatusSeeOther},
		{"api with cookie", "/api/status", true, "", http.StatusTeapot},
		{"prefix is not enough", "/loginx", false, "", http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie {
				req.AddCookie(&http.Cookie{Name: "authenticated", Value: "true"})
			}
			if tt.header != "" {
				req.Header.Set("X-Requested-With", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	handler := RequestLogger(zap.New(core))(okHandler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reset", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["method"] != "POST" || fields["path"] != "/api/reset" {
		t.Errorf("Unexpected fields %v", fields)
	}
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("Expected status 418, got %v", fields["status"])
	}
}
