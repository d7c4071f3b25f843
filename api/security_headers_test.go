package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		name    string
		path    string
		headers map[string]string
		csp     bool
		hsts    bool
	}{
		{"plain api", "/api/v1/info", nil, true, false},
		{"forwarded proto", "/api/v1/info", map[string]string{"X-Forwarded-Proto": "HTTPS"}, true, true},
		{"forwarded header", "/api/v1/info", map[string]string{"Forwarded": "for=1.2.3.4;Proto=https"}, true, true},
		{"swagger ui", "/api/v1/docs", nil, false, false},
		{"redoc", "/api/v1/redoc", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
			assert.Equal(t, tt.csp, w.Header().Get("Content-Security-Policy") != "")
			assert.Equal(t, tt.hsts, w.Header().Get("Strict-Transport-Security") != "")
		})
	}
}
