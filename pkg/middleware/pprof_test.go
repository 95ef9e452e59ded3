package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/utafrali/savedcarts/pkg/logger"
)

func allowlistStatus(cidrs []string, remoteAddr string) int {
	h := IPAllowlist(cidrs, logger.Discard())(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestIPAllowlist(t *testing.T) {
	tests := []struct {
		name   string
		cidrs  []string
		remote string
		want   int
	}{
		{"allowed ipv4", []string{"10.0.0.0/8"}, "10.1.2.3:5555", http.StatusOK},
		{"denied ipv4", []string{"10.0.0.0/8"}, "192.168.1.1:5555", http.StatusForbidden},
		{"second cidr", []string{"10.0.0.0/8", "127.0.0.1/32"}, "127.0.0.1:1", http.StatusOK},
		{"invalid cidr skipped", []string{"nope", "127.0.0.1/32"}, "127.0.0.1:1", http.StatusOK},
		{"ipv6", []string{"::1/128"}, "[::1]:8080", http.StatusOK},
		{"no port", []string{"127.0.0.1/32"}, "127.0.0.1", http.StatusOK},
		{"garbage address", []string{"0.0.0.0/0"}, "not-an-ip", http.StatusForbidden},
		{"empty list", nil, "127.0.0.1:1", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, allowlistStatus(tt.cidrs, tt.remote))
		})
	}
}

func TestRegisterPprof(t *testing.T) {
	r := chi.NewRouter()
	RegisterPprof(r, []string{"127.0.0.1/32"}, logger.Discard())

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil)
	req.RemoteAddr = "8.8.8.8:1234"
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRegisterPprof_DisabledWithoutAllowlist(t *testing.T) {
	r := chi.NewRouter()
	RegisterPprof(r, nil, logger.Discard())

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
