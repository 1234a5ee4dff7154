// SPDX-License-Identifier: MIT

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func hit(h http.Handler, ip, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_EnforcesLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestLimit: 3, WindowSize: 1500 * time.Millisecond})(okHandler)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit(h, "192.168.1.1", "/status").Code, "request %d", i+1)
	}

	w := hit(h, "192.168.1.1", "/status")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "2", w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_exceeded", body["error"])
	assert.EqualValues(t, 2, body["retryAfterSeconds"])
}

func TestRateLimit_DifferentIPsIndependent(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestLimit: 2, WindowSize: time.Minute})(okHandler)

	assert.Equal(t, http.StatusOK, hit(h, "192.168.1.1", "/status").Code)
	assert.Equal(t, http.StatusOK, hit(h, "192.168.1.1", "/status").Code)
	assert.Equal(t, http.StatusOK, hit(h, "192.168.1.2", "/status").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "192.168.1.1", "/status").Code)
}

func TestRateLimit_PerEndpoint(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestLimit: 1, WindowSize: time.Minute, PerEndpoint: true})(okHandler)

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1", "/status").Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1", "/adbreaks").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1", "/status").Code)
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	for _, cfg := range []RateLimitConfig{
		{RequestLimit: 0, WindowSize: time.Minute},
		{RequestLimit: 5, WindowSize: 0},
	} {
		h := RateLimit(cfg)(okHandler)
		for i := 0; i < 20; i++ {
			require.Equal(t, http.StatusOK, hit(h, "192.168.1.1", "/status").Code)
		}
	}
}
