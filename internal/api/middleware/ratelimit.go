// SPDX-License-Identifier: MIT

package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ManuGH/adpod/internal/log"
)

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	RequestLimit int
	WindowSize   time.Duration
	// PerEndpoint counts each route separately for the same client.
	PerEndpoint bool
	// KeyFunc overrides the client key. Defaults to the remote IP.
	KeyFunc func(r *http.Request) (string, error)
}

// RateLimit creates a sliding window rate limiter. A non-positive limit
// or window disables limiting.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.RequestLimit <= 0 || cfg.WindowSize <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	keys := []httprate.KeyFunc{httprate.KeyByIP}
	if cfg.KeyFunc != nil {
		keys[0] = cfg.KeyFunc
	}
	if cfg.PerEndpoint {
		keys = append(keys, httprate.KeyByEndpoint)
	}
	retryAfter := int(math.Ceil(cfg.WindowSize.Seconds()))

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(keys...),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			rateLimitedTotal.WithLabelValues(routeLabel(r)).Inc()
			logger := log.WithComponentFromContext(r.Context(), "api")
			logger.Warn().
				Str(log.FieldEvent, "http.rate_limited").
				Str(log.FieldPath, r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("request rejected by rate limiter")

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":             "rate_limit_exceeded",
				"retryAfterSeconds": retryAfter,
				"requestId":         log.RequestIDFromContext(r.Context()),
			})
		}),
	)
}
