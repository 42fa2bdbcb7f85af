package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/nkiryanov/bazario/internal/handlers/render"
	"github.com/nkiryanov/bazario/internal/logger"
	"github.com/nkiryanov/bazario/internal/ratelimit"
)

// RateLimit counts requests per client ip within scope.
// If limiter fails request is let through.
func RateLimit(limiter ratelimit.Limiter, scope string, l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), scope+":"+clientIP(r))
			if err != nil {
				l.Error("Rate limiter failed", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if !res.Allowed {
				seconds := int(math.Ceil(res.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
				render.ServiceError(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RemoteAddr is already real ip if chi RealIP middleware used
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
