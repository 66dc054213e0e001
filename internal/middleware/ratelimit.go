package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/nikhil/chapterhub/internal/logger"
	"github.com/nikhil/chapterhub/internal/ratelimit"
	"github.com/nikhil/chapterhub/internal/response"
)

// RateLimit rejects callers over their window with 429. It must run after the auth middleware.
// Limiter errors let the request through.
func RateLimit(limiter ratelimit.Limiter, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			member, ok := CurrentMember(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			d, err := limiter.Allow(r.Context(), member.ID)
			if err != nil {
				log.WithContext(r.Context()).Warn("Rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				wait := int(math.Ceil(time.Until(d.ResetAt).Seconds()))
				if wait < 1 {
					wait = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(wait))
				response.Error(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
