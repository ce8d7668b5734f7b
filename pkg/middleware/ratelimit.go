package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	pkgerrors "github.com/browniellc/emojitools/pkg/errors"
)

// RateLimit applies a global token-bucket limit to the whole API. rps <= 0
// disables limiting.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(pkgerrors.HTTPStatusCode(pkgerrors.ErrRateLimited))
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
