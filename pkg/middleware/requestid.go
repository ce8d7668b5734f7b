// Package middleware provides the HTTP middleware chain for the API server:
// request IDs, Prometheus metrics, request timeouts, rate limiting, and
// CORS.
package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/browniellc/emojitools/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request an ID (honoring an incoming X-Request-ID
// header), stores it in the context, and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = newRequestID()
		}
		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}
