package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
)

const adminKeyHeader = "X-Admin-Key"

// AdminKey guards a handler with a shared admin key presented as
// X-Admin-Key. Keys are compared as SHA-256 digests in constant time. An
// empty configured key disables the check.
func AdminKey(key string) func(http.Handler) http.Handler {
	if key == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	want := sha256.Sum256([]byte(key))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := sha256.Sum256([]byte(r.Header.Get(adminKeyHeader)))
			if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"missing or invalid admin key"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
