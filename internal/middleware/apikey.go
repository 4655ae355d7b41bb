package middleware

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyHeader carries the shared key on API requests.
const APIKeyHeader = "X-API-Key"

// HashAPIKey hashes key so the plaintext need not stay in memory.
func HashAPIKey(key string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
}

// RequireAPIKey rejects requests whose X-API-Key header does not match hash.
// A nil hash disables the check.
func RequireAPIKey(hash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hash == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if key == "" || bcrypt.CompareHashAndPassword(hash, []byte(key)) != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
