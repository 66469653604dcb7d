package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// ParseAPIKeys parses a comma-separated list of API keys, trimming whitespace
// and ignoring empty entries.
func ParseAPIKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// APIKeyMiddleware returns a middleware that validates the X-API-Key header,
// falling back to the api_key query parameter for plain download links.
// If no keys are configured, all requests are allowed through.
func APIKeyMiddleware(validKeys []string) func(http.Handler) http.Handler {
	keys := make([][]byte, len(validKeys))
	for i, k := range validKeys {
		keys[i] = []byte(k)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(keys) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if !validKey(keys, []byte(key)) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func validKey(keys [][]byte, got []byte) bool {
	ok := 0
	for _, k := range keys {
		ok |= subtle.ConstantTimeCompare(k, got)
	}
	return ok == 1
}
