package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

type TokenValidator func(token string, r *http.Request) bool

// BearerAuth reads the token from "Authorization: Bearer <token>", the
// apikey header or the apikey query parameter. A missing token is 401, a rejected one 403.
func BearerAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if !validator(token, r) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MasterToken accepts only the configured token. An empty master token
// disables the check.
func MasterToken(master string) func(http.Handler) http.Handler {
	master = strings.TrimSpace(master)
	if master == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	return BearerAuth(func(token string, _ *http.Request) bool {
		return subtle.ConstantTimeCompare([]byte(token), []byte(master)) == 1
	})
}

func ExtractToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		if t := strings.TrimSpace(parts[1]); t != "" {
			return t
		}
	}
	if t := strings.TrimSpace(r.Header.Get("apikey")); t != "" {
		return t
	}
	// browsers cannot set headers on websocket upgrades
	return strings.TrimSpace(r.URL.Query().Get("apikey"))
}
