package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// QueryParam is the query parameter accepted in place of the header. Browser
// websocket clients cannot set custom headers on the upgrade request.
const QueryParam = "api_key"

// Middleware returns next wrapped with an API key check. The key is read from
// header, falling back to the api_key query parameter. Requests without a
// valid key get 401 before any upgrade happens.
func Middleware(mode, header, key string, next http.Handler) http.Handler {
	if !enabled(mode, key) {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(header)
		if got == "" {
			got = r.URL.Query().Get(QueryParam)
		}
		if !matches(got, key) {
			slog.Warn("auth: rejected request", "remote", r.RemoteAddr, "path", r.URL.Path)
			http.Error(w, "invalid api key", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enabled(mode, key string) bool {
	return mode == ModeAPIKey && key != ""
}

func matches(got, key string) bool {
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(key)) == 1
}
