package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/docchat/docchat-go/internal/logging"
)

// authMiddleware guards a route with a shared Bearer token. An empty
// apiKey disables the check entirely; the startup code logs that state
// once so it does not flood per-request logs.
//
// Clients authenticate with:
//
//	Authorization: Bearer <apiKey>
//
// Failures get 401 with a WWW-Authenticate challenge. Presented token
// values never reach the logs.
func authMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		switch {
		case token == "":
			logging.FromContext(r.Context()).Warn("auth: missing Authorization header",
				slog.String("path", r.URL.Path))
			w.Header().Set("WWW-Authenticate", `Bearer realm="docchat"`)
			http.Error(w, "authorization required", http.StatusUnauthorized)
		case subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1:
			logging.FromContext(r.Context()).Warn("auth: invalid token",
				slog.String("path", r.URL.Path))
			w.Header().Set("WWW-Authenticate", `Bearer realm="docchat" error="invalid_token"`)
			http.Error(w, "invalid token", http.StatusUnauthorized)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// bearerToken pulls the token out of an "Authorization: Bearer <token>"
// header. The scheme match is case-insensitive; anything else (absent
// header, Basic auth, bare token) yields "".
func bearerToken(r *http.Request) string {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
