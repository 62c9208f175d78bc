// Package auth guards the query API with an optional shared bearer token.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Paulumo/System-Remaster-sub001/internal/httputil"
)

// Config holds authentication configuration.
type Config struct {
	Enabled bool
	Token   string
}

// exemptPaths are always public regardless of auth configuration.
var exemptPaths = map[string]bool{
	"/":               true,
	"/index.html":     true,
	"/app.js":         true,
	"/styles.css":     true,
	"/healthz":        true,
	"/readyz":         true,
	"/metrics":        true,
	"/api/v1/dataset": true,
}

// isExempt returns true if the path is exempt from auth.
func isExempt(path string) bool {
	return exemptPaths[path]
}

// Middleware returns an HTTP middleware that enforces Bearer token auth
// on non-exempt paths when auth is enabled.
//
// Browsers cannot set headers on a websocket handshake, so the stream
// endpoint also accepts the token as an access_token query parameter.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || isExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if !authorized(r, cfg.Token) {
				httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func authorized(r *http.Request, want string) bool {
	if want == "" {
		return false
	}
	token := ""
	if header := r.Header.Get("Authorization"); header != "" {
		t := strings.TrimPrefix(header, "Bearer ")
		if t == header {
			return false
		}
		token = t
	} else if strings.HasPrefix(r.URL.Path, "/api/v1/stream/") {
		token = r.URL.Query().Get("access_token")
	}
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(want)) == 1
}
