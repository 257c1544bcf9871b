package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeadersMiddleware sets response hardening headers. Framing is limited to
// frameAncestors so the marketplace can still embed the iframe views.
func SecurityHeadersMiddleware(frameAncestors []string) func(http.Handler) http.Handler {
	ancestors := "'self'"
	if len(frameAncestors) > 0 {
		ancestors = strings.Join(frameAncestors, " ")
	}
	csp := "frame-ancestors " + ancestors

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", csp)
			next.ServeHTTP(w, r)
		})
	}
}
