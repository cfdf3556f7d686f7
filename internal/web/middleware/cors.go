package middleware

import (
	"net/http"
	"os"
	"strings"
)

// originAllowlist holds the origins permitted to call the API from a browser.
type originAllowlist map[string]struct{}

// loadOriginAllowlist reads WEB_ALLOWED_ORIGINS (comma-separated) into a set.
func loadOriginAllowlist() originAllowlist {
	allowed := make(originAllowlist)
	for _, o := range strings.Split(os.Getenv("WEB_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = struct{}{}
		}
	}
	return allowed
}

// permits reports whether an Origin header value should receive CORS headers.
// Localhost origins on any port are always permitted so the dev frontend
// works without configuration.
func (a originAllowlist) permits(origin string) bool {
	if origin == "" {
		return false
	}
	if _, ok := a[origin]; ok {
		return true
	}
	host := strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
	return host == "localhost" || strings.HasPrefix(host, "localhost:")
}

// CORS returns middleware that answers preflight requests and sets CORS
// headers for allowed origins.
func CORS() func(http.Handler) http.Handler {
	allowed := loadOriginAllowlist()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); allowed.permits(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Operator, X-Requested-With")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders returns middleware that sets baseline security headers.
// The API only ever returns JSON, so the CSP forbids loading anything.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			next.ServeHTTP(w, r)
		})
	}
}
