package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey string

const operatorKey contextKey = "operator"

// RequireToken returns middleware enforcing a static bearer token. An
// empty configured token disables authentication, which is only sensible
// for local development.
func RequireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			presented, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithOperator stores the X-Operator header in the request context so
// handlers can attribute manual edits in logs.
func WithOperator() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if operator := r.Header.Get("X-Operator"); operator != "" {
				r = r.WithContext(context.WithValue(r.Context(), operatorKey, operator))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OperatorFromContext returns the operator name set by WithOperator, or
// an empty string.
func OperatorFromContext(ctx context.Context) string {
	if operator, ok := ctx.Value(operatorKey).(string); ok {
		return operator
	}
	return ""
}
