package auth

import (
	"context"
	"net/http"
)

// Middleware authenticates every request, rejecting unauthenticated
// requests with 401 and otherwise storing the subject in the request context.
func Middleware(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := a.Authenticate(r)
			if err != nil {
				http.Error(w, `{"detail":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ContextKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Subject reads the authenticated subject stored by Middleware.
func Subject(r *http.Request) string {
	if v, ok := r.Context().Value(ContextKey).(string); ok {
		return v
	}
	return ""
}
