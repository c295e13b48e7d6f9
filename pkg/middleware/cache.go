package middleware

import "net/http"

// NoStore returns a middleware that marks every response as uncacheable.
// Cart state is per session and changes on every mutation.
func NoStore() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}
