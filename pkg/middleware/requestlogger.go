package middleware

import (
	"log/slog"
	"net/http"

	"github.com/devmojahid/restu-food/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, retrievable
// with logger.FromContext. It carries the cart session id; correlation and
// trace ids are added by the logger itself on *Context calls. Mount it after
// Session.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := base
			if id := SessionIDFromContext(r.Context()); id != "" {
				l = l.With(slog.String("session_id", id))
			}
			next.ServeHTTP(w, r.WithContext(logger.NewContext(r.Context(), l)))
		})
	}
}
