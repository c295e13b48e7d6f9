package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/devmojahid/restu-food/pkg/logger"
)

// CorrelationHeader carries the id that ties a request to its log records.
const CorrelationHeader = "X-Correlation-ID"

// maxCorrelationIDLen bounds client-supplied ids; longer ones are replaced.
const maxCorrelationIDLen = 128

// RequestLogging assigns a correlation id (taken from X-Correlation-ID or
// generated), echoes it in the response, and writes one access record per
// request. Server errors log at error level, client errors at warn.
func RequestLogging(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(CorrelationHeader)
			if id == "" || len(id) > maxCorrelationIDLen {
				id = uuid.NewString()
			}
			ctx := logger.WithCorrelationID(r.Context(), id)
			w.Header().Set(CorrelationHeader, id)

			rec := record(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			level := slog.LevelInfo
			switch status := rec.Status(); {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			route := ""
			if rc := chi.RouteContext(r.Context()); rc != nil {
				route = rc.RoutePattern()
			}

			l.LogAttrs(ctx, level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", route),
				slog.Int("status", rec.Status()),
				slog.Int("bytes", rec.bytes),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}
