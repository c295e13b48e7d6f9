package middleware

import (
	"context"
	"net/http"
)

// SessionHeader carries the opaque key of the caller's cart.
const SessionHeader = "X-Session-ID"

// maxSessionIDLen bounds the header so it can be used verbatim as a storage key.
const maxSessionIDLen = 128

type contextKeyType string

const sessionIDKey contextKeyType = "session_id"

// Session middleware requires a well-formed X-Session-ID header and injects
// it into the request context.
func Session() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(SessionHeader)
			if id == "" {
				writeError(w, http.StatusBadRequest, "MISSING_SESSION", "missing "+SessionHeader+" header")
				return
			}
			if !validSessionID(id) {
				writeError(w, http.StatusBadRequest, "MISSING_SESSION", "malformed "+SessionHeader+" header")
				return
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext extracts the session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// WithSessionID returns a context carrying id, as the Session middleware would.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// validSessionID accepts ASCII letters, digits, '-', '_' and '.'.
func validSessionID(id string) bool {
	if len(id) > maxSessionIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
