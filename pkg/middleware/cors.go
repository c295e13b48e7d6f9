package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CORSConfig configures cross-origin access for the storefront.
type CORSConfig struct {
	// AllowedOrigins lists exact origins. "*" allows any origin, as does an
	// Environment of "development".
	AllowedOrigins []string
	// AllowedHeaders defaults to the headers the cart API reads.
	AllowedHeaders []string
	// ExposedHeaders are readable by browser scripts.
	ExposedHeaders []string
	// MaxAge is how long a preflight answer may be cached; one hour if zero.
	MaxAge           time.Duration
	AllowCredentials bool
	Environment      string
}

const corsMethods = "GET, POST, PUT, DELETE, OPTIONS"

var defaultCORSHeaders = []string{"Accept", "Content-Type", CorrelationHeader, SessionHeader}

// CORS sets the Access-Control-* headers and answers preflight requests with
// 204. A request from an origin that is not allowed gets no
// Access-Control-Allow-Origin header and is otherwise served normally; the
// browser enforces the rest.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	anyOrigin := cfg.Environment == "development" || slices.Contains(cfg.AllowedOrigins, "*")

	allowHeaders := strings.Join(headers, ", ")
	exposeHeaders := strings.Join(cfg.ExposedHeaders, ", ")
	maxAgeSeconds := strconv.Itoa(int(maxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			origin := r.Header.Get("Origin")

			switch {
			case anyOrigin && !cfg.AllowCredentials:
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && (anyOrigin || slices.Contains(cfg.AllowedOrigins, origin)):
				// Credentialed requests may not use the wildcard.
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if exposeHeaders != "" {
				h.Set("Access-Control-Expose-Headers", exposeHeaders)
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", allowHeaders)
				h.Set("Access-Control-Max-Age", maxAgeSeconds)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
