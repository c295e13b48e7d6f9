package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"net/netip"

	"github.com/go-chi/chi/v5"
)

// RegisterPprof mounts the net/http/pprof handlers under /debug/pprof,
// reachable only from the given CIDRs.
func RegisterPprof(r chi.Router, allowedCIDRs []string, logger *slog.Logger) {
	r.Route("/debug/pprof", func(r chi.Router) {
		r.Use(IPAllowlist(allowedCIDRs, logger))
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
		r.HandleFunc("/*", pprof.Index)
	})
}

// IPAllowlist rejects requests whose remote address is outside every prefix
// with 403 FORBIDDEN. Unparseable prefixes are logged and ignored, so an
// empty or fully invalid list denies everything.
func IPAllowlist(cidrs []string, logger *slog.Logger) func(http.Handler) http.Handler {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		p, err := netip.ParsePrefix(c)
		if err != nil {
			logger.Warn("ignoring invalid allowlist CIDR", slog.String("cidr", c), slog.String("error", err.Error()))
			continue
		}
		prefixes = append(prefixes, p.Masked())
	}

	allowed := func(remoteAddr string) bool {
		host, _, err := net.SplitHostPort(remoteAddr)
		if err != nil {
			host = remoteAddr
		}
		addr, err := netip.ParseAddr(host)
		if err != nil {
			return false
		}
		addr = addr.Unmap()
		for _, p := range prefixes {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed(r.RemoteAddr) {
				logger.WarnContext(r.Context(), "request outside IP allowlist",
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("path", r.URL.Path),
				)
				writeError(w, http.StatusForbidden, "FORBIDDEN", "access restricted by IP allowlist")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
