package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// SessionKey counts requests per cart session. Use it behind Session().
func SessionKey(r *http.Request) string {
	return SessionIDFromContext(r.Context())
}

// visitor tracks a rate limiter per key.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore manages per-key limiters. Stale entries are evicted lazily,
// at most once per ttl, on the request path.
type limiterStore struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	nowFunc   func() time.Time
}

func newLimiterStore(limit rate.Limit, burst int, ttl time.Duration) *limiterStore {
	return &limiterStore{
		visitors:  make(map[string]*visitor),
		limit:     limit,
		burst:     burst,
		ttl:       ttl,
		lastSweep: time.Now(),
		nowFunc:   time.Now,
	}
}

// get returns (or creates) the limiter for key.
func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	if now.Sub(s.lastSweep) > s.ttl {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > s.ttl {
				delete(s.visitors, k)
			}
		}
		s.lastSweep = now
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (s *limiterStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RateLimit returns middleware that enforces a token bucket per key.
// perMinute is the sustained rate and burst the bucket size. Requests over
// the limit get 429 RATE_LIMITED. A non-positive perMinute disables limiting.
func RateLimit(perMinute float64, burst int, key KeyFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	const staleAfter = 10 * time.Minute
	store := newLimiterStore(rate.Limit(perMinute/60), burst, staleAfter)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if !store.get(k).Allow() {
				logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("key", k),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
